package handler

import (
	"net/http"

	"familyeats/backend/internal/apperr"
	"familyeats/backend/internal/models"
	"familyeats/backend/internal/moderation"

	"github.com/gin-gonic/gin"
)

type analyzeRequest struct {
	Content     string `json:"content" binding:"required"`
	ContentType string `json:"content_type" binding:"required"`
	ContentID   string `json:"content_id" binding:"required"`
	AuthorID    string `json:"author_id"`
	Metadata    struct {
		HasRating bool `json:"has_rating"`
	} `json:"metadata"`
}

// Analyze handles POST /moderation/analyze.
func (h *Handler) Analyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperr.FromValidator(err))
		return
	}

	out, err := h.moderation.Analyze(c.Request.Context(), moderation.AnalyzeInput{
		Content:     req.Content,
		ContentType: req.ContentType,
		ContentID:   req.ContentID,
		AuthorID:    req.AuthorID,
		HasRating:   req.Metadata.HasRating,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	resp := gin.H{
		"analysis_results": out.Result,
		"action_taken":     out.Action,
		"quality_score":    out.QualityScore,
	}
	if out.QueueEntry != nil {
		resp["queue_id"] = out.QueueEntry.ID
	}
	c.JSON(http.StatusOK, resp)
}

type resultsQuery struct {
	ContentType string `form:"content_type"`
	ContentID   string `form:"content_id"`
}

// AnalysisResults handles GET /moderation/analyze/results.
func (h *Handler) AnalysisResults(c *gin.Context) {
	var q resultsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.fail(c, apperr.FromValidator(err))
		return
	}
	results, err := h.moderation.Results(c.Request.Context(), q.ContentType, q.ContentID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

type queueQuery struct {
	Limit      int    `form:"limit"`
	Priority   int    `form:"priority"`
	AssignedTo string `form:"assigned_to"`
}

// ListQueue handles GET /moderation/queue.
func (h *Handler) ListQueue(c *gin.Context) {
	var q queueQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.fail(c, apperr.FromValidator(err))
		return
	}
	items, err := h.queue.List(c.Request.Context(), moderation.ListInput{
		Limit:      q.Limit,
		Priority:   q.Priority,
		AssignedTo: q.AssignedTo,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"queue_items": items})
}

type enqueueRequest struct {
	ContentType string `json:"content_type" binding:"required"`
	ContentID   string `json:"content_id" binding:"required"`
	Reason      string `json:"reason" binding:"required"`
	Priority    int    `json:"priority"`
}

// Enqueue handles POST /moderation/queue. Entries added here are manual.
func (h *Handler) Enqueue(c *gin.Context) {
	var req enqueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperr.FromValidator(err))
		return
	}
	entry, _, err := h.queue.Enqueue(c.Request.Context(), moderation.EnqueueInput{
		ContentType: req.ContentType,
		ContentID:   req.ContentID,
		Reason:      req.Reason,
		Priority:    req.Priority,
		Source:      models.SourceManual,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": h.msg(c, "message.content_queued"), "queue_id": entry.ID})
}

type resolveRequest struct {
	QueueID     string `json:"queue_id" binding:"required"`
	Decision    string `json:"decision" binding:"required"`
	Notes       string `json:"notes"`
	ActionTaken string `json:"action_taken"`
}

// Resolve handles PUT /moderation/queue. The reviewer is always the caller.
func (h *Handler) Resolve(c *gin.Context) {
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperr.FromValidator(err))
		return
	}
	_, err := h.decisions.Resolve(c.Request.Context(), moderation.ResolveInput{
		QueueID:     req.QueueID,
		Verdict:     req.Decision,
		ReviewerID:  principal(c).UserID,
		Notes:       req.Notes,
		ActionTaken: req.ActionTaken,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": h.msg(c, "message.decision_recorded")})
}

type assignRequest struct {
	QueueID    string `json:"queue_id" binding:"required"`
	AssignedTo string `json:"assigned_to"`
}

// Assign handles POST /moderation/queue/assign.
func (h *Handler) Assign(c *gin.Context) {
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperr.FromValidator(err))
		return
	}
	if req.AssignedTo == "" {
		req.AssignedTo = principal(c).UserID
	}
	if err := h.queue.Assign(c.Request.Context(), req.QueueID, req.AssignedTo); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": h.msg(c, "message.entry_assigned")})
}
