package handler

import (
	"net/http"

	"familyeats/backend/internal/apperr"
	"familyeats/backend/internal/report"

	"github.com/gin-gonic/gin"
)

type reportsQuery struct {
	Status      string `form:"status"`
	ContentType string `form:"content_type"`
	Limit       int    `form:"limit"`
}

// ListReports handles GET /moderation/reports.
func (h *Handler) ListReports(c *gin.Context) {
	var q reportsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.fail(c, apperr.FromValidator(err))
		return
	}
	reports, err := h.reports.List(c.Request.Context(), report.ListInput{
		Status:      q.Status,
		ContentType: q.ContentType,
		Limit:       q.Limit,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports})
}

type submitReportRequest struct {
	ContentType string `json:"content_type" binding:"required"`
	ContentID   string `json:"content_id" binding:"required"`
	Category    string `json:"category" binding:"required"`
	Reason      string `json:"reason"`
}

// SubmitReport handles POST /moderation/reports on behalf of the caller.
func (h *Handler) SubmitReport(c *gin.Context) {
	var req submitReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperr.FromValidator(err))
		return
	}
	r, err := h.reports.Submit(c.Request.Context(), report.SubmitInput{
		ReporterID:  principal(c).UserID,
		ContentType: req.ContentType,
		ContentID:   req.ContentID,
		Category:    req.Category,
		Reason:      req.Reason,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": h.msg(c, "message.report_submitted"), "report_id": r.ID})
}

type updateReportRequest struct {
	ReportID   string `json:"report_id" binding:"required"`
	Status     string `json:"status" binding:"required"`
	AdminNotes string `json:"admin_notes"`
}

// UpdateReport handles PUT /moderation/reports.
func (h *Handler) UpdateReport(c *gin.Context) {
	var req updateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperr.FromValidator(err))
		return
	}
	_, err := h.reports.UpdateStatus(c.Request.Context(), report.UpdateInput{
		ReportID:   req.ReportID,
		Status:     req.Status,
		AdminNotes: req.AdminNotes,
		ReviewerID: principal(c).UserID,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": h.msg(c, "message.report_updated")})
}
