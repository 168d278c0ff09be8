package handler

import (
	"net/http"

	"familyeats/backend/internal/trust"

	"github.com/gin-gonic/gin"
)

// GetTrustScore handles GET /moderation/trust-score/:userId. Only the user
// sees the breakdown; everyone else gets the summary.
func (h *Handler) GetTrustScore(c *gin.Context) {
	score, err := h.trust.Get(c.Request.Context(), c.Param("userId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trust_score": trust.View(score, principal(c).UserID)})
}

// RecomputeTrustScore handles PUT /moderation/trust-score/:userId.
func (h *Handler) RecomputeTrustScore(c *gin.Context) {
	score, err := h.trust.Recompute(c.Request.Context(), c.Param("userId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": h.msg(c, "message.trust_recomputed"), "trust_score": score})
}
