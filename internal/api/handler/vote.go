package handler

import (
	"net/http"

	"sunportal/backend/internal/models"

	"github.com/gin-gonic/gin"
)

type voteRequest struct {
	Choice models.VoteChoice `json:"choice" binding:"required"`
}

func (h *Handler) CastVote(c *gin.Context) {
	var req voteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "choice is required", "kind": "validation"})
		return
	}
	updated, err := h.Votes.CastVote(c.Request.Context(), currentUser(c), c.Param("id"), req.Choice)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.view(updated))
}
