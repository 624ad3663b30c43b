package handler

import (
	"net/http"

	"sunportal/backend/internal/models"

	"github.com/gin-gonic/gin"
)

func (h *Handler) OpenInvestigation(c *gin.Context) {
	updated, err := h.Complaints.OpenInvestigation(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.view(updated))
}

func (h *Handler) OpenCommunityReview(c *gin.Context) {
	updated, err := h.Complaints.OpenCommunityReview(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.view(updated))
}

type responseRequest struct {
	Response string `json:"response" binding:"required"`
	Resolve  bool   `json:"resolve"`
}

func (h *Handler) SubmitFacultyResponse(c *gin.Context) {
	var req responseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "response text is required", "kind": "validation"})
		return
	}
	updated, err := h.Complaints.SubmitFacultyResponse(c.Request.Context(), currentUser(c), c.Param("id"), req.Response, req.Resolve)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.view(updated))
}

type decisionRequest struct {
	Decision models.DecisionKind `json:"decision" binding:"required"`
	Notes    string              `json:"notes" binding:"required"`
}

func (h *Handler) RecordCommitteeDecision(c *gin.Context) {
	var req decisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "decision and notes are required", "kind": "validation"})
		return
	}
	updated, err := h.Complaints.RecordCommitteeDecision(c.Request.Context(), currentUser(c), c.Param("id"), req.Decision, req.Notes)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.view(updated))
}
