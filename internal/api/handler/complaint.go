package handler

import (
	"net/http"

	"sunportal/backend/internal/complaint"
	"sunportal/backend/internal/models"
	"sunportal/backend/internal/storage"
	"sunportal/backend/internal/voting"

	"github.com/gin-gonic/gin"
)

// complaintView decorates a complaint with the derived vote metrics the
// dashboard renders next to the tally.
type complaintView struct {
	*models.Complaint
	SupportRatio       float64 `json:"supportRatio"`
	Participation      float64 `json:"participation"`
	EscalationEligible bool    `json:"escalationEligible"`
}

func (h *Handler) view(c *models.Complaint) complaintView {
	return complaintView{
		Complaint:          c,
		SupportRatio:       voting.SupportRatio(c),
		Participation:      voting.Participation(c),
		EscalationEligible: h.Votes.Eligible(c),
	}
}

func (h *Handler) SubmitComplaint(c *gin.Context) {
	var in complaint.SubmitInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body", "kind": "validation"})
		return
	}
	created, err := h.Complaints.Submit(c.Request.Context(), currentUser(c), in)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, h.view(created))
}

func (h *Handler) ListComplaints(c *gin.Context) {
	f := storage.ComplaintFilter{
		Status:     models.Status(c.Query("status")),
		Category:   models.ComplaintCategory(c.Query("category")),
		Department: c.Query("department"),
	}
	list, err := h.Complaints.List(c.Request.Context(), f)
	if err != nil {
		h.renderError(c, err)
		return
	}
	views := make([]complaintView, 0, len(list))
	for i := range list {
		views = append(views, h.view(&list[i]))
	}
	c.JSON(http.StatusOK, gin.H{"complaints": views})
}

func (h *Handler) GetComplaint(c *gin.Context) {
	got, err := h.Complaints.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.view(got))
}

// GetComplaintByTicket is the public status-check path for submitters
// holding only their ticket number.
func (h *Handler) GetComplaintByTicket(c *gin.Context) {
	got, err := h.Complaints.GetByTicket(c.Request.Context(), c.Param("ticketId"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.view(got))
}

func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.Complaints.Stats(c.Request.Context())
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) Recommendations(c *gin.Context) {
	if h.Recommender == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no screening backend configured", "kind": "unavailable"})
		return
	}
	got, err := h.Complaints.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	recs, err := h.Recommender.Recommend(c.Request.Context(), got)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recommendations": recs})
}
