// Package handler is the HTTP surface of the portal: gin handlers, JWT
// auth and the error-to-status mapping for the engine's taxonomy.
package handler

import (
	"errors"
	"net/http"

	"sunportal/backend/internal/ai"
	"sunportal/backend/internal/complaint"
	"sunportal/backend/internal/livefeed"
	"sunportal/backend/internal/storage"
	"sunportal/backend/internal/voting"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	Complaints  *complaint.Service
	Votes       *voting.Service
	Storage     storage.Storage
	Hub         *livefeed.Hub
	Recommender *ai.Client
	JWTSecret   []byte
	Logger      *zap.Logger
}

func NewHandler(
	complaints *complaint.Service,
	votes *voting.Service,
	st storage.Storage,
	hub *livefeed.Hub,
	recommender *ai.Client,
	jwtSecret []byte,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Complaints:  complaints,
		Votes:       votes,
		Storage:     st,
		Hub:         hub,
		Recommender: recommender,
		JWTSecret:   jwtSecret,
		Logger:      logger,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api")
	api.POST("/auth/token", h.IssueToken)

	authed := api.Group("", h.AuthMiddleware())
	authed.POST("/complaints", h.SubmitComplaint)
	authed.GET("/complaints", h.ListComplaints)
	authed.GET("/complaints/:id", h.GetComplaint)
	authed.GET("/tickets/:ticketId", h.GetComplaintByTicket)
	authed.GET("/stats", h.Stats)

	authed.POST("/complaints/:id/votes", h.CastVote)
	authed.POST("/complaints/:id/investigate", h.OpenInvestigation)
	authed.POST("/complaints/:id/community-review", h.OpenCommunityReview)
	authed.POST("/complaints/:id/response", h.SubmitFacultyResponse)
	authed.POST("/complaints/:id/decision", h.RecordCommitteeDecision)
	authed.GET("/complaints/:id/recommendations", h.Recommendations)

	r.GET("/ws", h.ServeLiveFeed)
}

// renderError maps the engine's error taxonomy onto HTTP statuses. Conflict
// responses carry the authoritative current state in the message so clients
// can refresh their view.
func (h *Handler) renderError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	kind := "internal"
	switch {
	case errors.Is(err, complaint.ErrValidation):
		status, kind = http.StatusBadRequest, "validation"
	case errors.Is(err, complaint.ErrNotAuthorized):
		status, kind = http.StatusForbidden, "forbidden"
	case errors.Is(err, complaint.ErrNotFound):
		status, kind = http.StatusNotFound, "not_found"
	case errors.Is(err, complaint.ErrInvalidTransition),
		errors.Is(err, complaint.ErrComplaintClosed),
		errors.Is(err, complaint.ErrAlreadyVoted),
		errors.Is(err, complaint.ErrVotingClosed),
		errors.Is(err, complaint.ErrNotEligible):
		status, kind = http.StatusConflict, "conflict"
	default:
		h.Logger.Error("request failed", zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error(), "kind": kind})
}
