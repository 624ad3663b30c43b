package config

import "time"

const (
	// Submission
	MinDescriptionWords = 20
	TicketPrefix        = "SUN"

	// Auto-escalation windows per routing level. Director-level complaints
	// carry no timer: they already sit at the highest tier.
	HoDEscalationWindow       = 7 * 24 * time.Hour
	PrincipalEscalationWindow = 15 * 24 * time.Hour

	// Community voting
	VotingWindow     = 7 * 24 * time.Hour
	SupportThreshold = 0.60

	// Escalation sweep
	SweepInterval    = time.Minute
	SweepMaxRetries  = 3
	SweepRetryWindow = 30 * time.Second

	// Auth
	TokenTTL    = 72 * time.Hour
	TokenIssuer = "sunportal-api"
)
