package complaint

import "errors"

// Error taxonomy of the lifecycle engine. All are recoverable by the caller
// and surfaced synchronously; handlers map them onto HTTP status codes
// together with the complaint's current authoritative status.
var (
	ErrValidation        = errors.New("validation failed")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrComplaintClosed   = errors.New("complaint is in a terminal state")
	ErrAlreadyVoted      = errors.New("voter has already voted on this complaint")
	ErrVotingClosed      = errors.New("voting is closed for this complaint")
	ErrNotEligible       = errors.New("voter is not part of the eligible cohort")
	ErrNotAuthorized     = errors.New("actor role is not authorized for this action")
	ErrNotFound          = errors.New("complaint not found")
)
