package models

import "time"

// VoteChoice is a community-review ballot option.
type VoteChoice string

const (
	VoteSupport VoteChoice = "support"
	VoteReject  VoteChoice = "reject"
)

func (v VoteChoice) Valid() bool {
	return v == VoteSupport || v == VoteReject
}

// Vote is the internal dedup record for one counted ballot. It is never
// exposed through a read path; the unique index is the last line of defense
// against double counting.
type Vote struct {
	ID          uint       `gorm:"primaryKey"`
	ComplaintID string     `gorm:"uniqueIndex:idx_votes_complaint_voter"`
	VoterID     string     `gorm:"uniqueIndex:idx_votes_complaint_voter"`
	Choice      VoteChoice
	CreatedAt   time.Time
}
