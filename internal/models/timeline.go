package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SystemActor is the timeline actor name for engine-driven transitions.
const SystemActor = "System"

// TimelineEvent is one immutable entry in a complaint's audit ledger.
// Events are only ever appended, never edited, reordered or truncated.
type TimelineEvent struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	ComplaintID string    `gorm:"index" json:"-"`
	Seq         int       `json:"-"` // append order within the complaint
	Action      string    `json:"action"`
	Actor       string    `json:"actor"`
	Note        string    `json:"note,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

func (e *TimelineEvent) BeforeCreate(tx *gorm.DB) (err error) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	return
}
