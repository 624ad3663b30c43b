package models

import "time"

// LifecycleEvent is the wire form of one state-affecting action, fanned out
// to the live feed (Redis pub/sub), the notification queue (RabbitMQ) and the
// operator Telegram channel. It carries no submitter identity.
type LifecycleEvent struct {
	ComplaintID   string       `json:"complaint_id"`
	TicketID      string       `json:"ticket_id"`
	Action        string       `json:"action"`
	Actor         string       `json:"actor"`
	Status        Status       `json:"status"`
	RoutingLevel  RoutingLevel `json:"routing_level"`
	AutoEscalated bool         `json:"auto_escalated"`
	Note          string       `json:"note,omitempty"`
	Timestamp     time.Time    `json:"timestamp"`
}

// DashboardStats are the aggregate counters behind the dashboard cards.
type DashboardStats struct {
	Total       int64 `json:"total"`
	Pending     int64 `json:"pending"`
	UnderReview int64 `json:"underReview"`
	Escalated   int64 `json:"escalated"`
	Resolved    int64 `json:"resolved"`
	Dismissed   int64 `json:"dismissed"`
}
