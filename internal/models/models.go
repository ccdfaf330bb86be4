package models

import "time"

type RequestStatus string

const (
	StatusPending    RequestStatus = "pending"
	StatusResolved   RequestStatus = "resolved"
	StatusUnresolved RequestStatus = "unresolved"
)

// Escalation categories assigned by the phrase classifier. CategoryGeneral
// is used when the agent simply has no answer.
const (
	CategoryDirectRequest = "direct_request"
	CategoryUrgency       = "urgency"
	CategoryComplexity    = "complexity"
	CategoryFrustration   = "multiple_frustration_indicators"
	CategoryGeneral       = "general"
)

// Request is one escalation ticket awaiting supervisor attention. Status
// moves from pending to exactly one of resolved or unresolved and never
// back.
type Request struct {
	ID               string        `firestore:"-" json:"id"`
	CustomerPhone    string        `firestore:"customer_phone" json:"customer_phone"`
	Query            string        `firestore:"query" json:"query"`
	CallID           string        `firestore:"call_id" json:"call_id"`
	Status           RequestStatus `firestore:"status" json:"status"`
	Category         string        `firestore:"category" json:"category"`
	CreatedAt        time.Time     `firestore:"created_at" json:"created_at"`
	UpdatedAt        time.Time     `firestore:"updated_at" json:"updated_at"`
	ResolvedAt       *time.Time    `firestore:"resolved_at,omitempty" json:"resolved_at,omitempty"`
	Answer           string        `firestore:"answer,omitempty" json:"answer,omitempty"`
	UnresolvedReason string        `firestore:"unresolved_reason,omitempty" json:"unresolved_reason,omitempty"`
}

// CallRecord is the metadata for one voice session. EndTime and
// DurationSeconds are set together, exactly once, when the call closes.
type CallRecord struct {
	ID              string     `firestore:"-" json:"id"`
	CustomerPhone   string     `firestore:"customer_phone" json:"customer_phone"`
	StartTime       time.Time  `firestore:"start_time" json:"start_time"`
	EndTime         *time.Time `firestore:"end_time,omitempty" json:"end_time,omitempty"`
	DurationSeconds int        `firestore:"duration_seconds" json:"duration_seconds"`
	AIHandled       bool       `firestore:"ai_handled" json:"ai_handled"`
	RequestID       string     `firestore:"request_id,omitempty" json:"request_id,omitempty"`
	RecordingURL    string     `firestore:"recording_url,omitempty" json:"recording_url,omitempty"`
}

// Closed reports whether the call has already been closed.
func (c *CallRecord) Closed() bool {
	return c.EndTime != nil
}

// KnowledgeEntry is a supervisor-curated answer keyed by a case-insensitive
// key phrase. Key phrases are unique; creating a duplicate updates the
// existing entry instead.
type KnowledgeEntry struct {
	ID        string    `firestore:"-" json:"id"`
	KeyPhrase string    `firestore:"key_phrase" json:"key_phrase"`
	Question  string    `firestore:"question" json:"question"`
	Answer    string    `firestore:"answer" json:"answer"`
	CreatedAt time.Time `firestore:"created_at" json:"created_at"`
	UpdatedAt time.Time `firestore:"updated_at" json:"updated_at"`
	CreatedBy string    `firestore:"created_by" json:"created_by"`
}

// Stats is the dashboard summary. AIHandledPct is a percentage rounded to
// one decimal place, 0 when no calls exist.
type Stats struct {
	PendingCount    int     `json:"pending_count"`
	ResolvedCount   int     `json:"resolved_count"`
	UnresolvedCount int     `json:"unresolved_count"`
	AIHandledPct    float64 `json:"ai_handled"`
	TotalCalls      int     `json:"total_calls"`
}
