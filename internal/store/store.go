// Package store provides access to the three document collections the
// service owns: escalation requests, the knowledge base, and call history.
// Records are disposable views; storage is authoritative.
package store

import (
	"context"
	"errors"

	"salon-agent/internal/models"
)

var (
	// ErrNotFound is returned when no document exists for the given id.
	ErrNotFound = errors.New("not found")
	// ErrEmptyAnswer is returned when resolving a request without answer text.
	ErrEmptyAnswer = errors.New("answer text is required")
	// ErrMissingFields is returned when a knowledge entry is missing a
	// required field.
	ErrMissingFields = errors.New("key phrase, question and answer are required")
	// ErrAlreadyFinal is returned when resolving or rejecting a request
	// that has already left the pending state.
	ErrAlreadyFinal = errors.New("request is no longer pending")
)

// DefaultUnresolvedReason is recorded when a request is marked unresolved
// without an explicit reason, e.g. when the supervisor flow times out.
const DefaultUnresolvedReason = "Timed out"

// Store is the document-store contract shared by the agent and the
// supervisor console. Individual operations are atomic per record; there
// are no cross-record transactions.
type Store interface {
	// CreateRequest opens a pending escalation ticket. Category must be
	// non-empty.
	CreateRequest(ctx context.Context, customerPhone, query, callID, category string) (*models.Request, error)
	GetRequest(ctx context.Context, id string) (*models.Request, error)
	// ListPendingRequests returns pending requests ordered by creation
	// time ascending.
	ListPendingRequests(ctx context.Context) ([]*models.Request, error)
	// ListRequestsByStatus returns up to limit requests with the given
	// status, newest first. limit <= 0 means no bound.
	ListRequestsByStatus(ctx context.Context, status models.RequestStatus, limit int) ([]*models.Request, error)
	// ResolveRequest transitions a pending request to resolved. The answer
	// must be non-empty or ErrEmptyAnswer is returned and nothing is
	// written.
	ResolveRequest(ctx context.Context, id, answer string) (*models.Request, error)
	// MarkRequestUnresolved transitions a pending request to unresolved.
	// An empty reason defaults to DefaultUnresolvedReason.
	MarkRequestUnresolved(ctx context.Context, id, reason string) (*models.Request, error)
	// HasPendingRequestForCall reports whether the call already has a
	// pending request, returning its id when it does.
	HasPendingRequestForCall(ctx context.Context, callID string) (bool, string, error)

	// UpsertKnowledge creates a knowledge entry, or updates the answer of
	// the existing entry with the same key phrase. All three text fields
	// are required.
	UpsertKnowledge(ctx context.Context, keyPhrase, question, answer, createdBy string) (*models.KnowledgeEntry, error)
	ListKnowledge(ctx context.Context) ([]*models.KnowledgeEntry, error)
	// SearchKnowledge returns entries whose key phrase shares a whole
	// word with the query, case-insensitive. Filler words are ignored.
	SearchKnowledge(ctx context.Context, query string) ([]*models.KnowledgeEntry, error)

	CreateCall(ctx context.Context, customerPhone string) (*models.CallRecord, error)
	GetCall(ctx context.Context, id string) (*models.CallRecord, error)
	// CloseCall sets end time, duration and the ai_handled flag in one
	// conditional write. Closing an already-closed call is a no-op that
	// returns the record as first closed.
	CloseCall(ctx context.Context, id string, escalated bool, requestID string) (*models.CallRecord, error)
	// ListRecentCalls returns up to limit calls, most recent first.
	ListRecentCalls(ctx context.Context, limit int) ([]*models.CallRecord, error)

	// Stats computes the dashboard summary counters.
	Stats(ctx context.Context) (*models.Stats, error)
}

// Collection names in the backing document database.
const (
	CollectionRequests    = "requests"
	CollectionKnowledge   = "knowledge_base"
	CollectionCallHistory = "call_history"
)
