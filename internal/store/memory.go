package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"salon-agent/internal/models"
)

var _ Store = (*Memory)(nil)

// Memory is an in-process Store used by tests and local development. It
// mirrors the Firestore implementation's semantics, including the
// idempotent call close and the terminal request transitions.
type Memory struct {
	mu        sync.RWMutex
	requests  map[string]*models.Request
	knowledge map[string]*models.KnowledgeEntry
	calls     map[string]*models.CallRecord

	// now is swappable so tests can control timestamps.
	now func() time.Time
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		requests:  make(map[string]*models.Request),
		knowledge: make(map[string]*models.KnowledgeEntry),
		calls:     make(map[string]*models.CallRecord),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the store's clock. Test use only.
func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *Memory) CreateRequest(_ context.Context, customerPhone, query, callID, category string) (*models.Request, error) {
	if category == "" {
		category = models.CategoryGeneral
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	req := &models.Request{
		ID:            uuid.NewString(),
		CustomerPhone: customerPhone,
		Query:         query,
		CallID:        callID,
		Status:        models.StatusPending,
		Category:      category,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	m.requests[req.ID] = req
	return copyRequest(req), nil
}

func (m *Memory) GetRequest(_ context.Context, id string) (*models.Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	req, ok := m.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyRequest(req), nil
}

func (m *Memory) ListPendingRequests(_ context.Context) ([]*models.Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var pending []*models.Request
	for _, req := range m.requests {
		if req.Status == models.StatusPending {
			pending = append(pending, copyRequest(req))
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})
	return pending, nil
}

func (m *Memory) ListRequestsByStatus(_ context.Context, status models.RequestStatus, limit int) ([]*models.Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []*models.Request
	for _, req := range m.requests {
		if req.Status == status {
			matched = append(matched, copyRequest(req))
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (m *Memory) ResolveRequest(_ context.Context, id, answer string) (*models.Request, error) {
	if strings.TrimSpace(answer) == "" {
		return nil, ErrEmptyAnswer
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	req, ok := m.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	if req.Status != models.StatusPending {
		return nil, ErrAlreadyFinal
	}

	now := m.now()
	req.Status = models.StatusResolved
	req.Answer = answer
	req.ResolvedAt = &now
	req.UpdatedAt = now
	return copyRequest(req), nil
}

func (m *Memory) MarkRequestUnresolved(_ context.Context, id, reason string) (*models.Request, error) {
	if strings.TrimSpace(reason) == "" {
		reason = DefaultUnresolvedReason
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	req, ok := m.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	if req.Status != models.StatusPending {
		return nil, ErrAlreadyFinal
	}

	req.Status = models.StatusUnresolved
	req.UnresolvedReason = reason
	req.UpdatedAt = m.now()
	return copyRequest(req), nil
}

func (m *Memory) HasPendingRequestForCall(_ context.Context, callID string) (bool, string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, req := range m.requests {
		if req.CallID == callID && req.Status == models.StatusPending {
			return true, req.ID, nil
		}
	}
	return false, "", nil
}

func (m *Memory) UpsertKnowledge(_ context.Context, keyPhrase, question, answer, createdBy string) (*models.KnowledgeEntry, error) {
	keyPhrase = NormalizeKeyPhrase(keyPhrase)
	if keyPhrase == "" || strings.TrimSpace(question) == "" || strings.TrimSpace(answer) == "" {
		return nil, ErrMissingFields
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for _, entry := range m.knowledge {
		if entry.KeyPhrase == keyPhrase {
			entry.Answer = answer
			entry.UpdatedAt = now
			return copyKnowledge(entry), nil
		}
	}

	entry := &models.KnowledgeEntry{
		ID:        uuid.NewString(),
		KeyPhrase: keyPhrase,
		Question:  question,
		Answer:    answer,
		CreatedAt: now,
		UpdatedAt: now,
		CreatedBy: createdBy,
	}
	m.knowledge[entry.ID] = entry
	return copyKnowledge(entry), nil
}

func (m *Memory) ListKnowledge(_ context.Context) ([]*models.KnowledgeEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := make([]*models.KnowledgeEntry, 0, len(m.knowledge))
	for _, entry := range m.knowledge {
		entries = append(entries, copyKnowledge(entry))
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
	return entries, nil
}

func (m *Memory) SearchKnowledge(ctx context.Context, query string) ([]*models.KnowledgeEntry, error) {
	entries, err := m.ListKnowledge(ctx)
	if err != nil {
		return nil, err
	}
	return FilterKnowledge(entries, query), nil
}

func (m *Memory) CreateCall(_ context.Context, customerPhone string) (*models.CallRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	call := &models.CallRecord{
		ID:            uuid.NewString(),
		CustomerPhone: customerPhone,
		StartTime:     m.now(),
		AIHandled:     true,
	}
	m.calls[call.ID] = call
	return copyCall(call), nil
}

func (m *Memory) GetCall(_ context.Context, id string) (*models.CallRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	call, ok := m.calls[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyCall(call), nil
}

func (m *Memory) CloseCall(_ context.Context, id string, escalated bool, requestID string) (*models.CallRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	call, ok := m.calls[id]
	if !ok {
		return nil, ErrNotFound
	}
	if call.Closed() {
		return copyCall(call), nil
	}

	now := m.now()
	duration := int(now.Sub(call.StartTime).Seconds())
	if duration < 0 {
		duration = 0
	}

	call.EndTime = &now
	call.DurationSeconds = duration
	call.AIHandled = !escalated
	if requestID != "" {
		call.RequestID = requestID
	}
	return copyCall(call), nil
}

func (m *Memory) ListRecentCalls(_ context.Context, limit int) ([]*models.CallRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	calls := make([]*models.CallRecord, 0, len(m.calls))
	for _, call := range m.calls {
		calls = append(calls, copyCall(call))
	}
	sort.Slice(calls, func(i, j int) bool {
		return calls[i].StartTime.After(calls[j].StartTime)
	})
	if limit > 0 && len(calls) > limit {
		calls = calls[:limit]
	}
	return calls, nil
}

func (m *Memory) Stats(ctx context.Context) (*models.Stats, error) {
	m.mu.RLock()
	var pending, resolved, unresolved int
	for _, req := range m.requests {
		switch req.Status {
		case models.StatusPending:
			pending++
		case models.StatusResolved:
			resolved++
		case models.StatusUnresolved:
			unresolved++
		}
	}
	// Copies, so summarize never reads a record a concurrent CloseCall
	// is mutating.
	calls := make([]*models.CallRecord, 0, len(m.calls))
	for _, call := range m.calls {
		calls = append(calls, copyCall(call))
	}
	m.mu.RUnlock()

	return summarize(pending, resolved, unresolved, calls), nil
}

func copyRequest(req *models.Request) *models.Request {
	out := *req
	if req.ResolvedAt != nil {
		t := *req.ResolvedAt
		out.ResolvedAt = &t
	}
	return &out
}

func copyKnowledge(entry *models.KnowledgeEntry) *models.KnowledgeEntry {
	out := *entry
	return &out
}

func copyCall(call *models.CallRecord) *models.CallRecord {
	out := *call
	if call.EndTime != nil {
		t := *call.EndTime
		out.EndTime = &t
	}
	return &out
}
