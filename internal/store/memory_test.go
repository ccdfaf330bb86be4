package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"salon-agent/internal/models"
)

func TestResolveRequest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		answer  string
		wantErr error
	}{
		{name: "empty answer rejected", answer: "", wantErr: ErrEmptyAnswer},
		{name: "whitespace answer rejected", answer: "   ", wantErr: ErrEmptyAnswer},
		{name: "non-empty answer resolves", answer: "We open at 9am."},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			m := NewMemory()

			req, err := m.CreateRequest(ctx, "+2348001234567", "do you open sundays", "call-1", models.CategoryGeneral)
			if err != nil {
				t.Fatalf("CreateRequest: %v", err)
			}

			resolved, err := m.ResolveRequest(ctx, req.ID, tt.answer)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ResolveRequest error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				got, _ := m.GetRequest(ctx, req.ID)
				if got.Status != models.StatusPending {
					t.Fatalf("status changed on rejected resolve: %s", got.Status)
				}
				return
			}

			if resolved.Status != models.StatusResolved {
				t.Fatalf("status = %s, want resolved", resolved.Status)
			}
			if resolved.Answer != tt.answer {
				t.Fatalf("answer = %q, want %q", resolved.Answer, tt.answer)
			}
			if resolved.ResolvedAt == nil || resolved.ResolvedAt.Before(resolved.CreatedAt) {
				t.Fatalf("resolved_at %v not at or after created_at %v", resolved.ResolvedAt, resolved.CreatedAt)
			}
		})
	}
}

func TestRequestTerminalTransitions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := NewMemory()

	req, err := m.CreateRequest(ctx, "+15550001111", "refund my deposit", "call-2", models.CategoryDirectRequest)
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}

	if _, err := m.ResolveRequest(ctx, req.ID, "Deposit refunded."); err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	if _, err := m.MarkRequestUnresolved(ctx, req.ID, "changed my mind"); !errors.Is(err, ErrAlreadyFinal) {
		t.Fatalf("transition out of resolved: err = %v, want ErrAlreadyFinal", err)
	}
	if _, err := m.ResolveRequest(ctx, req.ID, "Again."); !errors.Is(err, ErrAlreadyFinal) {
		t.Fatalf("second resolve: err = %v, want ErrAlreadyFinal", err)
	}
}

func TestMarkRequestUnresolvedDefaultReason(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := NewMemory()

	req, _ := m.CreateRequest(ctx, "+15550001111", "question", "call-3", models.CategoryGeneral)
	got, err := m.MarkRequestUnresolved(ctx, req.ID, "")
	if err != nil {
		t.Fatalf("MarkRequestUnresolved: %v", err)
	}
	if got.UnresolvedReason != DefaultUnresolvedReason {
		t.Fatalf("reason = %q, want %q", got.UnresolvedReason, DefaultUnresolvedReason)
	}
	if got.Status != models.StatusUnresolved {
		t.Fatalf("status = %s, want unresolved", got.Status)
	}
}

func TestUpsertKnowledge(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := NewMemory()

	first, err := m.UpsertKnowledge(ctx, "Gift Cards", "Do you sell gift cards?", "Yes, in store.", "supervisor")
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	// Same key phrase, different case: must update, not duplicate.
	second, err := m.UpsertKnowledge(ctx, "gift cards", "Do you sell gift cards?", "Yes, in store and online.", "supervisor")
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	if first.ID != second.ID {
		t.Fatalf("upsert created a duplicate: %s vs %s", first.ID, second.ID)
	}

	entries, err := m.ListKnowledge(ctx)
	if err != nil {
		t.Fatalf("ListKnowledge: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("stored entries = %d, want 1", len(entries))
	}
	if entries[0].Answer != "Yes, in store and online." {
		t.Fatalf("answer = %q, want second answer", entries[0].Answer)
	}
}

func TestUpsertKnowledgeValidation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := NewMemory()

	tests := []struct {
		name                        string
		keyPhrase, question, answer string
	}{
		{name: "missing key phrase", question: "q", answer: "a"},
		{name: "missing question", keyPhrase: "k", answer: "a"},
		{name: "missing answer", keyPhrase: "k", question: "q"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := m.UpsertKnowledge(ctx, tt.keyPhrase, tt.question, tt.answer, "supervisor"); !errors.Is(err, ErrMissingFields) {
				t.Fatalf("err = %v, want ErrMissingFields", err)
			}
		})
	}
}

func TestSearchKnowledge(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := NewMemory()

	m.UpsertKnowledge(ctx, "gift cards", "Do you sell gift cards?", "Yes.", "supervisor")
	m.UpsertKnowledge(ctx, "wedding makeup", "Do you do weddings?", "Yes, book ahead.", "supervisor")

	got, err := m.SearchKnowledge(ctx, "can I buy a GIFT for my sister")
	if err != nil {
		t.Fatalf("SearchKnowledge: %v", err)
	}
	if len(got) != 1 || got[0].KeyPhrase != "gift cards" {
		t.Fatalf("search returned %+v, want the gift cards entry", got)
	}

	none, err := m.SearchKnowledge(ctx, "haircuts")
	if err != nil {
		t.Fatalf("SearchKnowledge: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("search returned %d entries, want 0", len(none))
	}

	// Filler words like "a" and "at" must not match a key phrase, and
	// "card" inside "cards" is not a whole-word hit.
	for _, query := range []string{
		"is there a wheelchair ramp at the entrance",
		"card",
	} {
		got, err := m.SearchKnowledge(ctx, query)
		if err != nil {
			t.Fatalf("SearchKnowledge(%q): %v", query, err)
		}
		if len(got) != 0 {
			t.Fatalf("SearchKnowledge(%q) = %+v, want no matches", query, got)
		}
	}
}

func TestCloseCallIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := NewMemory()

	start := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	clock := start
	m.SetClock(func() time.Time { return clock })

	call, err := m.CreateCall(ctx, "+2348001234567")
	if err != nil {
		t.Fatalf("CreateCall: %v", err)
	}

	clock = start.Add(95 * time.Second)
	closed, err := m.CloseCall(ctx, call.ID, true, "req-1")
	if err != nil {
		t.Fatalf("first close: %v", err)
	}
	if closed.DurationSeconds != 95 {
		t.Fatalf("duration = %d, want 95", closed.DurationSeconds)
	}
	if closed.AIHandled {
		t.Fatal("escalated close left ai_handled true")
	}
	if closed.RequestID != "req-1" {
		t.Fatalf("request_id = %q, want req-1", closed.RequestID)
	}

	// Second close, later and with different flags, must change nothing.
	clock = start.Add(10 * time.Minute)
	again, err := m.CloseCall(ctx, call.ID, false, "")
	if err != nil {
		t.Fatalf("second close: %v", err)
	}
	if again.DurationSeconds != 95 || again.AIHandled || again.RequestID != "req-1" {
		t.Fatalf("second close mutated record: %+v", again)
	}
	if !again.EndTime.Equal(*closed.EndTime) {
		t.Fatalf("end_time moved on second close: %v vs %v", again.EndTime, closed.EndTime)
	}
}

func TestStats(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("no calls", func(t *testing.T) {
		t.Parallel()
		m := NewMemory()
		stats, err := m.Stats(ctx)
		if err != nil {
			t.Fatalf("Stats: %v", err)
		}
		if stats.TotalCalls != 0 || stats.AIHandledPct != 0 {
			t.Fatalf("stats over empty store = %+v, want zeros", stats)
		}
	})

	t.Run("counts and percentage", func(t *testing.T) {
		t.Parallel()
		m := NewMemory()

		r1, _ := m.CreateRequest(ctx, "p", "q1", "c1", models.CategoryUrgency)
		r2, _ := m.CreateRequest(ctx, "p", "q2", "c2", models.CategoryGeneral)
		m.CreateRequest(ctx, "p", "q3", "c3", models.CategoryGeneral)
		m.ResolveRequest(ctx, r1.ID, "answered")
		m.MarkRequestUnresolved(ctx, r2.ID, "could not reach customer")

		c1, _ := m.CreateCall(ctx, "p")
		c2, _ := m.CreateCall(ctx, "p")
		c3, _ := m.CreateCall(ctx, "p")
		m.CloseCall(ctx, c1.ID, false, "")
		m.CloseCall(ctx, c2.ID, true, r1.ID)
		m.CloseCall(ctx, c3.ID, false, "")

		stats, err := m.Stats(ctx)
		if err != nil {
			t.Fatalf("Stats: %v", err)
		}
		if stats.PendingCount != 1 || stats.ResolvedCount != 1 || stats.UnresolvedCount != 1 {
			t.Fatalf("request counts = %+v", stats)
		}
		if stats.TotalCalls != 3 {
			t.Fatalf("total_calls = %d, want 3", stats.TotalCalls)
		}
		if stats.AIHandledPct != 66.7 {
			t.Fatalf("ai_handled = %v, want 66.7", stats.AIHandledPct)
		}
	})
}

func TestStatsConcurrentWithClose(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := NewMemory()

	calls := make([]string, 20)
	for i := range calls {
		c, err := m.CreateCall(ctx, "p")
		if err != nil {
			t.Fatalf("CreateCall: %v", err)
		}
		calls[i] = c.ID
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for _, id := range calls {
			if _, err := m.CloseCall(ctx, id, true, ""); err != nil {
				t.Errorf("CloseCall: %v", err)
			}
		}
	}()
	go func() {
		defer wg.Done()
		for range calls {
			if _, err := m.Stats(ctx); err != nil {
				t.Errorf("Stats: %v", err)
			}
		}
	}()
	wg.Wait()

	stats, err := m.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalCalls != len(calls) || stats.AIHandledPct != 0 {
		t.Fatalf("stats after all escalated closes = %+v", stats)
	}
}

func TestListOrdering(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := NewMemory()

	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	clock := base
	m.SetClock(func() time.Time { return clock })

	var ids []string
	for i := 0; i < 3; i++ {
		clock = base.Add(time.Duration(i) * time.Minute)
		req, _ := m.CreateRequest(ctx, "p", "q", "c", models.CategoryGeneral)
		ids = append(ids, req.ID)
		m.CreateCall(ctx, "p")
	}

	pending, err := m.ListPendingRequests(ctx)
	if err != nil {
		t.Fatalf("ListPendingRequests: %v", err)
	}
	if len(pending) != 3 {
		t.Fatalf("pending = %d, want 3", len(pending))
	}
	for i, req := range pending {
		if req.ID != ids[i] {
			t.Fatalf("pending not in creation order: got %s at %d", req.ID, i)
		}
	}

	calls, err := m.ListRecentCalls(ctx, 2)
	if err != nil {
		t.Fatalf("ListRecentCalls: %v", err)
	}
	if len(calls) != 2 {
		t.Fatalf("recent calls = %d, want 2", len(calls))
	}
	if calls[0].StartTime.Before(calls[1].StartTime) {
		t.Fatal("recent calls not most-recent-first")
	}
}

func TestGetRequestNotFound(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	if _, err := m.GetRequest(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if _, err := m.CloseCall(context.Background(), "missing", false, ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("close missing call err = %v, want ErrNotFound", err)
	}
}

func TestHasPendingRequestForCall(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := NewMemory()

	req, _ := m.CreateRequest(ctx, "p", "q", "call-9", models.CategoryGeneral)

	ok, id, err := m.HasPendingRequestForCall(ctx, "call-9")
	if err != nil || !ok || id != req.ID {
		t.Fatalf("pending lookup = (%v, %q, %v), want (true, %q, nil)", ok, id, err, req.ID)
	}

	m.ResolveRequest(ctx, req.ID, "done")
	ok, _, err = m.HasPendingRequestForCall(ctx, "call-9")
	if err != nil || ok {
		t.Fatalf("resolved request still reported pending")
	}
}
