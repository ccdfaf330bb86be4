package agent

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"salon-agent/internal/store"
)

// scriptedRoster returns each participant list in turn, repeating the last
// one once the script runs out.
type scriptedRoster struct {
	mu      sync.Mutex
	rosters [][]string
	errs    []error
	calls   int
}

func (s *scriptedRoster) ListParticipants(context.Context, string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	if i >= len(s.rosters) {
		i = len(s.rosters) - 1
	}
	return s.rosters[i], nil
}

func TestMonitorClosesCallOnDeparture(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := store.NewMemory()
	call, _ := m.CreateCall(ctx, "+15550001111")

	roster := &scriptedRoster{rosters: [][]string{
		{"caller-1", "agent"},
		{"caller-1", "agent"},
		{"agent"},
	}}

	if err := MonitorDisconnects(ctx, roster, m, "room-1", call.ID, 5*time.Millisecond); err != nil {
		t.Fatalf("MonitorDisconnects: %v", err)
	}

	got, err := m.GetCall(ctx, call.ID)
	if err != nil {
		t.Fatalf("GetCall: %v", err)
	}
	if !got.Closed() {
		t.Fatal("call not closed after departure")
	}
	if !got.AIHandled {
		t.Fatal("natural disconnect marked escalated")
	}
}

func TestMonitorRetriesAfterListError(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := store.NewMemory()
	call, _ := m.CreateCall(ctx, "+15550001111")

	roster := &scriptedRoster{
		rosters: [][]string{
			{"caller-1"},
			nil, // consumed by the errored poll
			{},
		},
		errs: []error{nil, errors.New("platform hiccup"), nil},
	}

	if err := MonitorDisconnects(ctx, roster, m, "room-1", call.ID, 5*time.Millisecond); err != nil {
		t.Fatalf("MonitorDisconnects: %v", err)
	}

	got, _ := m.GetCall(ctx, call.ID)
	if !got.Closed() {
		t.Fatal("call not closed after error recovery")
	}
}

func TestMonitorStopsOnCancel(t *testing.T) {
	t.Parallel()

	m := store.NewMemory()
	call, _ := m.CreateCall(context.Background(), "+15550001111")

	// Roster never changes, so only cancellation can stop the monitor.
	roster := &scriptedRoster{rosters: [][]string{{"caller-1"}}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- MonitorDisconnects(ctx, roster, m, "room-1", call.ID, 5*time.Millisecond)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop after cancel")
	}

	got, _ := m.GetCall(context.Background(), call.ID)
	if got.Closed() {
		t.Fatal("cancelled monitor closed the call")
	}
}

func TestMonitorRacesAgentCloseSafely(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := store.NewMemory()
	call, _ := m.CreateCall(ctx, "+15550001111")

	// The agent closes first with an escalation; the monitor's later
	// close must not overwrite it.
	if _, err := m.CloseCall(ctx, call.ID, true, "req-7"); err != nil {
		t.Fatalf("agent close: %v", err)
	}

	roster := &scriptedRoster{rosters: [][]string{
		{"caller-1"},
		{},
	}}
	if err := MonitorDisconnects(ctx, roster, m, "room-1", call.ID, 5*time.Millisecond); err != nil {
		t.Fatalf("MonitorDisconnects: %v", err)
	}

	got, _ := m.GetCall(ctx, call.ID)
	if got.AIHandled || got.RequestID != "req-7" {
		t.Fatalf("monitor overwrote escalated close: %+v", got)
	}
}
