package agent

import (
	"context"
	"sync"
	"testing"
	"time"

	"salon-agent/internal/store"
	"salon-agent/internal/voice"
)

// fakePlatform feeds scripted utterances and records everything spoken.
type fakePlatform struct {
	utterances chan voice.Utterance

	mu     sync.Mutex
	spoken []string
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{utterances: make(chan voice.Utterance, 8)}
}

func (f *fakePlatform) ListParticipants(context.Context, string) ([]string, error) {
	return []string{"agent", "caller"}, nil
}

func (f *fakePlatform) Speak(_ context.Context, _ string, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spoken = append(f.spoken, text)
	return nil
}

func (f *fakePlatform) Utterances(context.Context, string) (<-chan voice.Utterance, error) {
	return f.utterances, nil
}

func (f *fakePlatform) said(t *testing.T) []string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.spoken...)
}

func TestSessionSpeaksGreetingAndReplies(t *testing.T) {
	t.Parallel()

	m := store.NewMemory()
	platform := newFakePlatform()
	s := &Session{
		Platform:     platform,
		Store:        m,
		Responder:    newResponder(t, m),
		Greeting:     "Welcome to Veluxe Beauty Lounge.",
		PollInterval: 10 * time.Millisecond,
	}

	platform.utterances <- voice.Utterance{Session: "sess-1", Text: "What are your hours?", Final: true}
	close(platform.utterances)

	if err := s.Run(context.Background(), "room-1", "sess-1", "+15550100"); err != nil {
		t.Fatalf("Run: %v", err)
	}

	spoken := platform.said(t)
	if len(spoken) != 2 {
		t.Fatalf("spoken = %v, want greeting and one reply", spoken)
	}
	if spoken[0] != "Welcome to Veluxe Beauty Lounge." {
		t.Errorf("greeting = %q", spoken[0])
	}
	if spoken[1] != "Our hours are 9am to 7pm Monday through Saturday." {
		t.Errorf("reply = %q", spoken[1])
	}

	calls, err := m.ListRecentCalls(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(calls))
	}
	if calls[0].CustomerPhone != "+15550100" {
		t.Errorf("phone = %q", calls[0].CustomerPhone)
	}
}

func TestSessionEndsWhenStreamCloses(t *testing.T) {
	t.Parallel()

	m := store.NewMemory()
	platform := newFakePlatform()
	s := &Session{
		Platform:     platform,
		Store:        m,
		Responder:    newResponder(t, m),
		PollInterval: 10 * time.Millisecond,
	}

	close(platform.utterances)

	done := make(chan error, 1)
	go func() {
		done <- s.Run(context.Background(), "room-1", "sess-1", "+15550100")
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after stream close")
	}
}

func TestSessionStopsOnCancel(t *testing.T) {
	t.Parallel()

	m := store.NewMemory()
	platform := newFakePlatform()
	s := &Session{
		Platform:     platform,
		Store:        m,
		Responder:    newResponder(t, m),
		PollInterval: 10 * time.Millisecond,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx, "room-1", "sess-1", "+15550100")
	}()

	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("Run = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
