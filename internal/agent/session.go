package agent

import (
	"context"
	"log/slog"
	"time"

	"salon-agent/internal/store"
	"salon-agent/internal/voice"
)

// Session runs one voice call end to end: create the call record, greet,
// answer utterances, and watch for the caller leaving.
type Session struct {
	Platform  voice.Platform
	Store     store.Store
	Responder *Responder

	Greeting     string
	PollInterval time.Duration
}

// Run blocks until the utterance stream ends or ctx is cancelled. The call
// record is closed by whichever fires first: the disconnect monitor
// (caller left) or the responder's escalated close.
func (s *Session) Run(ctx context.Context, room, sessionID, customerPhone string) error {
	call, err := s.Store.CreateCall(ctx, customerPhone)
	if err != nil {
		return err
	}
	slog.Info("call started", "call_id", call.ID, "room", room, "session", sessionID)

	utterances, err := s.Platform.Utterances(ctx, sessionID)
	if err != nil {
		return err
	}

	monitorCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		if err := MonitorDisconnects(monitorCtx, s.Platform, s.Store, room, call.ID, s.PollInterval); err != nil && monitorCtx.Err() == nil {
			slog.Error("disconnect monitor stopped", "call_id", call.ID, "error", err)
		}
	}()

	if s.Greeting != "" {
		if err := s.Platform.Speak(ctx, sessionID, s.Greeting); err != nil {
			slog.Error("greeting not spoken", "call_id", call.ID, "error", err)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case u, ok := <-utterances:
			if !ok {
				slog.Info("utterance stream ended", "call_id", call.ID)
				return nil
			}

			slog.Info("user said", "call_id", call.ID, "text", u.Text)

			reply, err := s.Responder.Respond(ctx, call, u.Text)
			if err != nil {
				slog.Error("respond failed", "call_id", call.ID, "error", err)
			}
			if reply == "" {
				continue
			}
			if err := s.Platform.Speak(ctx, sessionID, reply); err != nil {
				slog.Error("reply not spoken", "call_id", call.ID, "error", err)
			}
		}
	}
}
