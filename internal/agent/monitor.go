package agent

import (
	"context"
	"log/slog"
	"time"

	"salon-agent/internal/models"
)

// DefaultPollInterval is how often the disconnect monitor compares the
// room roster.
const DefaultPollInterval = 2 * time.Second

// callCloser is the slice of store.Store the monitor needs.
type callCloser interface {
	CloseCall(ctx context.Context, id string, escalated bool, requestID string) (*models.CallRecord, error)
}

// participantLister is the slice of voice.Platform the monitor needs.
type participantLister interface {
	ListParticipants(ctx context.Context, room string) ([]string, error)
}

// MonitorDisconnects polls the room roster until a previously-present
// identity is absent, then closes the call (escalated=false) and returns.
// It runs for the lifetime of one call and normally terminates itself on
// the caller's departure; ctx cancellation covers abnormal teardown. The
// close is idempotent at the store, so racing the agent's own escalated
// close is harmless.
func MonitorDisconnects(ctx context.Context, platform participantLister, closer callCloser, room, callID string, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	prev, err := identitySet(ctx, platform, room)
	if err != nil {
		slog.Warn("initial participant list failed", "room", room, "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		current, err := identitySet(ctx, platform, room)
		if err != nil {
			slog.Warn("participant list failed, retrying next tick", "room", room, "error", err)
			continue
		}

		departed := false
		for identity := range prev {
			if _, still := current[identity]; !still {
				slog.Info("participant disconnected", "room", room, "identity", identity)
				departed = true
			}
		}

		if departed {
			if _, err := closer.CloseCall(ctx, callID, false, ""); err != nil {
				return err
			}
			slog.Info("call closed on disconnect", "room", room, "call_id", callID)
			return nil
		}

		prev = current
	}
}

func identitySet(ctx context.Context, platform participantLister, room string) (map[string]struct{}, error) {
	identities, err := platform.ListParticipants(ctx, room)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(identities))
	for _, id := range identities {
		set[id] = struct{}{}
	}
	return set, nil
}
