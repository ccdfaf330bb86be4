// Package voice is the seam to the hosted voice-agent platform. The
// platform owns audio capture, speech-to-text, text-to-speech and room
// lifecycle; this package only moves transcripts, spoken replies and
// participant identities across that boundary.
package voice

import "context"

// Utterance is one transcribed line of caller speech delivered by the
// platform.
type Utterance struct {
	Session string `json:"session"`
	Room    string `json:"room"`
	Text    string `json:"text"`
	Final   bool   `json:"final"`
}

// Platform is everything the agent needs from the voice provider. The
// platform pushes a stream of utterances; the agent subscribes, no
// subclassing involved.
type Platform interface {
	// ListParticipants returns the identities currently in the room.
	ListParticipants(ctx context.Context, room string) ([]string, error)
	// Speak asks the platform to synthesize and play text into the
	// session.
	Speak(ctx context.Context, session, text string) error
	// Utterances subscribes to the session's transcribed speech. The
	// channel closes when the session ends or ctx is cancelled.
	Utterances(ctx context.Context, session string) (<-chan Utterance, error)
}
