package voice

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var _ Platform = (*Gateway)(nil)

// Gateway talks to the voice platform's REST API for room queries and to
// its websocket gateway for the per-session event stream.
type Gateway struct {
	apiURL     string
	gatewayURL string
	apiKey     string
	httpClient *http.Client
	dialer     *websocket.Dialer

	mu    sync.Mutex
	conns map[string]*websocket.Conn
}

// Option configures the Gateway.
type Option func(*options)

type options struct {
	apiURL     string
	gatewayURL string
	apiKey     string
	httpClient *http.Client
	dialer     *websocket.Dialer
}

// WithAPIURL sets the platform REST base URL.
func WithAPIURL(u string) Option {
	return func(o *options) { o.apiURL = u }
}

// WithGatewayURL sets the websocket gateway URL.
func WithGatewayURL(u string) Option {
	return func(o *options) { o.gatewayURL = u }
}

// WithAPIKey sets the bearer token for both surfaces.
func WithAPIKey(key string) Option {
	return func(o *options) { o.apiKey = key }
}

// WithHTTPClient overrides the REST client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// NewGateway creates a platform client.
func NewGateway(opts ...Option) (*Gateway, error) {
	cfg := &options{}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.apiURL == "" {
		return nil, fmt.Errorf("voice platform API URL is required")
	}
	if cfg.gatewayURL == "" {
		return nil, fmt.Errorf("voice gateway websocket URL is required")
	}

	httpClient := cfg.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	dialer := cfg.dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	return &Gateway{
		apiURL:     cfg.apiURL,
		gatewayURL: cfg.gatewayURL,
		apiKey:     cfg.apiKey,
		httpClient: httpClient,
		dialer:     dialer,
		conns:      make(map[string]*websocket.Conn),
	}, nil
}

type participantsResponse struct {
	Participants []struct {
		Identity string `json:"identity"`
	} `json:"participants"`
}

// ListParticipants queries the room roster.
func (g *Gateway) ListParticipants(ctx context.Context, room string) ([]string, error) {
	endpoint := fmt.Sprintf("%s/rooms/%s/participants", g.apiURL, url.PathEscape(room))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("list participants: status %d: %s", resp.StatusCode, body)
	}

	var parsed participantsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode participants: %w", err)
	}

	identities := make([]string, 0, len(parsed.Participants))
	for _, p := range parsed.Participants {
		identities = append(identities, p.Identity)
	}
	return identities, nil
}

// speakCommand is the outbound gateway frame asking the platform to speak.
type speakCommand struct {
	Type    string `json:"type"`
	Session string `json:"session"`
	Text    string `json:"text"`
}

// gatewayEvent is an inbound gateway frame. Only transcript events carry an
// utterance; everything else is lifecycle noise the agent ignores.
type gatewayEvent struct {
	Type      string    `json:"type"`
	Utterance Utterance `json:"utterance"`
}

// Speak sends a speak command over the session's gateway connection.
func (g *Gateway) Speak(ctx context.Context, session, text string) error {
	conn, err := g.sessionConn(ctx, session)
	if err != nil {
		return err
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
	}
	if err := conn.WriteJSON(speakCommand{Type: "speak", Session: session, Text: text}); err != nil {
		return fmt.Errorf("speak: %w", err)
	}
	return nil
}

// Utterances connects to the gateway for the session and streams its final
// transcripts. The read loop closes the channel on error, EOF or ctx
// cancellation.
func (g *Gateway) Utterances(ctx context.Context, session string) (<-chan Utterance, error) {
	conn, err := g.sessionConn(ctx, session)
	if err != nil {
		return nil, err
	}

	out := make(chan Utterance, 16)
	done := make(chan struct{})

	go func() {
		select {
		case <-ctx.Done():
			g.closeSession(session)
		case <-done:
		}
	}()

	go func() {
		defer close(out)
		defer close(done)
		defer g.closeSession(session)

		for {
			var event gatewayEvent
			if err := conn.ReadJSON(&event); err != nil {
				if ctx.Err() == nil {
					slog.Warn("gateway stream closed", "session", session, "error", err)
				}
				return
			}
			if event.Type != "transcript" || !event.Utterance.Final || event.Utterance.Text == "" {
				continue
			}

			select {
			case out <- event.Utterance:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// sessionConn returns the session's gateway connection, dialing on first
// use.
func (g *Gateway) sessionConn(ctx context.Context, session string) (*websocket.Conn, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if conn, ok := g.conns[session]; ok {
		return conn, nil
	}

	header := http.Header{}
	if g.apiKey != "" {
		header.Set("Authorization", "Bearer "+g.apiKey)
	}

	endpoint := fmt.Sprintf("%s?session=%s", g.gatewayURL, url.QueryEscape(session))
	conn, resp, err := g.dialer.DialContext(ctx, endpoint, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial gateway: %w (status %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial gateway: %w", err)
	}

	g.conns[session] = conn
	return conn, nil
}

func (g *Gateway) closeSession(session string) {
	g.mu.Lock()
	conn, ok := g.conns[session]
	delete(g.conns, session)
	g.mu.Unlock()

	if ok {
		_ = conn.Close()
	}
}

// Close tears down all gateway connections.
func (g *Gateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for session, conn := range g.conns {
		_ = conn.Close()
		delete(g.conns, session)
	}
	return nil
}
