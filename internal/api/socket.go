package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/coder/websocket"
)

// EventTypeNewMessage is the only event type the backend currently pushes.
const EventTypeNewMessage = "new_message"

// Event is one realtime push from the backend's websocket endpoint.
type Event struct {
	Type       string      `json:"type"`
	Data       ChatMessage `json:"data"`
	SenderName string      `json:"sender_name"`
}

// EventStream is a live connection to the backend's push channel for one
// user. It is not safe for concurrent Next calls.
type EventStream struct {
	conn   *websocket.Conn
	logger *slog.Logger
}

// Listen opens the realtime event stream for the given user. The bearer
// credential is read at dial time and attached to the handshake. Callers
// own the stream and must Close it.
func (c *Client) Listen(ctx context.Context, userID string) (*EventStream, error) {
	wsURL, err := c.websocketURL(userID)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Set("User-Agent", c.userAgent)

	if cred, ok := c.creds.Credential(); ok {
		header.Set("Authorization", "Bearer "+cred)
	}

	c.logger.Info("connecting event stream",
		slog.String("url", wsURL),
	)

	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: header,
	})
	if err != nil {
		return nil, fmt.Errorf("api: dialing event stream: %w", err)
	}

	return &EventStream{conn: conn, logger: c.logger}, nil
}

// Next blocks until the next event arrives or ctx is canceled.
// Non-text frames are skipped.
func (s *EventStream) Next(ctx context.Context) (*Event, error) {
	for {
		typ, data, err := s.conn.Read(ctx)
		if err != nil {
			return nil, fmt.Errorf("api: reading event stream: %w", err)
		}

		if typ != websocket.MessageText {
			continue
		}

		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			s.logger.Warn("skipping malformed event",
				slog.String("error", err.Error()),
			)

			continue
		}

		return &ev, nil
	}
}

// Close shuts the stream down cleanly.
func (s *EventStream) Close() error {
	return s.conn.Close(websocket.StatusNormalClosure, "client closing")
}

// websocketURL derives the push-channel URL from the configured server
// root. The websocket endpoint lives outside the /api prefix.
func (c *Client) websocketURL(userID string) (string, error) {
	u, err := url.Parse(c.serverURL)
	if err != nil {
		return "", fmt.Errorf("api: parsing server URL: %w", err)
	}

	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("api: unsupported scheme %q for event stream", u.Scheme)
	}

	u.Path = "/ws/" + userID

	return u.String(), nil
}
