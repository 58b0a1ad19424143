package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

// messageRequest mirrors the backend's message payload.
type messageRequest struct {
	ReceiverID string `json:"receiver_id"`
	Message    string `json:"message"`
}

// SendMessage sends a direct message. The backend also pushes it to the
// receiver's event stream when they are connected.
func (c *Client) SendMessage(ctx context.Context, receiverID, text string) (*ChatMessage, error) {
	c.logger.Info("sending message",
		slog.String("receiver_id", receiverID),
	)

	body, err := json.Marshal(messageRequest{ReceiverID: receiverID, Message: text})
	if err != nil {
		return nil, fmt.Errorf("api: encoding message request: %w", err)
	}

	resp, err := c.Do(ctx, http.MethodPost, "/chat/messages", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var msg ChatMessage
	if err := json.NewDecoder(resp.Body).Decode(&msg); err != nil {
		return nil, fmt.Errorf("api: decoding message response: %w", err)
	}

	return &msg, nil
}

// Conversation returns the message history between the authenticated user
// and the given user, oldest first.
func (c *Client) Conversation(ctx context.Context, userID string) ([]ChatMessage, error) {
	c.logger.Info("fetching conversation",
		slog.String("user_id", userID),
	)

	resp, err := c.Do(ctx, http.MethodGet, fmt.Sprintf("/chat/conversations/%s", userID), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var messages []ChatMessage
	if err := json.NewDecoder(resp.Body).Decode(&messages); err != nil {
		return nil, fmt.Errorf("api: decoding conversation response: %w", err)
	}

	c.logger.Debug("fetched conversation",
		slog.Int("count", len(messages)),
	)

	return messages, nil
}
