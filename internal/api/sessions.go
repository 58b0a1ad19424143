package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

// BookSession books a mentorship session. The backend assigns the student
// side from the credential and requires the student role; mentors trying
// to book get ErrForbidden back.
func (c *Client) BookSession(ctx context.Context, input BookingInput) (*MentorshipSession, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	c.logger.Info("booking mentorship session",
		slog.String("mentor_id", input.MentorID),
	)

	body, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("api: encoding booking request: %w", err)
	}

	resp, err := c.Do(ctx, http.MethodPost, "/mentorship/sessions", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var session MentorshipSession
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, fmt.Errorf("api: decoding booking response: %w", err)
	}

	c.logger.Debug("session booked",
		slog.String("session_id", session.ID),
	)

	return &session, nil
}

// Sessions lists the mentorship sessions the authenticated user takes part
// in, on either side of the booking.
func (c *Client) Sessions(ctx context.Context) ([]MentorshipSession, error) {
	c.logger.Info("listing mentorship sessions")

	resp, err := c.Do(ctx, http.MethodGet, "/mentorship/sessions", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var sessions []MentorshipSession
	if err := json.NewDecoder(resp.Body).Decode(&sessions); err != nil {
		return nil, fmt.Errorf("api: decoding sessions response: %w", err)
	}

	c.logger.Debug("listed sessions",
		slog.Int("count", len(sessions)),
	)

	return sessions, nil
}
