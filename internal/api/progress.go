package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
)

// WriteProgress upserts the completion percentage for one course. The
// percentage travels as a query parameter; the backend keyes the record to
// the authenticated user. The write is a plain last-value upsert, which is
// why callers must only ever send monotonically non-decreasing values.
func (c *Client) WriteProgress(ctx context.Context, courseID string, percentage float64) error {
	q := url.Values{}
	q.Set("completion_percentage", strconv.FormatFloat(percentage, 'f', -1, 64))

	path := fmt.Sprintf("/progress/%s?%s", courseID, q.Encode())

	c.logger.Debug("writing progress",
		slog.String("course_id", courseID),
		slog.Float64("percentage", percentage),
	)

	resp, err := c.Do(ctx, http.MethodPost, path, nil)
	if err != nil {
		return err
	}
	resp.Body.Close()

	return nil
}

// ListProgress returns every progress record belonging to the
// authenticated user.
func (c *Client) ListProgress(ctx context.Context) ([]Progress, error) {
	c.logger.Info("listing progress")

	resp, err := c.Do(ctx, http.MethodGet, "/progress", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var records []Progress
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("api: decoding progress response: %w", err)
	}

	c.logger.Debug("listed progress",
		slog.Int("count", len(records)),
	)

	return records, nil
}
