package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

// Users lists every account on the platform. The backend enforces the
// admin requirement; non-admin credentials get ErrForbidden back. The
// client only hides the affordance, it never enforces.
func (c *Client) Users(ctx context.Context) ([]Identity, error) {
	c.logger.Info("listing users")

	resp, err := c.Do(ctx, http.MethodGet, "/users", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var users []Identity
	if err := json.NewDecoder(resp.Body).Decode(&users); err != nil {
		return nil, fmt.Errorf("api: decoding users response: %w", err)
	}

	c.logger.Debug("listed users",
		slog.Int("count", len(users)),
	)

	return users, nil
}
