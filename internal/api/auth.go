package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

// loginRequest mirrors the backend's login payload.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login exchanges email and password for a bearer credential and the
// account's identity. It does not touch the ambient credential source;
// session state is the caller's concern.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	c.logger.Info("logging in")

	body, err := json.Marshal(loginRequest{Email: email, Password: password})
	if err != nil {
		return nil, fmt.Errorf("api: encoding login request: %w", err)
	}

	resp, err := c.Do(ctx, http.MethodPost, "/auth/login", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result LoginResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("api: decoding login response: %w", err)
	}

	c.logger.Debug("login succeeded",
		slog.String("user_id", result.User.ID),
		slog.String("role", string(result.User.Role)),
	)

	return &result, nil
}

// Register creates a new account. The session is never mutated: a new
// account starts logged out and the caller decides whether to log in.
func (c *Client) Register(ctx context.Context, input RegisterInput) (*Identity, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	c.logger.Info("registering account",
		slog.String("role", string(input.Role)),
	)

	body, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("api: encoding register request: %w", err)
	}

	resp, err := c.Do(ctx, http.MethodPost, "/auth/register", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var identity Identity
	if err := json.NewDecoder(resp.Body).Decode(&identity); err != nil {
		return nil, fmt.Errorf("api: decoding register response: %w", err)
	}

	c.logger.Debug("account created",
		slog.String("user_id", identity.ID),
	)

	return &identity, nil
}

// Resolve probes an explicit credential: it fetches the identity that owns
// it without touching the client's ambient credential source. The session
// manager uses this during resolution, before a credential is published.
func (c *Client) Resolve(ctx context.Context, credential string) (*Identity, error) {
	return c.WithCredential(credential).Me(ctx)
}

// Me returns the identity owning the credential the request was sent with.
// Used for session resolution and as the authoritative identity refresh.
func (c *Client) Me(ctx context.Context) (*Identity, error) {
	c.logger.Debug("resolving identity")

	resp, err := c.Do(ctx, http.MethodGet, "/auth/me", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var identity Identity
	if err := json.NewDecoder(resp.Body).Decode(&identity); err != nil {
		return nil, fmt.Errorf("api: decoding identity response: %w", err)
	}

	c.logger.Debug("resolved identity",
		slog.String("user_id", identity.ID),
		slog.String("role", string(identity.Role)),
	)

	return &identity, nil
}
