package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookSession_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/mentorship/sessions", r.URL.Path)

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "user-7", req["mentor_id"])
		assert.Equal(t, "Code review", req["title"])
		assert.Equal(t, float64(45), req["duration_minutes"])

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `{
			"id": "sess-1",
			"mentor_id": "user-7",
			"student_id": "user-1",
			"title": "Code review",
			"scheduled_at": "2025-06-01T15:00:00",
			"duration_minutes": 45,
			"status": "scheduled"
		}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	session, err := client.BookSession(context.Background(), BookingInput{
		MentorID:        "user-7",
		Title:           "Code review",
		ScheduledAt:     NewTime(time.Date(2025, 6, 1, 15, 0, 0, 0, time.UTC)),
		DurationMinutes: 45,
	})
	require.NoError(t, err)

	assert.Equal(t, "sess-1", session.ID)
	assert.Equal(t, "scheduled", session.Status)
	assert.Equal(t, 45, session.DurationMinutes)
}

func TestBookSession_MentorNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"detail":"Mentor not found"}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.BookSession(context.Background(), BookingInput{
		MentorID:        "ghost",
		Title:           "Anything",
		ScheduledAt:     NewTime(time.Now()),
		DurationMinutes: 30,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBookSession_ForbiddenForMentors(t *testing.T) {
	// The backend rejects bookings from non-student credentials.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"detail":"Insufficient permissions"}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.BookSession(context.Background(), BookingInput{
		MentorID:        "user-7",
		Title:           "Not allowed",
		ScheduledAt:     NewTime(time.Now()),
		DurationMinutes: 30,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrForbidden)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Insufficient permissions", apiErr.Detail)
}

func TestBookSession_InvalidInputNoNetworkCall(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.BookSession(context.Background(), BookingInput{
		MentorID:        "",
		Title:           "",
		DurationMinutes: 0,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, int32(0), calls.Load())
}

func TestSessions_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/mentorship/sessions", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `[
			{
				"id": "sess-1",
				"mentor_id": "user-7",
				"student_id": "user-1",
				"title": "Code review",
				"duration_minutes": 60,
				"status": "scheduled"
			},
			{
				"id": "sess-2",
				"mentor_id": "user-8",
				"student_id": "user-1",
				"title": "Career chat",
				"duration_minutes": 30,
				"status": "completed"
			}
		]`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	sessions, err := client.Sessions(context.Background())
	require.NoError(t, err)

	require.Len(t, sessions, 2)
	assert.Equal(t, "sess-1", sessions[0].ID)
	assert.Equal(t, "completed", sessions[1].Status)
}

func TestSessions_Empty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `[]`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	sessions, err := client.Sessions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sessions)
}
