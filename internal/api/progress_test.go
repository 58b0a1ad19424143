package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteProgress_QueryParameter(t *testing.T) {
	// The percentage travels as a query parameter, not a JSON body.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/progress/course-1", r.URL.Path)
		assert.Equal(t, "42.5", r.URL.Query().Get("completion_percentage"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Empty(t, body)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `{"message":"Progress updated"}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	err := client.WriteProgress(context.Background(), "course-1", 42.5)
	require.NoError(t, err)
}

func TestWriteProgress_WholeNumberFormatting(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 70.0 must serialize without a trailing ".0".
		assert.Equal(t, "70", r.URL.Query().Get("completion_percentage"))
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `{"message":"Progress updated"}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	err := client.WriteProgress(context.Background(), "course-1", 70)
	require.NoError(t, err)
}

func TestWriteProgress_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"detail":"Could not validate credentials"}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	err := client.WriteProgress(context.Background(), "course-1", 50)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestListProgress_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/progress", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `[
			{
				"id": "prog-1",
				"user_id": "user-1",
				"course_id": "course-1",
				"completion_percentage": 70,
				"last_accessed": "2025-05-20T10:30:00.123456",
				"completed_lessons": ["intro", "setup"]
			},
			{
				"id": "prog-2",
				"user_id": "user-1",
				"course_id": "course-2",
				"completion_percentage": 12.5,
				"last_accessed": "2025-05-21T08:00:00"
			}
		]`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	records, err := client.ListProgress(context.Background())
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, "course-1", records[0].CourseID)
	assert.InDelta(t, 70, records[0].CompletionPercentage, 0.001)
	assert.Equal(t, []string{"intro", "setup"}, records[0].CompletedLessons)
	assert.InDelta(t, 12.5, records[1].CompletionPercentage, 0.001)
}

func TestListProgress_Empty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `[]`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	records, err := client.ListProgress(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}
