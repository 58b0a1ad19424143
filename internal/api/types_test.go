package api

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTime_UnmarshalRFC3339(t *testing.T) {
	var ts Time
	require.NoError(t, ts.UnmarshalJSON([]byte(`"2025-05-20T10:30:00Z"`)))
	assert.Equal(t, time.Date(2025, 5, 20, 10, 30, 0, 0, time.UTC), ts.Time)
}

func TestTime_UnmarshalRFC3339WithOffset(t *testing.T) {
	var ts Time
	require.NoError(t, ts.UnmarshalJSON([]byte(`"2025-05-20T12:30:00+02:00"`)))
	assert.True(t, ts.Equal(time.Date(2025, 5, 20, 10, 30, 0, 0, time.UTC)))
}

func TestTime_UnmarshalNaive(t *testing.T) {
	// The backend round-trips datetimes through its document store and
	// loses the offset. Naive values are interpreted as UTC.
	tests := []struct {
		name     string
		raw      string
		expected time.Time
	}{
		{
			"T separator with microseconds",
			`"2025-03-14T09:26:53.589793"`,
			time.Date(2025, 3, 14, 9, 26, 53, 589793000, time.UTC),
		},
		{
			"T separator without fraction",
			`"2025-06-01T15:00:00"`,
			time.Date(2025, 6, 1, 15, 0, 0, 0, time.UTC),
		},
		{
			"space separator",
			`"2025-06-01 15:00:00"`,
			time.Date(2025, 6, 1, 15, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ts Time
			require.NoError(t, ts.UnmarshalJSON([]byte(tt.raw)))
			assert.Equal(t, tt.expected, ts.Time)
			assert.Equal(t, time.UTC, ts.Location())
		})
	}
}

func TestTime_UnmarshalNullAndEmpty(t *testing.T) {
	var ts Time
	require.NoError(t, ts.UnmarshalJSON([]byte(`null`)))
	assert.True(t, ts.IsZero())

	require.NoError(t, ts.UnmarshalJSON([]byte(`""`)))
	assert.True(t, ts.IsZero())
}

func TestTime_UnmarshalInvalid(t *testing.T) {
	var ts Time
	assert.Error(t, ts.UnmarshalJSON([]byte(`"yesterday"`)))
	assert.Error(t, ts.UnmarshalJSON([]byte(`12345`)))
}

func TestTime_MarshalZero(t *testing.T) {
	data, err := json.Marshal(Time{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))
}

func TestTime_MarshalUTC(t *testing.T) {
	loc := time.FixedZone("CEST", 2*3600)
	ts := NewTime(time.Date(2025, 5, 20, 12, 30, 0, 0, loc))

	data, err := json.Marshal(ts)
	require.NoError(t, err)
	assert.Equal(t, `"2025-05-20T10:30:00Z"`, string(data))
}

func TestIdentity_DecodeWithNaiveTimestamp(t *testing.T) {
	raw := `{
		"id": "user-1",
		"email": "maya@example.com",
		"full_name": "Maya Chen",
		"role": "student",
		"is_active": true,
		"created_at": "2025-03-14T09:26:53.589793"
	}`

	var identity Identity
	require.NoError(t, json.Unmarshal([]byte(raw), &identity))

	assert.Equal(t, "user-1", identity.ID)
	assert.Equal(t, RoleStudent, identity.Role)
	assert.Equal(t, 2025, identity.CreatedAt.Year())
}

func TestRole_UnknownCarriedVerbatim(t *testing.T) {
	// Unknown roles decode fine; capability checks treat them as
	// matching nothing.
	var identity Identity
	require.NoError(t, json.Unmarshal([]byte(`{"id":"u","role":"superuser"}`), &identity))
	assert.Equal(t, Role("superuser"), identity.Role)
}
