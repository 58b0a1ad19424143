package api

import (
	"fmt"
	"time"
)

// Role values used by the backend. The set is closed; anything else in a
// payload is carried through verbatim but satisfies no capability.
type Role string

// Known roles.
const (
	RoleStudent Role = "student"
	RoleMentor  Role = "mentor"
	RoleAdmin   Role = "admin"
)

// Time wraps time.Time with tolerant JSON decoding. The backend emits both
// RFC 3339 timestamps and naive ISO 8601 ones without an offset (datetimes
// round-tripped through its document store lose their timezone). Naive
// values are interpreted as UTC. Marshaling always produces RFC 3339 UTC.
type Time struct {
	time.Time
}

// naiveLayouts are offset-less ISO 8601 shapes the backend produces.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Time) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" || s == `""` {
		t.Time = time.Time{}

		return nil
	}

	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("api: invalid timestamp %s", s)
	}

	s = s[1 : len(s)-1]

	if v, err := time.Parse(time.RFC3339Nano, s); err == nil {
		t.Time = v

		return nil
	}

	for _, layout := range naiveLayouts {
		if v, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			t.Time = v

			return nil
		}
	}

	return fmt.Errorf("api: unrecognized timestamp %q", s)
}

// MarshalJSON implements json.Marshaler.
func (t Time) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}

	return []byte(`"` + t.UTC().Format(time.RFC3339Nano) + `"`), nil
}

// NewTime wraps a time.Time.
func NewTime(v time.Time) Time {
	return Time{Time: v}
}

// Identity is a platform user as returned by the backend.
type Identity struct {
	ID           string   `json:"id"`
	Email        string   `json:"email"`
	FullName     string   `json:"full_name"`
	Role         Role     `json:"role"`
	Skills       []string `json:"skills"`
	Interests    []string `json:"interests"`
	Bio          string   `json:"bio"`
	ProfileImage string   `json:"profile_image"`
	IsActive     bool     `json:"is_active"`
	CreatedAt    Time     `json:"created_at"`
}

// Course is a catalog entry.
type Course struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	InstructorID  string   `json:"instructor_id"`
	Category      string   `json:"category"`
	Level         string   `json:"level"` // beginner, intermediate, advanced
	DurationHours int      `json:"duration_hours"`
	Price         float64  `json:"price"`
	Thumbnail     string   `json:"thumbnail"`
	VideoURL      string   `json:"video_url"`
	Tags          []string `json:"tags"`
	IsPublished   bool     `json:"is_published"`
	CreatedAt     Time     `json:"created_at"`
}

// MentorshipSession is a booked mentoring appointment.
type MentorshipSession struct {
	ID              string `json:"id"`
	MentorID        string `json:"mentor_id"`
	StudentID       string `json:"student_id"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	ScheduledAt     Time   `json:"scheduled_at"`
	DurationMinutes int    `json:"duration_minutes"`
	Status          string `json:"status"` // scheduled, completed, cancelled
	MeetingLink     string `json:"meeting_link"`
	Notes           string `json:"notes"`
	CreatedAt       Time   `json:"created_at"`
}

// ChatMessage is one direct message between two users.
type ChatMessage struct {
	ID         string `json:"id"`
	SenderID   string `json:"sender_id"`
	ReceiverID string `json:"receiver_id"`
	Message    string `json:"message"`
	Timestamp  Time   `json:"timestamp"`
	IsRead     bool   `json:"is_read"`
}

// Progress is the server-side progress record for one (user, course) pair.
type Progress struct {
	ID                   string   `json:"id"`
	UserID               string   `json:"user_id"`
	CourseID             string   `json:"course_id"`
	CompletionPercentage float64  `json:"completion_percentage"`
	LastAccessed         Time     `json:"last_accessed"`
	CompletedLessons     []string `json:"completed_lessons"`
}

// LoginResult is the payload of a successful login.
type LoginResult struct {
	AccessToken string   `json:"access_token"`
	TokenType   string   `json:"token_type"`
	User        Identity `json:"user"`
}

// RegisterInput is the payload for account creation. Validation tags are
// enforced client-side before any network call; the backend repeats the
// checks authoritatively.
type RegisterInput struct {
	Email     string   `json:"email"      validate:"required,email"`
	Password  string   `json:"password"   validate:"required,min=6"`
	FullName  string   `json:"full_name"  validate:"required"`
	Role      Role     `json:"role"       validate:"required,oneof=student mentor"`
	Skills    []string `json:"skills"`
	Interests []string `json:"interests"`
	Bio       string   `json:"bio"`
}

// BookingInput is the payload for booking a mentorship session.
type BookingInput struct {
	MentorID        string `json:"mentor_id"        validate:"required"`
	Title           string `json:"title"            validate:"required"`
	Description     string `json:"description"`
	ScheduledAt     Time   `json:"scheduled_at"     validate:"required"`
	DurationMinutes int    `json:"duration_minutes" validate:"gt=0,lte=480"`
}

// CourseFilter narrows catalog listings. Zero values mean "no filter".
type CourseFilter struct {
	Category string
	Level    string
	Search   string
}
