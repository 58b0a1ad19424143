// Package testutil provides an in-memory EduMentor backend and environment
// helpers for end-to-end tests. The fake speaks the same REST and websocket
// surface as the production server, so the CLI binary runs against it
// unmodified. It deliberately avoids internal/ imports: E2E tests exercise
// the real wire format, not shared Go structs.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// User is a backend account. Password is held server-side only.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name"`
	Role         string    `json:"role"`
	Skills       []string  `json:"skills"`
	Interests    []string  `json:"interests"`
	Bio          string    `json:"bio"`
	ProfileImage string    `json:"profile_image"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`

	Password string `json:"-"`
}

// Course is a catalog entry.
type Course struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	InstructorID  string    `json:"instructor_id"`
	Category      string    `json:"category"`
	Level         string    `json:"level"`
	DurationHours int       `json:"duration_hours"`
	Price         float64   `json:"price"`
	Thumbnail     string    `json:"thumbnail"`
	VideoURL      string    `json:"video_url"`
	Tags          []string  `json:"tags"`
	IsPublished   bool      `json:"is_published"`
	CreatedAt     time.Time `json:"created_at"`
}

// Session is a booked mentorship session.
type Session struct {
	ID              string    `json:"id"`
	MentorID        string    `json:"mentor_id"`
	StudentID       string    `json:"student_id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	ScheduledAt     time.Time `json:"scheduled_at"`
	DurationMinutes int       `json:"duration_minutes"`
	Status          string    `json:"status"`
	MeetingLink     string    `json:"meeting_link"`
	Notes           string    `json:"notes"`
	CreatedAt       time.Time `json:"created_at"`
}

// Message is one direct chat message.
type Message struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	Message    string    `json:"message"`
	Timestamp  time.Time `json:"timestamp"`
	IsRead     bool      `json:"is_read"`
}

// ProgressRecord is the per-user, per-course completion record.
type ProgressRecord struct {
	ID                   string    `json:"id"`
	UserID               string    `json:"user_id"`
	CourseID             string    `json:"course_id"`
	CompletionPercentage float64   `json:"completion_percentage"`
	LastAccessed         time.Time `json:"last_accessed"`
	CompletedLessons     []string  `json:"completed_lessons"`
}

// pushEvent is the websocket frame sent on new messages.
type pushEvent struct {
	Type       string  `json:"type"`
	Data       Message `json:"data"`
	SenderName string  `json:"sender_name"`
}

// Server is an in-memory EduMentor backend bound to an httptest listener.
// All state lives behind one mutex; E2E volumes are tiny.
type Server struct {
	mu             sync.Mutex
	users          map[string]*User  // by ID
	byEmail        map[string]string // email -> user ID
	tokens         map[string]string // bearer token -> user ID
	courses        []Course
	sessions       []Session
	messages       []Message
	progress       map[string]map[string]ProgressRecord // userID -> courseID
	listeners      map[string][]chan []byte             // userID -> push queues
	nextID         int
	outage         bool
	progressWrites int

	http *httptest.Server
}

// NewServer starts a fake backend. Callers own it and must Close it.
func NewServer() *Server {
	s := &Server{
		users:     make(map[string]*User),
		byEmail:   make(map[string]string),
		tokens:    make(map[string]string),
		progress:  make(map[string]map[string]ProgressRecord),
		listeners: make(map[string][]chan []byte),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("GET /api/auth/me", s.handleMe)
	mux.HandleFunc("GET /api/courses", s.handleCourses)
	mux.HandleFunc("GET /api/courses/{id}", s.handleCourse)
	mux.HandleFunc("GET /api/mentors", s.handleMentors)
	mux.HandleFunc("POST /api/progress/{courseID}", s.handleWriteProgress)
	mux.HandleFunc("GET /api/progress", s.handleListProgress)
	mux.HandleFunc("POST /api/mentorship/sessions", s.handleBookSession)
	mux.HandleFunc("GET /api/mentorship/sessions", s.handleListSessions)
	mux.HandleFunc("POST /api/chat/messages", s.handleSendMessage)
	mux.HandleFunc("GET /api/chat/conversations/{userID}", s.handleConversation)
	mux.HandleFunc("GET /api/users", s.handleUsers)
	mux.HandleFunc("GET /ws/{userID}", s.handleSocket)

	s.http = httptest.NewServer(s.withOutage(mux))

	return s
}

// URL returns the server root, suitable for the CLI's --server flag.
func (s *Server) URL() string {
	return s.http.URL
}

// Close shuts the listener down.
func (s *Server) Close() {
	s.http.Close()
}

// SetOutage toggles outage mode: every /api request answers 501 so clients
// classify the backend as unavailable. 501 is deliberate; unlike 503 it is
// not retried, which keeps offline-path tests fast.
func (s *Server) SetOutage(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outage = v
}

// ProgressWrites returns how many progress upserts the server has seen.
// Coalescing tests assert on this.
func (s *Server) ProgressWrites() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.progressWrites
}

// ProgressFor returns the stored completion percentage, or -1 when the
// user has no record for the course.
func (s *Server) ProgressFor(userID, courseID string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.progress[userID][courseID]; ok {
		return rec.CompletionPercentage
	}

	return -1
}

// SeedUser registers an account directly, bypassing the HTTP surface.
// Returns the stored user with its assigned ID.
func (s *Server) SeedUser(u User) User {
	s.mu.Lock()
	defer s.mu.Unlock()

	return *s.addUser(u)
}

// SeedProgress stores a completion record directly, as if the user had
// studied before this test began.
func (s *Server) SeedProgress(userID, courseID string, pct float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.progress[userID] == nil {
		s.progress[userID] = make(map[string]ProgressRecord)
	}

	s.progress[userID][courseID] = ProgressRecord{
		ID:                   s.newID("p"),
		UserID:               userID,
		CourseID:             courseID,
		CompletionPercentage: pct,
		LastAccessed:         time.Now().UTC(),
	}
}

// SeedCourse adds a catalog entry directly. Returns it with its assigned ID.
func (s *Server) SeedCourse(c Course) Course {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == "" {
		c.ID = s.newID("c")
	}

	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	s.courses = append(s.courses, c)

	return c
}

// TokenFor mints a bearer token for a seeded user, as if they had logged in.
func (s *Server) TokenFor(userID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	tok := s.newID("tok")
	s.tokens[tok] = userID

	return tok
}

// newID mints "prefix-N". Callers hold the mutex.
func (s *Server) newID(prefix string) string {
	s.nextID++

	return fmt.Sprintf("%s-%d", prefix, s.nextID)
}

// addUser stores a user, filling defaults. Callers hold the mutex.
func (s *Server) addUser(u User) *User {
	if u.ID == "" {
		u.ID = s.newID("u")
	}

	if u.Role == "" {
		u.Role = "student"
	}

	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}

	u.IsActive = true

	stored := u
	s.users[stored.ID] = &stored
	s.byEmail[stored.Email] = stored.ID

	return &stored
}

// withOutage wraps the API mux with the outage toggle. The websocket
// endpoint is left reachable; outage mode models the REST surface failing.
func (s *Server) withOutage(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		down := s.outage
		s.mu.Unlock()

		if down && strings.HasPrefix(r.URL.Path, "/api/") {
			writeError(w, http.StatusNotImplemented, "service outage (simulated)")

			return
		}

		next.ServeHTTP(w, r)
	})
}

// authedUser resolves the bearer token on the request. Writes a 401 and
// returns nil when the credential is missing or unknown.
func (s *Server) authedUser(w http.ResponseWriter, r *http.Request) *User {
	auth := r.Header.Get("Authorization")

	token, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok || token == "" {
		writeError(w, http.StatusUnauthorized, "Not authenticated")

		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	userID, ok := s.tokens[token]
	if !ok {
		writeError(w, http.StatusUnauthorized, "Could not validate credentials")

		return nil
	}

	u := s.users[userID]
	if u == nil {
		writeError(w, http.StatusUnauthorized, "Could not validate credentials")

		return nil
	}

	copied := *u

	return &copied
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError emits a FastAPI-shaped error body: {"detail": "..."}.
func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email     string   `json:"email"`
		Password  string   `json:"password"`
		FullName  string   `json:"full_name"`
		Role      string   `json:"role"`
		Skills    []string `json:"skills"`
		Interests []string `json:"interests"`
		Bio       string   `json:"bio"`
	}

	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "malformed body")

		return
	}

	if in.Email == "" || in.Password == "" || in.FullName == "" {
		writeError(w, http.StatusUnprocessableEntity, "missing required field")

		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[in.Email]; exists {
		writeError(w, http.StatusConflict, "Email already registered")

		return
	}

	u := s.addUser(User{
		Email:     in.Email,
		Password:  in.Password,
		FullName:  in.FullName,
		Role:      in.Role,
		Skills:    in.Skills,
		Interests: in.Interests,
		Bio:       in.Bio,
	})

	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "malformed body")

		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	userID, ok := s.byEmail[in.Email]
	if !ok || s.users[userID].Password != in.Password {
		writeError(w, http.StatusUnauthorized, "Incorrect email or password")

		return
	}

	token := s.newID("tok")
	s.tokens[token] = userID

	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": token,
		"token_type":   "bearer",
		"user":         s.users[userID],
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	u := s.authedUser(w, r)
	if u == nil {
		return
	}

	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleCourses(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	level := r.URL.Query().Get("level")
	search := strings.ToLower(r.URL.Query().Get("search"))

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Course, 0)

	for _, c := range s.courses {
		if !c.IsPublished {
			continue
		}

		if category != "" && c.Category != category {
			continue
		}

		if level != "" && c.Level != level {
			continue
		}

		if search != "" &&
			!strings.Contains(strings.ToLower(c.Title), search) &&
			!strings.Contains(strings.ToLower(c.Description), search) {
			continue
		}

		out = append(out, c)
	}

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCourse(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.courses {
		if c.ID == id {
			writeJSON(w, http.StatusOK, c)

			return
		}
	}

	writeError(w, http.StatusNotFound, "Course not found")
}

func (s *Server) handleMentors(w http.ResponseWriter, r *http.Request) {
	var want []string
	if raw := r.URL.Query().Get("skills"); raw != "" {
		want = strings.Split(raw, ",")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]User, 0)

	for _, u := range s.users {
		if u.Role != "mentor" || !u.IsActive {
			continue
		}

		if len(want) > 0 && !hasAnySkill(u.Skills, want) {
			continue
		}

		out = append(out, *u)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, out)
}

func hasAnySkill(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if strings.EqualFold(strings.TrimSpace(w), h) {
				return true
			}
		}
	}

	return false
}

func (s *Server) handleWriteProgress(w http.ResponseWriter, r *http.Request) {
	u := s.authedUser(w, r)
	if u == nil {
		return
	}

	courseID := r.PathValue("courseID")

	pct, err := strconv.ParseFloat(r.URL.Query().Get("completion_percentage"), 64)
	if err != nil || pct < 0 || pct > 100 {
		writeError(w, http.StatusUnprocessableEntity, "completion_percentage must be 0..100")

		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.progressWrites++

	if s.progress[u.ID] == nil {
		s.progress[u.ID] = make(map[string]ProgressRecord)
	}

	rec, ok := s.progress[u.ID][courseID]
	if !ok {
		rec = ProgressRecord{
			ID:       s.newID("p"),
			UserID:   u.ID,
			CourseID: courseID,
		}
	}

	// Last-value upsert, exactly like the production backend. Monotonicity
	// is the client's job.
	rec.CompletionPercentage = pct
	rec.LastAccessed = time.Now().UTC()
	s.progress[u.ID][courseID] = rec

	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleListProgress(w http.ResponseWriter, r *http.Request) {
	u := s.authedUser(w, r)
	if u == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]ProgressRecord, 0)
	for _, rec := range s.progress[u.ID] {
		out = append(out, rec)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CourseID < out[j].CourseID })
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleBookSession(w http.ResponseWriter, r *http.Request) {
	u := s.authedUser(w, r)
	if u == nil {
		return
	}

	var in struct {
		MentorID        string    `json:"mentor_id"`
		Title           string    `json:"title"`
		Description     string    `json:"description"`
		ScheduledAt     time.Time `json:"scheduled_at"`
		DurationMinutes int       `json:"duration_minutes"`
	}

	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "malformed body")

		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	mentor, ok := s.users[in.MentorID]
	if !ok || mentor.Role != "mentor" {
		writeError(w, http.StatusNotFound, "Mentor not found")

		return
	}

	sess := Session{
		ID:              s.newID("s"),
		MentorID:        in.MentorID,
		StudentID:       u.ID,
		Title:           in.Title,
		Description:     in.Description,
		ScheduledAt:     in.ScheduledAt,
		DurationMinutes: in.DurationMinutes,
		Status:          "scheduled",
		CreatedAt:       time.Now().UTC(),
	}
	sess.MeetingLink = "https://meet.edumentor.dev/" + sess.ID

	s.sessions = append(s.sessions, sess)

	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	u := s.authedUser(w, r)
	if u == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Session, 0)

	for _, sess := range s.sessions {
		if sess.StudentID == u.ID || sess.MentorID == u.ID {
			out = append(out, sess)
		}
	}

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	u := s.authedUser(w, r)
	if u == nil {
		return
	}

	var in struct {
		ReceiverID string `json:"receiver_id"`
		Message    string `json:"message"`
	}

	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "malformed body")

		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[in.ReceiverID]; !ok {
		writeError(w, http.StatusNotFound, "User not found")

		return
	}

	msg := Message{
		ID:         s.newID("m"),
		SenderID:   u.ID,
		ReceiverID: in.ReceiverID,
		Message:    in.Message,
		Timestamp:  time.Now().UTC(),
	}
	s.messages = append(s.messages, msg)

	s.pushLocked(in.ReceiverID, pushEvent{
		Type:       "new_message",
		Data:       msg,
		SenderName: u.FullName,
	})

	writeJSON(w, http.StatusOK, msg)
}

// pushLocked queues an event for every live websocket of the given user.
// Callers hold the mutex. Slow listeners drop events rather than block the
// send path.
func (s *Server) pushLocked(userID string, ev pushEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}

	for _, ch := range s.listeners[userID] {
		select {
		case ch <- payload:
		default:
		}
	}
}

func (s *Server) handleConversation(w http.ResponseWriter, r *http.Request) {
	u := s.authedUser(w, r)
	if u == nil {
		return
	}

	other := r.PathValue("userID")

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Message, 0)

	for _, m := range s.messages {
		if (m.SenderID == u.ID && m.ReceiverID == other) ||
			(m.SenderID == other && m.ReceiverID == u.ID) {
			out = append(out, m)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	u := s.authedUser(w, r)
	if u == nil {
		return
	}

	if u.Role != "admin" {
		writeError(w, http.StatusForbidden, "Not enough permissions")

		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]User, 0, len(s.users))
	for _, stored := range s.users {
		out = append(out, *stored)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}

	ch := make(chan []byte, 16)

	s.mu.Lock()
	s.listeners[userID] = append(s.listeners[userID], ch)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()

		live := s.listeners[userID][:0]

		for _, c := range s.listeners[userID] {
			if c != ch {
				live = append(live, c)
			}
		}

		s.listeners[userID] = live
		s.mu.Unlock()

		conn.CloseNow()
	}()

	ctx := r.Context()

	for {
		select {
		case <-ctx.Done():
			return
		case payload := <-ch:
			if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
				return
			}
		}
	}
}
