package catalog

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/edumentor/edumentor-go/internal/api"
)

// testLogger returns a debug-level logger that writes to t.Log,
// so all activity appears in CI output.
func testLogger(t *testing.T) *slog.Logger {
	t.Helper()

	return slog.New(slog.NewTextHandler(&testLogWriter{t: t}, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// testLogWriter adapts testing.T to io.Writer for slog.
type testLogWriter struct {
	t *testing.T
}

func (w *testLogWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(string(p))

	return len(p), nil
}

// newTestCache creates a Cache backed by a temp directory, registering
// cleanup with t.Cleanup.
func newTestCache(t *testing.T) *Cache {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "catalog.db")

	cache, err := Open(dbPath, testLogger(t))
	if err != nil {
		t.Fatalf("Open(%q): %v", dbPath, err)
	}

	t.Cleanup(func() {
		if err := cache.Close(); err != nil {
			t.Errorf("Close(): %v", err)
		}
	})

	return cache
}

func testCourse(id, title string) api.Course {
	return api.Course{
		ID:            id,
		Title:         title,
		Description:   "description of " + title,
		InstructorID:  "mentor-1",
		Category:      "programming",
		Level:         "beginner",
		DurationHours: 12,
		Price:         49.99,
		Tags:          []string{"go", "backend"},
		IsPublished:   true,
		CreatedAt:     api.NewTime(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)),
	}
}

func TestOpen_WALMode(t *testing.T) {
	t.Parallel()

	cache := newTestCache(t)

	var journalMode string

	err := cache.db.QueryRowContext(context.Background(), "PRAGMA journal_mode").Scan(&journalMode)
	if err != nil {
		t.Fatalf("PRAGMA journal_mode: %v", err)
	}

	if journalMode != "wal" {
		t.Errorf("journal_mode = %q, want %q", journalMode, "wal")
	}
}

func TestOpen_RunsMigrations(t *testing.T) {
	t.Parallel()

	cache := newTestCache(t)

	// goose creates a goose_db_version table automatically.
	var count int

	err := cache.db.QueryRowContext(context.Background(),
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'goose_db_version'`).Scan(&count)
	if err != nil {
		t.Fatalf("querying sqlite_master: %v", err)
	}

	if count != 1 {
		t.Errorf("goose_db_version tables = %d, want 1", count)
	}
}

func TestCache_ReplaceCourses_RoundTrip(t *testing.T) {
	t.Parallel()

	cache := newTestCache(t)
	ctx := context.Background()

	want := testCourse("c1", "Intro to Go")

	if err := cache.ReplaceCourses(ctx, []api.Course{want}); err != nil {
		t.Fatalf("ReplaceCourses: %v", err)
	}

	got, err := cache.Courses(ctx, api.CourseFilter{})
	if err != nil {
		t.Fatalf("Courses: %v", err)
	}

	if len(got) != 1 {
		t.Fatalf("got %d courses, want 1", len(got))
	}

	c := got[0]
	if c.ID != want.ID || c.Title != want.Title || c.Description != want.Description {
		t.Errorf("core fields = %+v, want %+v", c, want)
	}

	if c.DurationHours != 12 || c.Price != 49.99 {
		t.Errorf("numeric fields = %d/%v, want 12/49.99", c.DurationHours, c.Price)
	}

	if len(c.Tags) != 2 || c.Tags[0] != "go" || c.Tags[1] != "backend" {
		t.Errorf("tags = %v, want [go backend]", c.Tags)
	}

	if !c.IsPublished {
		t.Error("IsPublished lost in round trip")
	}

	if !c.CreatedAt.Equal(want.CreatedAt.Time) {
		t.Errorf("created_at = %v, want %v", c.CreatedAt, want.CreatedAt)
	}
}

func TestCache_ReplaceCourses_SwapsCollection(t *testing.T) {
	t.Parallel()

	cache := newTestCache(t)
	ctx := context.Background()

	first := []api.Course{testCourse("c1", "First"), testCourse("c2", "Second")}
	if err := cache.ReplaceCourses(ctx, first); err != nil {
		t.Fatalf("ReplaceCourses (first): %v", err)
	}

	second := []api.Course{testCourse("c3", "Third")}
	if err := cache.ReplaceCourses(ctx, second); err != nil {
		t.Fatalf("ReplaceCourses (second): %v", err)
	}

	got, err := cache.Courses(ctx, api.CourseFilter{})
	if err != nil {
		t.Fatalf("Courses: %v", err)
	}

	if len(got) != 1 || got[0].ID != "c3" {
		t.Errorf("collection after swap = %v, want just c3", got)
	}
}

func TestCache_Courses_PublishedOnly(t *testing.T) {
	t.Parallel()

	cache := newTestCache(t)
	ctx := context.Background()

	published := testCourse("c1", "Published")
	draft := testCourse("c2", "Draft")
	draft.IsPublished = false

	if err := cache.ReplaceCourses(ctx, []api.Course{published, draft}); err != nil {
		t.Fatalf("ReplaceCourses: %v", err)
	}

	got, err := cache.Courses(ctx, api.CourseFilter{})
	if err != nil {
		t.Fatalf("Courses: %v", err)
	}

	if len(got) != 1 || got[0].ID != "c1" {
		t.Errorf("listing = %v, want only the published course", got)
	}

	// Single-course reads ignore publication state.
	byID, err := cache.Course(ctx, "c2")
	if err != nil {
		t.Fatalf("Course(c2): %v", err)
	}

	if byID == nil || byID.ID != "c2" {
		t.Errorf("Course(c2) = %v, want the draft", byID)
	}
}

func TestCache_Courses_Filters(t *testing.T) {
	t.Parallel()

	cache := newTestCache(t)
	ctx := context.Background()

	goCourse := testCourse("c1", "Advanced Go Patterns")
	goCourse.Category = "programming"
	goCourse.Level = "advanced"

	designCourse := testCourse("c2", "Design Fundamentals")
	designCourse.Category = "design"
	designCourse.Level = "beginner"
	designCourse.Description = "color, typography and layout"

	if err := cache.ReplaceCourses(ctx, []api.Course{goCourse, designCourse}); err != nil {
		t.Fatalf("ReplaceCourses: %v", err)
	}

	cases := []struct {
		name   string
		filter api.CourseFilter
		want   []string
	}{
		{"no filter", api.CourseFilter{}, []string{"c1", "c2"}},
		{"category", api.CourseFilter{Category: "design"}, []string{"c2"}},
		{"level", api.CourseFilter{Level: "advanced"}, []string{"c1"}},
		{"category and level", api.CourseFilter{Category: "programming", Level: "beginner"}, nil},
		{"search title case-insensitive", api.CourseFilter{Search: "advanced go"}, []string{"c1"}},
		{"search description", api.CourseFilter{Search: "Typography"}, []string{"c2"}},
		{"search no match", api.CourseFilter{Search: "quantum"}, nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := cache.Courses(ctx, tc.filter)
			if err != nil {
				t.Fatalf("Courses(%+v): %v", tc.filter, err)
			}

			if len(got) != len(tc.want) {
				t.Fatalf("got %d courses, want %d (%v)", len(got), len(tc.want), got)
			}

			for i, id := range tc.want {
				if got[i].ID != id {
					t.Errorf("result[%d] = %s, want %s", i, got[i].ID, id)
				}
			}
		})
	}
}

func TestCache_Courses_SearchEscapesLikeMetachars(t *testing.T) {
	t.Parallel()

	cache := newTestCache(t)
	ctx := context.Background()

	literal := testCourse("c1", "100% Practical SQL")
	other := testCourse("c2", "100 Days of Code")

	if err := cache.ReplaceCourses(ctx, []api.Course{literal, other}); err != nil {
		t.Fatalf("ReplaceCourses: %v", err)
	}

	got, err := cache.Courses(ctx, api.CourseFilter{Search: "100%"})
	if err != nil {
		t.Fatalf("Courses: %v", err)
	}

	// A bare LIKE would treat % as a wildcard and match both.
	if len(got) != 1 || got[0].ID != "c1" {
		t.Errorf("search %%-literal = %v, want only c1", got)
	}
}

func TestCache_Course_Missing(t *testing.T) {
	t.Parallel()

	cache := newTestCache(t)

	got, err := cache.Course(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Course: %v", err)
	}

	if got != nil {
		t.Errorf("Course(nope) = %v, want nil", got)
	}
}

func TestCache_UpsertCourse_UpdatesInPlace(t *testing.T) {
	t.Parallel()

	cache := newTestCache(t)
	ctx := context.Background()

	course := testCourse("c1", "Old Title")
	if err := cache.UpsertCourse(ctx, &course); err != nil {
		t.Fatalf("UpsertCourse (insert): %v", err)
	}

	course.Title = "New Title"
	if err := cache.UpsertCourse(ctx, &course); err != nil {
		t.Fatalf("UpsertCourse (update): %v", err)
	}

	got, err := cache.Course(ctx, "c1")
	if err != nil {
		t.Fatalf("Course: %v", err)
	}

	if got.Title != "New Title" {
		t.Errorf("title = %q, want %q", got.Title, "New Title")
	}

	// Single-course upserts must not fake collection freshness.
	fetchedAt, err := cache.FetchedAt(ctx, CollectionCourses)
	if err != nil {
		t.Fatalf("FetchedAt: %v", err)
	}

	if !fetchedAt.IsZero() {
		t.Errorf("courses fetched_at = %v, want zero after upsert only", fetchedAt)
	}
}

func TestCache_UpsertCourse_SearchTextFollowsUpdate(t *testing.T) {
	t.Parallel()

	cache := newTestCache(t)
	ctx := context.Background()

	course := testCourse("c1", "Rust Basics")
	if err := cache.UpsertCourse(ctx, &course); err != nil {
		t.Fatalf("UpsertCourse: %v", err)
	}

	course.Title = "Zig Basics"
	if err := cache.UpsertCourse(ctx, &course); err != nil {
		t.Fatalf("UpsertCourse (retitle): %v", err)
	}

	got, err := cache.Courses(ctx, api.CourseFilter{Search: "rust"})
	if err != nil {
		t.Fatalf("Courses: %v", err)
	}

	if len(got) != 0 {
		t.Errorf("stale search text still matches: %v", got)
	}
}

func testMentor(id, name string, skills []string) api.Identity {
	return api.Identity{
		ID:        id,
		Email:     id + "@example.com",
		FullName:  name,
		Role:      api.RoleMentor,
		Skills:    skills,
		Interests: []string{"teaching"},
		Bio:       "mentor bio",
		IsActive:  true,
		CreatedAt: api.NewTime(time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC)),
	}
}

func TestCache_Mentors_SkillFilter(t *testing.T) {
	t.Parallel()

	cache := newTestCache(t)
	ctx := context.Background()

	goMentor := testMentor("m1", "Ada", []string{"go", "sql"})
	jsMentor := testMentor("m2", "Linus", []string{"javascript"})
	inactive := testMentor("m3", "Grace", []string{"go"})
	inactive.IsActive = false

	if err := cache.ReplaceMentors(ctx, []api.Identity{goMentor, jsMentor, inactive}); err != nil {
		t.Fatalf("ReplaceMentors: %v", err)
	}

	all, err := cache.Mentors(ctx, nil)
	if err != nil {
		t.Fatalf("Mentors(nil): %v", err)
	}

	if len(all) != 2 {
		t.Fatalf("active mentors = %d, want 2 (inactive excluded)", len(all))
	}

	// Any-of semantics: one covered skill is enough.
	got, err := cache.Mentors(ctx, []string{"sql", "rust"})
	if err != nil {
		t.Fatalf("Mentors(skills): %v", err)
	}

	if len(got) != 1 || got[0].ID != "m1" {
		t.Errorf("skill filter = %v, want only m1", got)
	}

	none, err := cache.Mentors(ctx, []string{"cobol"})
	if err != nil {
		t.Fatalf("Mentors(cobol): %v", err)
	}

	if len(none) != 0 {
		t.Errorf("unmatched skill returned %v", none)
	}
}

func TestCache_Mentors_RoundTrip(t *testing.T) {
	t.Parallel()

	cache := newTestCache(t)
	ctx := context.Background()

	want := testMentor("m1", "Ada", []string{"go"})

	if err := cache.ReplaceMentors(ctx, []api.Identity{want}); err != nil {
		t.Fatalf("ReplaceMentors: %v", err)
	}

	got, err := cache.Mentors(ctx, nil)
	if err != nil {
		t.Fatalf("Mentors: %v", err)
	}

	if len(got) != 1 {
		t.Fatalf("got %d mentors, want 1", len(got))
	}

	m := got[0]
	if m.ID != "m1" || m.FullName != "Ada" || m.Email != "m1@example.com" {
		t.Errorf("core fields = %+v, want %+v", m, want)
	}

	if m.Role != api.RoleMentor {
		t.Errorf("role = %q, want mentor", m.Role)
	}

	if len(m.Interests) != 1 || m.Interests[0] != "teaching" {
		t.Errorf("interests = %v, want [teaching]", m.Interests)
	}

	if !m.CreatedAt.Equal(want.CreatedAt.Time) {
		t.Errorf("created_at = %v, want %v", m.CreatedAt, want.CreatedAt)
	}
}

func TestCache_FetchedAt(t *testing.T) {
	t.Parallel()

	cache := newTestCache(t)
	ctx := context.Background()

	before, err := cache.FetchedAt(ctx, CollectionCourses)
	if err != nil {
		t.Fatalf("FetchedAt (cold): %v", err)
	}

	if !before.IsZero() {
		t.Errorf("cold fetched_at = %v, want zero", before)
	}

	if err := cache.ReplaceCourses(ctx, []api.Course{testCourse("c1", "T")}); err != nil {
		t.Fatalf("ReplaceCourses: %v", err)
	}

	after, err := cache.FetchedAt(ctx, CollectionCourses)
	if err != nil {
		t.Fatalf("FetchedAt (warm): %v", err)
	}

	if after.IsZero() || time.Since(after) > time.Minute {
		t.Errorf("warm fetched_at = %v, want recent", after)
	}

	// Replacing courses must not stamp mentors.
	mentors, err := cache.FetchedAt(ctx, CollectionMentors)
	if err != nil {
		t.Fatalf("FetchedAt (mentors): %v", err)
	}

	if !mentors.IsZero() {
		t.Errorf("mentors fetched_at = %v, want zero", mentors)
	}
}

func TestCache_Stats(t *testing.T) {
	t.Parallel()

	cache := newTestCache(t)
	ctx := context.Background()

	courses := []api.Course{testCourse("c1", "A"), testCourse("c2", "B")}
	if err := cache.ReplaceCourses(ctx, courses); err != nil {
		t.Fatalf("ReplaceCourses: %v", err)
	}

	if err := cache.ReplaceMentors(ctx, []api.Identity{testMentor("m1", "Ada", nil)}); err != nil {
		t.Fatalf("ReplaceMentors: %v", err)
	}

	stats, err := cache.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}

	if stats.Courses != 2 || stats.Mentors != 1 {
		t.Errorf("counts = %d/%d, want 2/1", stats.Courses, stats.Mentors)
	}

	if stats.CoursesFetchedAt.IsZero() || stats.MentorsFetchedAt.IsZero() {
		t.Error("freshness stamps missing from stats")
	}
}

func TestCache_ZeroTimeRoundTrip(t *testing.T) {
	t.Parallel()

	cache := newTestCache(t)
	ctx := context.Background()

	course := testCourse("c1", "No Timestamp")
	course.CreatedAt = api.Time{}

	if err := cache.UpsertCourse(ctx, &course); err != nil {
		t.Fatalf("UpsertCourse: %v", err)
	}

	got, err := cache.Course(ctx, "c1")
	if err != nil {
		t.Fatalf("Course: %v", err)
	}

	if !got.CreatedAt.IsZero() {
		t.Errorf("created_at = %v, want zero", got.CreatedAt)
	}
}
