// Package catalog caches the course and mentor collections in a local
// SQLite database so browse commands answer instantly, repeat listings do
// not hammer the backend, and a warm cache keeps working when the backend
// is unreachable. The cache is presentation plumbing: it never holds
// session state or credentials, and losing it costs one refresh.
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver, registers as "sqlite".

	"github.com/edumentor/edumentor-go/internal/api"
)

// Collection names for the freshness bookkeeping.
const (
	CollectionCourses = "courses"
	CollectionMentors = "mentors"
)

// Cache is the local catalog store. Safe for concurrent use; SQLite
// serializes writers and the single-connection limit avoids SQLITE_BUSY
// races between the replace transactions.
type Cache struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the catalog cache at dbPath and applies
// pending migrations. Use ":memory:" for tests.
func Open(dbPath string, logger *slog.Logger) (*Cache, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("catalog: opening %s: %w", dbPath, err)
	}

	// Sole-writer discipline: one connection keeps replace transactions
	// from tripping over concurrent readers of the same process.
	db.SetMaxOpenConns(1)

	if err := setPragmas(context.Background(), db); err != nil {
		db.Close()

		return nil, err
	}

	if err := runMigrations(context.Background(), db, logger); err != nil {
		db.Close()

		return nil, err
	}

	logger.Debug("catalog cache ready",
		slog.String("path", dbPath),
	)

	return &Cache{db: db, logger: logger}, nil
}

// Close releases the database handle.
func (c *Cache) Close() error {
	return c.db.Close()
}

// setPragmas configures SQLite for WAL mode and safety.
func setPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}

	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("catalog: %s: %w", p, err)
		}
	}

	return nil
}

// --- SQL query constants ---

const (
	sqlCourseColumns = `id, title, description, instructor_id, category, level,
		duration_hours, price, thumbnail, video_url, tags, is_published, created_at`

	sqlInsertCourse = `INSERT INTO courses (` + sqlCourseColumns + `, search_text)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title          = excluded.title,
			description    = excluded.description,
			instructor_id  = excluded.instructor_id,
			category       = excluded.category,
			level          = excluded.level,
			duration_hours = excluded.duration_hours,
			price          = excluded.price,
			thumbnail      = excluded.thumbnail,
			video_url      = excluded.video_url,
			tags           = excluded.tags,
			is_published   = excluded.is_published,
			created_at     = excluded.created_at,
			search_text    = excluded.search_text`

	sqlGetCourse = `SELECT ` + sqlCourseColumns + ` FROM courses WHERE id = ?`

	sqlMentorColumns = `id, email, full_name, skills, interests, bio,
		profile_image, is_active, created_at`

	sqlInsertMentor = `INSERT INTO mentors (` + sqlMentorColumns + `, search_text)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	sqlSaveFetchedAt = `INSERT INTO collections (name, fetched_at) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET fetched_at = excluded.fetched_at`

	sqlGetFetchedAt = `SELECT fetched_at FROM collections WHERE name = ?`
)

// ReplaceCourses swaps the cached course collection for the given one in a
// single transaction and stamps the collection fresh.
func (c *Cache) ReplaceCourses(ctx context.Context, courses []api.Course) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("catalog: begin course replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM courses`); err != nil {
		return fmt.Errorf("catalog: clearing courses: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, sqlInsertCourse)
	if err != nil {
		return fmt.Errorf("catalog: prepare course insert: %w", err)
	}
	defer stmt.Close()

	for i := range courses {
		if err := execInsertCourse(ctx, stmt, &courses[i]); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx, sqlSaveFetchedAt, CollectionCourses, time.Now().UnixNano()); err != nil {
		return fmt.Errorf("catalog: stamping course freshness: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("catalog: commit course replace: %w", err)
	}

	c.logger.Info("catalog courses refreshed",
		slog.Int("count", len(courses)),
	)

	return nil
}

// UpsertCourse stores or updates a single course without touching the
// collection freshness stamp. Used when one course was fetched by ID.
func (c *Cache) UpsertCourse(ctx context.Context, course *api.Course) error {
	stmt, err := c.db.PrepareContext(ctx, sqlInsertCourse)
	if err != nil {
		return fmt.Errorf("catalog: prepare course upsert: %w", err)
	}
	defer stmt.Close()

	return execInsertCourse(ctx, stmt, course)
}

// execInsertCourse binds one course to the shared insert statement.
func execInsertCourse(ctx context.Context, stmt *sql.Stmt, course *api.Course) error {
	tags, err := json.Marshal(course.Tags)
	if err != nil {
		return fmt.Errorf("catalog: encoding tags for %s: %w", course.ID, err)
	}

	_, err = stmt.ExecContext(ctx,
		course.ID, course.Title, course.Description, course.InstructorID,
		course.Category, course.Level, course.DurationHours, course.Price,
		course.Thumbnail, course.VideoURL, string(tags),
		boolToInt(course.IsPublished), timeToNanos(course.CreatedAt),
		normalizeText(course.Title+"\n"+course.Description),
	)
	if err != nil {
		return fmt.Errorf("catalog: inserting course %s: %w", course.ID, err)
	}

	return nil
}

// Courses lists cached courses with the backend's listing semantics:
// published entries only, category and level matched exactly, the search
// term matched case-insensitively against title and description.
func (c *Cache) Courses(ctx context.Context, filter api.CourseFilter) ([]api.Course, error) {
	query := `SELECT ` + sqlCourseColumns + ` FROM courses WHERE is_published = 1`

	var args []any

	if filter.Category != "" {
		query += ` AND category = ?`
		args = append(args, filter.Category)
	}

	if filter.Level != "" {
		query += ` AND level = ?`
		args = append(args, filter.Level)
	}

	if filter.Search != "" {
		query += ` AND search_text LIKE ? ESCAPE '\'`
		args = append(args, likePattern(normalizeText(filter.Search)))
	}

	query += ` ORDER BY title`

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("catalog: listing courses: %w", err)
	}
	defer rows.Close()

	var out []api.Course

	for rows.Next() {
		course, scanErr := scanCourse(rows)
		if scanErr != nil {
			return nil, scanErr
		}

		out = append(out, *course)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: iterating courses: %w", err)
	}

	return out, nil
}

// Course returns one cached course by ID, or nil when it is not cached.
// Single-course reads are by ID regardless of publication state, matching
// the backend's detail endpoint.
func (c *Cache) Course(ctx context.Context, courseID string) (*api.Course, error) {
	row := c.db.QueryRowContext(ctx, sqlGetCourse, courseID)

	course, err := scanCourse(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return course, nil
}

// scanTarget is satisfied by both *sql.Row and *sql.Rows.
type scanTarget interface {
	Scan(dest ...any) error
}

// scanCourse reads one course row.
func scanCourse(row scanTarget) (*api.Course, error) {
	var (
		course    api.Course
		tags      string
		published int
		createdAt int64
	)

	err := row.Scan(
		&course.ID, &course.Title, &course.Description, &course.InstructorID,
		&course.Category, &course.Level, &course.DurationHours, &course.Price,
		&course.Thumbnail, &course.VideoURL, &tags, &published, &createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	if err != nil {
		return nil, fmt.Errorf("catalog: scanning course: %w", err)
	}

	if err := json.Unmarshal([]byte(tags), &course.Tags); err != nil {
		return nil, fmt.Errorf("catalog: parsing tags for %s: %w", course.ID, err)
	}

	course.IsPublished = published != 0
	course.CreatedAt = nanosToTime(createdAt)

	return &course, nil
}

// ReplaceMentors swaps the cached mentor collection in one transaction and
// stamps the collection fresh.
func (c *Cache) ReplaceMentors(ctx context.Context, mentors []api.Identity) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("catalog: begin mentor replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM mentors`); err != nil {
		return fmt.Errorf("catalog: clearing mentors: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, sqlInsertMentor)
	if err != nil {
		return fmt.Errorf("catalog: prepare mentor insert: %w", err)
	}
	defer stmt.Close()

	for i := range mentors {
		m := &mentors[i]

		skills, jsonErr := json.Marshal(m.Skills)
		if jsonErr != nil {
			return fmt.Errorf("catalog: encoding skills for %s: %w", m.ID, jsonErr)
		}

		interests, jsonErr := json.Marshal(m.Interests)
		if jsonErr != nil {
			return fmt.Errorf("catalog: encoding interests for %s: %w", m.ID, jsonErr)
		}

		_, execErr := stmt.ExecContext(ctx,
			m.ID, m.Email, m.FullName, string(skills), string(interests),
			m.Bio, m.ProfileImage, boolToInt(m.IsActive), timeToNanos(m.CreatedAt),
			normalizeText(m.FullName+"\n"+m.Bio),
		)
		if execErr != nil {
			return fmt.Errorf("catalog: inserting mentor %s: %w", m.ID, execErr)
		}
	}

	if _, err := tx.ExecContext(ctx, sqlSaveFetchedAt, CollectionMentors, time.Now().UnixNano()); err != nil {
		return fmt.Errorf("catalog: stamping mentor freshness: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("catalog: commit mentor replace: %w", err)
	}

	c.logger.Info("catalog mentors refreshed",
		slog.Int("count", len(mentors)),
	)

	return nil
}

// Mentors lists cached active mentors with the backend's filter semantics:
// when skills are given, a mentor matches if they cover at least one of
// them, compared exactly the way the backend compares stored skill values.
func (c *Cache) Mentors(ctx context.Context, skills []string) ([]api.Identity, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT `+sqlMentorColumns+` FROM mentors WHERE is_active = 1 ORDER BY full_name`)
	if err != nil {
		return nil, fmt.Errorf("catalog: listing mentors: %w", err)
	}
	defer rows.Close()

	var out []api.Identity

	for rows.Next() {
		var (
			m             api.Identity
			skillsJSON    string
			interestsJSON string
			active        int
			createdAt     int64
		)

		err := rows.Scan(
			&m.ID, &m.Email, &m.FullName, &skillsJSON, &interestsJSON,
			&m.Bio, &m.ProfileImage, &active, &createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("catalog: scanning mentor: %w", err)
		}

		if err := json.Unmarshal([]byte(skillsJSON), &m.Skills); err != nil {
			return nil, fmt.Errorf("catalog: parsing skills for %s: %w", m.ID, err)
		}

		if err := json.Unmarshal([]byte(interestsJSON), &m.Interests); err != nil {
			return nil, fmt.Errorf("catalog: parsing interests for %s: %w", m.ID, err)
		}

		m.Role = api.RoleMentor
		m.IsActive = active != 0
		m.CreatedAt = nanosToTime(createdAt)

		if !matchesAnySkill(m.Skills, skills) {
			continue
		}

		out = append(out, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: iterating mentors: %w", err)
	}

	return out, nil
}

// matchesAnySkill reports whether the mentor covers at least one wanted
// skill. An empty want list matches everyone.
func matchesAnySkill(have, want []string) bool {
	if len(want) == 0 {
		return true
	}

	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}

	return false
}

// FetchedAt returns when the named collection was last replaced from the
// backend. The zero time means it never was.
func (c *Cache) FetchedAt(ctx context.Context, collection string) (time.Time, error) {
	var nanos int64

	err := c.db.QueryRowContext(ctx, sqlGetFetchedAt, collection).Scan(&nanos)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}

	if err != nil {
		return time.Time{}, fmt.Errorf("catalog: reading freshness of %s: %w", collection, err)
	}

	return time.Unix(0, nanos).UTC(), nil
}

// Stats summarizes the cache contents for the status command.
type Stats struct {
	Courses          int       `json:"courses"`
	Mentors          int       `json:"mentors"`
	CoursesFetchedAt time.Time `json:"courses_fetched_at"`
	MentorsFetchedAt time.Time `json:"mentors_fetched_at"`
}

// Stats reports row counts and freshness stamps.
func (c *Cache) Stats(ctx context.Context) (Stats, error) {
	var s Stats

	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM courses`).Scan(&s.Courses); err != nil {
		return Stats{}, fmt.Errorf("catalog: counting courses: %w", err)
	}

	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM mentors`).Scan(&s.Mentors); err != nil {
		return Stats{}, fmt.Errorf("catalog: counting mentors: %w", err)
	}

	var err error

	if s.CoursesFetchedAt, err = c.FetchedAt(ctx, CollectionCourses); err != nil {
		return Stats{}, err
	}

	if s.MentorsFetchedAt, err = c.FetchedAt(ctx, CollectionMentors); err != nil {
		return Stats{}, err
	}

	return s, nil
}

// boolToInt maps Go bool to SQLite INTEGER.
func boolToInt(b bool) int {
	if b {
		return 1
	}

	return 0
}

// timeToNanos stores a timestamp as Unix nanoseconds, zero time as 0.
func timeToNanos(t api.Time) int64 {
	if t.IsZero() {
		return 0
	}

	return t.UnixNano()
}

// nanosToTime is the inverse of timeToNanos.
func nanosToTime(nanos int64) api.Time {
	if nanos == 0 {
		return api.Time{}
	}

	return api.NewTime(time.Unix(0, nanos).UTC())
}
