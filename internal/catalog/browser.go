package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/edumentor/edumentor-go/internal/api"
)

// Fetcher is the backend surface the browser refreshes from. *api.Client
// satisfies it.
type Fetcher interface {
	Courses(ctx context.Context, filter api.CourseFilter) ([]api.Course, error)
	Course(ctx context.Context, courseID string) (*api.Course, error)
	Mentors(ctx context.Context, skills []string) ([]api.Identity, error)
}

// Browser reads catalog collections through the cache. Fresh enough data
// is served locally; stale or missing data triggers a full collection
// fetch; when the backend is unreachable a warm cache is served anyway so
// browsing keeps working offline.
type Browser struct {
	cache   *Cache
	fetcher Fetcher
	ttl     time.Duration
	logger  *slog.Logger
}

// NewBrowser wires a read-through browser over cache and fetcher. ttl is
// how long a replaced collection counts as fresh; zero or negative means
// every listing refreshes.
func NewBrowser(cache *Cache, fetcher Fetcher, ttl time.Duration, logger *slog.Logger) *Browser {
	if logger == nil {
		logger = slog.Default()
	}

	return &Browser{cache: cache, fetcher: fetcher, ttl: ttl, logger: logger}
}

// fresh reports whether the collection's last replacement is within ttl.
func (b *Browser) fresh(ctx context.Context, collection string) bool {
	fetchedAt, err := b.cache.FetchedAt(ctx, collection)
	if err != nil {
		b.logger.Warn("catalog freshness check failed",
			slog.String("collection", collection),
			slog.String("error", err.Error()),
		)

		return false
	}

	if fetchedAt.IsZero() {
		return false
	}

	return time.Since(fetchedAt) < b.ttl
}

// warm reports whether the collection has ever been fetched. A warm cache
// may be served when the backend is unreachable; a cold one may not.
func (b *Browser) warm(ctx context.Context, collection string) bool {
	fetchedAt, err := b.cache.FetchedAt(ctx, collection)

	return err == nil && !fetchedAt.IsZero()
}

// Courses lists courses matching filter. With refresh, or when the cache
// is cold or past its ttl, the full collection is fetched and the cache
// replaced first; the filter is always applied locally so cached and
// fetched listings behave identically. The bool reports whether results
// were served from a stale cache because the backend was unreachable.
func (b *Browser) Courses(ctx context.Context, filter api.CourseFilter, refresh bool) ([]api.Course, bool, error) {
	stale, err := b.refreshCourses(ctx, refresh)
	if err != nil {
		return nil, false, err
	}

	courses, err := b.cache.Courses(ctx, filter)
	if err != nil {
		return nil, false, err
	}

	return courses, stale, nil
}

// refreshCourses replaces the cached course collection when needed. It
// returns true when a needed refresh failed with an unavailable backend
// and a warm cache stands in.
func (b *Browser) refreshCourses(ctx context.Context, force bool) (bool, error) {
	if !force && b.fresh(ctx, CollectionCourses) {
		return false, nil
	}

	// Fetch unfiltered so the cache holds the whole collection and can
	// answer any later filter.
	courses, err := b.fetcher.Courses(ctx, api.CourseFilter{})
	if err != nil {
		if api.IsUnavailable(err) && b.warm(ctx, CollectionCourses) {
			b.logger.Warn("backend unreachable, serving cached courses",
				slog.String("error", err.Error()),
			)

			return true, nil
		}

		return false, fmt.Errorf("catalog: refreshing courses: %w", err)
	}

	if err := b.cache.ReplaceCourses(ctx, courses); err != nil {
		return false, err
	}

	return false, nil
}

// Course returns one course by ID, from the cache when present, fetching
// and caching it otherwise. refresh forces the fetch. The bool reports a
// stale serve as in Courses.
func (b *Browser) Course(ctx context.Context, courseID string, refresh bool) (*api.Course, bool, error) {
	if !refresh {
		course, err := b.cache.Course(ctx, courseID)
		if err != nil {
			return nil, false, err
		}

		if course != nil {
			return course, false, nil
		}
	}

	course, err := b.fetcher.Course(ctx, courseID)
	if err != nil {
		if api.IsUnavailable(err) {
			cached, cacheErr := b.cache.Course(ctx, courseID)
			if cacheErr == nil && cached != nil {
				b.logger.Warn("backend unreachable, serving cached course",
					slog.String("course_id", courseID),
					slog.String("error", err.Error()),
				)

				return cached, true, nil
			}
		}

		return nil, false, fmt.Errorf("catalog: fetching course %s: %w", courseID, err)
	}

	if err := b.cache.UpsertCourse(ctx, course); err != nil {
		return nil, false, err
	}

	return course, false, nil
}

// Mentors lists active mentors covering at least one of the given skills,
// with the same read-through and stale-serve behavior as Courses.
func (b *Browser) Mentors(ctx context.Context, skills []string, refresh bool) ([]api.Identity, bool, error) {
	stale, err := b.refreshMentors(ctx, refresh)
	if err != nil {
		return nil, false, err
	}

	mentors, err := b.cache.Mentors(ctx, skills)
	if err != nil {
		return nil, false, err
	}

	return mentors, stale, nil
}

func (b *Browser) refreshMentors(ctx context.Context, force bool) (bool, error) {
	if !force && b.fresh(ctx, CollectionMentors) {
		return false, nil
	}

	mentors, err := b.fetcher.Mentors(ctx, nil)
	if err != nil {
		if api.IsUnavailable(err) && b.warm(ctx, CollectionMentors) {
			b.logger.Warn("backend unreachable, serving cached mentors",
				slog.String("error", err.Error()),
			)

			return true, nil
		}

		return false, fmt.Errorf("catalog: refreshing mentors: %w", err)
	}

	if err := b.cache.ReplaceMentors(ctx, mentors); err != nil {
		return false, err
	}

	return false, nil
}
