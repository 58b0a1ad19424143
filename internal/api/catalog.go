package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// Courses lists published catalog entries, optionally narrowed by category,
// level, or a free-text search the backend applies to titles and
// descriptions.
func (c *Client) Courses(ctx context.Context, filter CourseFilter) ([]Course, error) {
	q := url.Values{}

	if filter.Category != "" {
		q.Set("category", filter.Category)
	}

	if filter.Level != "" {
		q.Set("level", filter.Level)
	}

	if filter.Search != "" {
		q.Set("search", filter.Search)
	}

	path := "/courses"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	c.logger.Info("listing courses")

	resp, err := c.Do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var courses []Course
	if err := json.NewDecoder(resp.Body).Decode(&courses); err != nil {
		return nil, fmt.Errorf("api: decoding courses response: %w", err)
	}

	c.logger.Debug("listed courses",
		slog.Int("count", len(courses)),
	)

	return courses, nil
}

// Course returns a single catalog entry by ID.
func (c *Client) Course(ctx context.Context, courseID string) (*Course, error) {
	c.logger.Info("fetching course",
		slog.String("course_id", courseID),
	)

	resp, err := c.Do(ctx, http.MethodGet, fmt.Sprintf("/courses/%s", courseID), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var course Course
	if err := json.NewDecoder(resp.Body).Decode(&course); err != nil {
		return nil, fmt.Errorf("api: decoding course response: %w", err)
	}

	return &course, nil
}

// Mentors lists active mentor accounts, optionally filtered to those
// covering at least one of the given skills.
func (c *Client) Mentors(ctx context.Context, skills []string) ([]Identity, error) {
	path := "/mentors"

	if len(skills) > 0 {
		q := url.Values{}
		q.Set("skills", strings.Join(skills, ","))
		path += "?" + q.Encode()
	}

	c.logger.Info("listing mentors")

	resp, err := c.Do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var mentors []Identity
	if err := json.NewDecoder(resp.Body).Decode(&mentors); err != nil {
		return nil, fmt.Errorf("api: decoding mentors response: %w", err)
	}

	c.logger.Debug("listed mentors",
		slog.Int("count", len(mentors)),
	)

	return mentors, nil
}
