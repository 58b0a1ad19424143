package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/edumentor/edumentor-go/internal/api"
	"github.com/edumentor/edumentor-go/internal/catalog"
	"github.com/edumentor/edumentor-go/internal/config"
	"github.com/edumentor/edumentor-go/internal/session"
)

func newCoursesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "courses",
		Short: "Browse the course catalog",
	}

	cmd.AddCommand(newCoursesListCmd())
	cmd.AddCommand(newCoursesShowCmd())

	return cmd
}

func newCoursesListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List published courses",
		Long: `List published courses from the local catalog cache, refreshing from
the server when the cache is stale. Category and level filters match
exactly; --search matches the title and description case-insensitively.`,
		RunE: runCoursesList,
	}

	cmd.Flags().String("category", "", "filter by category")
	cmd.Flags().String("level", "", "filter by level (beginner, intermediate, advanced)")
	cmd.Flags().String("search", "", "search titles and descriptions")
	cmd.Flags().Bool("refresh", false, "force a fetch from the server")

	return cmd
}

func newCoursesShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <course-id>",
		Short: "Display one course in detail",
		Args:  cobra.ExactArgs(1),
		RunE:  runCoursesShow,
	}

	cmd.Flags().Bool("refresh", false, "force a fetch from the server")

	return cmd
}

// openBrowser builds the catalog browser over the on-disk cache. The caller
// must close the returned cache.
func openBrowser(env *appEnv) (*catalog.Browser, *catalog.Cache, error) {
	cache, err := catalog.Open(config.CatalogPath(env.cfg.StateDir), env.logger)
	if err != nil {
		return nil, nil, err
	}

	browser := catalog.NewBrowser(cache, env.client, env.cfg.CatalogTTL.Std(), env.logger)

	return browser, cache, nil
}

// browseEnv resolves the session for a catalog surface and opens the
// browser. Catalog surfaces are open to anonymous users; resolution still
// runs first so an authenticated caller browses with their credential.
func browseEnv(ctx context.Context, route session.Route) (*appEnv, *catalog.Browser, *catalog.Cache, error) {
	env, err := newAppEnv()
	if err != nil {
		return nil, nil, nil, err
	}

	if _, err := env.requireRoute(ctx, route); err != nil {
		return nil, nil, nil, err
	}

	browser, cache, err := openBrowser(env)
	if err != nil {
		return nil, nil, nil, err
	}

	return env, browser, cache, nil
}

func runCoursesList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	category, _ := cmd.Flags().GetString("category")
	level, _ := cmd.Flags().GetString("level")
	search, _ := cmd.Flags().GetString("search")
	refresh, _ := cmd.Flags().GetBool("refresh")

	_, browser, cache, err := browseEnv(ctx, session.RouteCourses)
	if err != nil {
		return err
	}
	defer cache.Close()

	filter := api.CourseFilter{Category: category, Level: level, Search: search}

	courses, stale, err := browser.Courses(ctx, filter, refresh)
	if err != nil {
		return fmt.Errorf("listing courses: %w", err)
	}

	if stale {
		statusf("Server unreachable; showing cached results.\n")
	}

	if flagJSON {
		return printCoursesJSON(courses)
	}

	printCoursesTable(courses)

	return nil
}

// courseJSON is the JSON output schema for course listings.
type courseJSON struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Category      string   `json:"category"`
	Level         string   `json:"level"`
	DurationHours int      `json:"duration_hours"`
	Price         float64  `json:"price"`
	Tags          []string `json:"tags,omitempty"`
}

func printCoursesJSON(courses []api.Course) error {
	out := make([]courseJSON, 0, len(courses))
	for i := range courses {
		c := &courses[i]
		out = append(out, courseJSON{
			ID:            c.ID,
			Title:         c.Title,
			Category:      c.Category,
			Level:         c.Level,
			DurationHours: c.DurationHours,
			Price:         c.Price,
			Tags:          c.Tags,
		})
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	return enc.Encode(out)
}

func printCoursesTable(courses []api.Course) {
	headers := []string{"ID", "TITLE", "CATEGORY", "LEVEL", "HOURS", "PRICE"}
	rows := make([][]string, 0, len(courses))

	for i := range courses {
		c := &courses[i]
		rows = append(rows, []string{
			c.ID,
			truncate(c.Title, 40),
			c.Category,
			c.Level,
			fmt.Sprintf("%d", c.DurationHours),
			fmt.Sprintf("%.2f", c.Price),
		})
	}

	printTable(os.Stdout, headers, rows)
}

func runCoursesShow(cmd *cobra.Command, args []string) error {
	courseID := args[0]
	ctx := cmd.Context()

	refresh, _ := cmd.Flags().GetBool("refresh")

	_, browser, cache, err := browseEnv(ctx, session.RouteCourses)
	if err != nil {
		return err
	}
	defer cache.Close()

	course, stale, err := browser.Course(ctx, courseID, refresh)
	if err != nil {
		return fmt.Errorf("fetching course %s: %w", courseID, err)
	}

	if stale {
		statusf("Server unreachable; showing cached course.\n")
	}

	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(course)
	}

	printCourseDetail(course)

	return nil
}

func printCourseDetail(c *api.Course) {
	fmt.Printf("Title:       %s\n", c.Title)
	fmt.Printf("ID:          %s\n", c.ID)
	fmt.Printf("Category:    %s (%s)\n", c.Category, c.Level)
	fmt.Printf("Duration:    %d hours\n", c.DurationHours)
	fmt.Printf("Price:       %.2f\n", c.Price)

	if len(c.Tags) > 0 {
		fmt.Printf("Tags:        %s\n", strings.Join(c.Tags, ", "))
	}

	if !c.IsPublished {
		fmt.Printf("Published:   no\n")
	}

	if c.Description != "" {
		fmt.Printf("\n%s\n", c.Description)
	}
}
