package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/edumentor/edumentor-go/internal/api"
	"github.com/edumentor/edumentor-go/internal/session"
)

func newMentorsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mentors",
		Short: "Browse available mentors",
	}

	cmd.AddCommand(newMentorsListCmd())

	return cmd
}

func newMentorsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List active mentors",
		Long: `List active mentors from the local catalog cache, refreshing from the
server when the cache is stale. With --skills, a mentor is listed when
they cover at least one of the given skills.`,
		RunE: runMentorsList,
	}

	cmd.Flags().StringSlice("skills", nil, "filter by skills, comma-separated")
	cmd.Flags().Bool("refresh", false, "force a fetch from the server")

	return cmd
}

func runMentorsList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	skills, _ := cmd.Flags().GetStringSlice("skills")
	refresh, _ := cmd.Flags().GetBool("refresh")

	_, browser, cache, err := browseEnv(ctx, session.RouteMentors)
	if err != nil {
		return err
	}
	defer cache.Close()

	mentors, stale, err := browser.Mentors(ctx, skills, refresh)
	if err != nil {
		return fmt.Errorf("listing mentors: %w", err)
	}

	if stale {
		statusf("Server unreachable; showing cached results.\n")
	}

	if flagJSON {
		return printMentorsJSON(mentors)
	}

	printMentorsTable(mentors)

	return nil
}

// mentorJSON is the JSON output schema for mentor listings.
type mentorJSON struct {
	ID       string   `json:"id"`
	FullName string   `json:"full_name"`
	Email    string   `json:"email"`
	Skills   []string `json:"skills,omitempty"`
	Bio      string   `json:"bio,omitempty"`
}

func printMentorsJSON(mentors []api.Identity) error {
	out := make([]mentorJSON, 0, len(mentors))
	for i := range mentors {
		m := &mentors[i]
		out = append(out, mentorJSON{
			ID:       m.ID,
			FullName: m.FullName,
			Email:    m.Email,
			Skills:   m.Skills,
			Bio:      m.Bio,
		})
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	return enc.Encode(out)
}

func printMentorsTable(mentors []api.Identity) {
	headers := []string{"ID", "NAME", "SKILLS", "BIO"}
	rows := make([][]string, 0, len(mentors))

	for i := range mentors {
		m := &mentors[i]
		rows = append(rows, []string{
			m.ID,
			m.FullName,
			truncate(strings.Join(m.Skills, ", "), 40),
			truncate(m.Bio, 40),
		})
	}

	printTable(os.Stdout, headers, rows)
}
