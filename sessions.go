package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/edumentor/edumentor-go/internal/api"
	"github.com/edumentor/edumentor-go/internal/session"
)

func newSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Book and list mentorship sessions",
	}

	cmd.AddCommand(newSessionsBookCmd())
	cmd.AddCommand(newSessionsListCmd())

	return cmd
}

func newSessionsBookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "book",
		Short: "Book a mentorship session",
		Long: `Book a session with a mentor. --at accepts RFC 3339
(2026-09-01T15:00:00Z) or "2026-09-01 15:00" in local time.`,
		RunE: runSessionsBook,
	}

	cmd.Flags().String("mentor", "", "mentor ID (required)")
	cmd.Flags().String("title", "", "session title (required)")
	cmd.Flags().String("description", "", "what you want to cover")
	cmd.Flags().String("at", "", "scheduled time (required)")
	cmd.Flags().Int("duration", 60, "duration in minutes")

	return cmd
}

func newSessionsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your mentorship sessions",
		RunE:  runSessionsList,
	}
}

// parseScheduledAt parses the --at flag. RFC 3339 carries its own offset;
// the short form is interpreted in local time because that is what a person
// typing a meeting time means.
func parseScheduledAt(s string) (api.Time, error) {
	if v, err := time.Parse(time.RFC3339, s); err == nil {
		return api.NewTime(v), nil
	}

	if v, err := time.ParseInLocation("2006-01-02 15:04", s, time.Local); err == nil {
		return api.NewTime(v), nil
	}

	return api.Time{}, fmt.Errorf("unrecognized time %q: use RFC 3339 or \"2006-01-02 15:04\"", s)
}

func runSessionsBook(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	mentorID, _ := cmd.Flags().GetString("mentor")
	title, _ := cmd.Flags().GetString("title")
	description, _ := cmd.Flags().GetString("description")
	at, _ := cmd.Flags().GetString("at")
	duration, _ := cmd.Flags().GetInt("duration")

	if at == "" {
		return fmt.Errorf("--at is required")
	}

	scheduledAt, err := parseScheduledAt(at)
	if err != nil {
		return err
	}

	env, err := newAppEnv()
	if err != nil {
		return err
	}

	if _, err := env.requireRoute(ctx, session.RouteSessions); err != nil {
		return err
	}

	booked, err := env.client.BookSession(ctx, api.BookingInput{
		MentorID:        mentorID,
		Title:           title,
		Description:     description,
		ScheduledAt:     scheduledAt,
		DurationMinutes: duration,
	})
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return fmt.Errorf("mentor %s not found", mentorID)
		}

		return fmt.Errorf("booking session: %w", err)
	}

	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(booked)
	}

	statusf("Session booked.\n")
	printSessionDetail(booked)

	return nil
}

func printSessionDetail(s *api.MentorshipSession) {
	fmt.Printf("Title:     %s\n", s.Title)
	fmt.Printf("ID:        %s\n", s.ID)
	fmt.Printf("Mentor:    %s\n", s.MentorID)
	fmt.Printf("Scheduled: %s (%d min)\n", formatTime(s.ScheduledAt.Time), s.DurationMinutes)
	fmt.Printf("Status:    %s\n", s.Status)

	if s.MeetingLink != "" {
		fmt.Printf("Meeting:   %s\n", s.MeetingLink)
	}
}

func runSessionsList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	env, err := newAppEnv()
	if err != nil {
		return err
	}

	snap, err := env.requireRoute(ctx, session.RouteSessions)
	if err != nil {
		return err
	}

	sessions, err := env.client.Sessions(ctx)
	if err != nil {
		return fmt.Errorf("listing sessions: %w", err)
	}

	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(sessions)
	}

	printSessionsTable(sessions, snap.Identity.ID)

	return nil
}

// printSessionsTable renders sessions with a WITH column naming the other
// party: the mentor for sessions the user booked, the student for sessions
// booked with them.
func printSessionsTable(sessions []api.MentorshipSession, selfID string) {
	headers := []string{"ID", "TITLE", "WITH", "SCHEDULED", "MIN", "STATUS"}
	rows := make([][]string, 0, len(sessions))

	for i := range sessions {
		s := &sessions[i]

		with := s.MentorID
		if s.MentorID == selfID {
			with = s.StudentID
		}

		rows = append(rows, []string{
			s.ID,
			truncate(s.Title, 30),
			with,
			formatTime(s.ScheduledAt.Time),
			fmt.Sprintf("%d", s.DurationMinutes),
			s.Status,
		})
	}

	printTable(os.Stdout, headers, rows)
}
