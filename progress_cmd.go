package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/edumentor/edumentor-go/internal/api"
	"github.com/edumentor/edumentor-go/internal/session"
)

func newProgressCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Inspect course progress",
	}

	cmd.AddCommand(newProgressListCmd())

	return cmd
}

func newProgressListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your progress as the server records it",
		RunE:  runProgressList,
	}
}

func runProgressList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	env, err := newAppEnv()
	if err != nil {
		return err
	}

	if _, err := env.requireRoute(ctx, session.RouteProgress); err != nil {
		return err
	}

	records, err := env.client.ListProgress(ctx)
	if err != nil {
		return fmt.Errorf("listing progress: %w", err)
	}

	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(records)
	}

	printProgressTable(records)

	return nil
}

func printProgressTable(records []api.Progress) {
	headers := []string{"COURSE", "COMPLETION", "LAST ACCESSED"}
	rows := make([][]string, 0, len(records))

	for i := range records {
		p := &records[i]
		rows = append(rows, []string{
			p.CourseID,
			formatPercent(p.CompletionPercentage),
			formatTime(p.LastAccessed.Time),
		})
	}

	printTable(os.Stdout, headers, rows)
}
