package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/edumentor/edumentor-go/internal/config"
	"github.com/edumentor/edumentor-go/internal/credfile"
	"github.com/edumentor/edumentor-go/internal/progress"
	"github.com/edumentor/edumentor-go/internal/session"
)

func newStudyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "study <course-id>...",
		Short: "Track and sync study progress",
		Long: `Start a study session for one or more courses. The command tails the
playback spool (a JSON-lines file your media player appends to), keeps a
local high-water completion mark per course, and reconciles it with the
server in the background. Progress never moves backwards.

Stop with Ctrl-C; pending progress is flushed before exit.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runStudy,
	}
}

func runStudy(cmd *cobra.Command, args []string) error {
	env, err := newAppEnv()
	if err != nil {
		return err
	}

	if _, err := env.requireRoute(cmd.Context(), session.RouteStudy); err != nil {
		return err
	}

	// One study session per state dir: two tailers on the same spool would
	// double-count playback events.
	releasePID, err := writePIDFile(config.StudyPIDPath(env.cfg.StateDir))
	if err != nil {
		return err
	}
	defer releasePID()

	sync := progress.NewSynchronizer(env.session, env.client, env.cfg.SyncDebounce.Std(), env.logger)

	for _, courseID := range args {
		if !sync.Enroll(courseID) {
			return fmt.Errorf("not logged in — run 'edumentor login' first")
		}
	}

	// Seed from the server so resuming a course starts from the best known
	// mark. Starting offline is fine; local marks win on the next sync.
	if err := sync.Hydrate(cmd.Context()); err != nil {
		env.logger.Warn("could not hydrate progress from server",
			"error", err.Error(),
		)
		statusf("Server unreachable; starting from local state.\n")
	}

	ctx := shutdownContext(cmd.Context(), env.logger)

	tailer := progress.NewTailer(env.cfg.SpoolPath, sync.PlaybackEvent, env.logger)
	watcher := credfile.NewWatcher(env.store.Path(), 0, env.logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return sync.Run(gctx)
	})

	g.Go(func() error {
		return tailer.Run(gctx)
	})

	// Follow out-of-band logins and logouts; the synchronizer drops its
	// records when the session generation moves.
	g.Go(func() error {
		return watcher.Run(gctx, func() {
			env.session.Refresh(context.Background())
		})
	})

	if isTerminal(os.Stderr) && !flagQuiet {
		g.Go(func() error {
			return renderProgress(gctx, sync)
		})
	}

	statusf("Studying %d course(s); spool: %s. Press Ctrl-C to stop.\n",
		len(args), env.cfg.SpoolPath)

	err = g.Wait()

	// The run loop flushes on shutdown with a short internal budget; give
	// anything still pending one more attempt under the configured one.
	flushCtx, cancel := context.WithTimeout(context.Background(), env.cfg.ShutdownTimeout.Std())
	defer cancel()

	if flushErr := sync.Flush(flushCtx); flushErr != nil {
		env.logger.Warn("final progress flush incomplete",
			"error", flushErr.Error(),
		)
	}

	printStudySummary(sync.Records())

	return err
}

// renderProgress prints progress lines while studying. It reports only on
// change, so an idle session stays quiet.
func renderProgress(ctx context.Context, sync *progress.Synchronizer) error {
	last := make(map[string]progress.Record)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		for _, rec := range sync.Records() {
			prev, seen := last[rec.CourseID]
			if seen && prev.Local == rec.Local && prev.LastSynced == rec.LastSynced {
				continue
			}

			last[rec.CourseID] = rec

			state := "synced"
			if rec.Pending {
				state = "pending"
			}

			fmt.Fprintf(os.Stderr, "%s  %s  (%s)\n",
				rec.CourseID, formatPercent(rec.Local), state)
		}
	}
}

// studyRecordJSON is the JSON output schema for the end-of-study summary.
type studyRecordJSON struct {
	CourseID     string  `json:"course_id"`
	Local        float64 `json:"local"`
	Synced       float64 `json:"synced"`
	Pending      bool    `json:"pending"`
	LastSyncedAt string  `json:"last_synced_at,omitempty"`
}

func printStudySummary(records []progress.Record) {
	if len(records) == 0 {
		return
	}

	if flagJSON {
		out := make([]studyRecordJSON, 0, len(records))

		for _, rec := range records {
			entry := studyRecordJSON{
				CourseID: rec.CourseID,
				Local:    rec.Local,
				Synced:   rec.LastSynced,
				Pending:  rec.Pending,
			}
			if !rec.LastSyncedAt.IsZero() {
				entry.LastSyncedAt = rec.LastSyncedAt.UTC().Format(time.RFC3339)
			}

			out = append(out, entry)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		if err := enc.Encode(out); err != nil {
			fmt.Fprintf(os.Stderr, "encoding summary: %v\n", err)
		}

		return
	}

	headers := []string{"COURSE", "LOCAL", "SYNCED", "LAST SYNC"}
	rows := make([][]string, 0, len(records))

	for _, rec := range records {
		rows = append(rows, []string{
			rec.CourseID,
			formatPercent(rec.Local),
			formatPercent(rec.LastSynced),
			formatTime(rec.LastSyncedAt),
		})
	}

	printTable(os.Stdout, headers, rows)
}
