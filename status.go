package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/edumentor/edumentor-go/internal/catalog"
	"github.com/edumentor/edumentor-go/internal/config"
	"github.com/edumentor/edumentor-go/internal/credfile"
)

// Credential state constants for status reporting.
const (
	credentialStatePresent = "present"
	credentialStateNone    = "none"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show local client state",
		Long: `Display the client's local state: effective config source, credential
presence, catalog cache contents, and playback spool backlog.

Reads only local files — does not contact the server or validate the
credential.`,
		RunE: runStatus,
	}
}

// statusOutput is the JSON schema for `status --json`.
type statusOutput struct {
	ConfigFile string        `json:"config_file,omitempty"`
	ServerURL  string        `json:"server_url"`
	StateDir   string        `json:"state_dir"`
	Credential string        `json:"credential"`
	Catalog    statusCatalog `json:"catalog"`
	Spool      statusSpool   `json:"spool"`
	Study      statusStudy   `json:"study"`
}

type statusCatalog struct {
	Courses          int    `json:"courses"`
	Mentors          int    `json:"mentors"`
	CoursesFetchedAt string `json:"courses_fetched_at,omitempty"`
	MentorsFetchedAt string `json:"mentors_fetched_at,omitempty"`
}

type statusSpool struct {
	Path    string `json:"path"`
	Backlog int64  `json:"backlog_bytes"`
}

type statusStudy struct {
	Running bool `json:"running"`
	PID     int  `json:"pid,omitempty"`
}

func runStatus(cmd *cobra.Command, _ []string) error {
	logger := buildLogger()
	cfg := resolvedCfg

	out := statusOutput{
		ConfigFile: cfg.Path,
		ServerURL:  cfg.ServerURL,
		StateDir:   cfg.StateDir,
		Credential: credentialStateNone,
		Spool:      statusSpool{Path: cfg.SpoolPath},
	}

	if credfile.Exists(config.CredentialPath(cfg.StateDir)) {
		out.Credential = credentialStatePresent
	}

	// Only open the catalog if it already exists; status must not create
	// state as a side effect.
	catalogPath := config.CatalogPath(cfg.StateDir)
	if _, err := os.Stat(catalogPath); err == nil {
		cache, err := catalog.Open(catalogPath, logger)
		if err != nil {
			return fmt.Errorf("opening catalog cache: %w", err)
		}
		defer cache.Close()

		stats, err := cache.Stats(cmd.Context())
		if err != nil {
			return err
		}

		out.Catalog = statusCatalog{
			Courses:          stats.Courses,
			Mentors:          stats.Mentors,
			CoursesFetchedAt: rfc3339OrEmpty(stats.CoursesFetchedAt),
			MentorsFetchedAt: rfc3339OrEmpty(stats.MentorsFetchedAt),
		}
	}

	if info, err := os.Stat(cfg.SpoolPath); err == nil {
		out.Spool.Backlog = info.Size()
	} else if !errors.Is(err, fs.ErrNotExist) {
		logger.Debug("could not stat playback spool", "error", err)
	}

	if pid, ok := runningPID(config.StudyPIDPath(cfg.StateDir)); ok {
		out.Study = statusStudy{Running: true, PID: pid}
	}

	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(out)
	}

	printStatusText(cmd.Context(), &out)

	return nil
}

func rfc3339OrEmpty(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	return t.UTC().Format(time.RFC3339)
}

func printStatusText(_ context.Context, out *statusOutput) {
	configFile := out.ConfigFile
	if configFile == "" {
		configFile = "(defaults)"
	}

	fmt.Printf("Config:     %s\n", configFile)
	fmt.Printf("Server:     %s\n", out.ServerURL)
	fmt.Printf("State dir:  %s\n", out.StateDir)
	fmt.Printf("Credential: %s\n", out.Credential)

	fmt.Printf("Catalog:    %d courses (%s), %d mentors (%s)\n",
		out.Catalog.Courses, agoOrNever(out.Catalog.CoursesFetchedAt),
		out.Catalog.Mentors, agoOrNever(out.Catalog.MentorsFetchedAt))

	fmt.Printf("Spool:      %s (%s backlog)\n", out.Spool.Path, formatSize(out.Spool.Backlog))

	if out.Study.Running {
		fmt.Printf("Study:      running (PID %d)\n", out.Study.PID)
	} else {
		fmt.Printf("Study:      not running\n")
	}
}

// agoOrNever renders a stored RFC 3339 stamp as a freshness phrase.
func agoOrNever(stamp string) string {
	if stamp == "" {
		return "never fetched"
	}

	t, err := time.Parse(time.RFC3339, stamp)
	if err != nil {
		return stamp
	}

	return "fetched " + formatAgo(t)
}
