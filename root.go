package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/edumentor/edumentor-go/internal/api"
	"github.com/edumentor/edumentor-go/internal/config"
	"github.com/edumentor/edumentor-go/internal/credfile"
	"github.com/edumentor/edumentor-go/internal/session"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagServer     string
	flagStateDir   string
	flagJSON       bool
	flagVerbose    bool
	flagQuiet      bool
)

// resolvedCfg holds the effective configuration loaded by PersistentPreRunE.
// It is available to all subcommands after the root pre-run phase completes.
var resolvedCfg *config.Config

// skipConfigCommands lists commands that must run even when the config file
// is broken. `config init` exists to write a fresh file; failing its pre-run
// on the file it is about to replace would lock the user out. Uses
// CommandPath() for explicit matching.
var skipConfigCommands = map[string]bool{
	"edumentor config init": true,
}

// newRootCmd builds and returns the fully-assembled root command with all
// subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "edumentor",
		Short:   "EduMentor CLI client",
		Long:    "A command-line client for the EduMentor learning platform: browse courses, book mentors, chat, and keep study progress in sync.",
		Version: version,
		// Silence Cobra's default error/usage printing — we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if skipConfigCommands[cmd.CommandPath()] {
				return nil
			}

			return loadConfig(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().StringVar(&flagServer, "server", "", "backend server URL (e.g., http://localhost:8000)")
	cmd.PersistentFlags().StringVar(&flagStateDir, "state-dir", "", "state directory for credential and caches")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")

	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	// Register subcommands.
	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newLogoutCmd())
	cmd.AddCommand(newWhoamiCmd())
	cmd.AddCommand(newRegisterCmd())
	cmd.AddCommand(newCoursesCmd())
	cmd.AddCommand(newMentorsCmd())
	cmd.AddCommand(newSessionsCmd())
	cmd.AddCommand(newChatCmd())
	cmd.AddCommand(newProgressCmd())
	cmd.AddCommand(newStudyCmd())
	cmd.AddCommand(newUsersCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

// loadConfig resolves the effective configuration from the four-layer
// override chain and stores the result in resolvedCfg for use by
// subcommands.
func loadConfig(cmd *cobra.Command) error {
	cli := config.CLIOverrides{
		ConfigPath: flagConfigPath,
	}

	// Only pass a flag to the resolver if the user explicitly set it, so an
	// empty flag value does not clobber file or env settings.
	if cmd.Flags().Changed("server") {
		cli.ServerURL = &flagServer
	}

	if cmd.Flags().Changed("state-dir") {
		cli.StateDir = &flagStateDir
	}

	env := config.ReadEnvOverrides()

	resolved, err := config.Resolve(env, cli)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	resolvedCfg = resolved

	return nil
}

// buildLogger creates an slog.Logger configured by the resolved config and
// CLI flags. Config-file log level provides the baseline; --verbose and
// --quiet override it because CLI flags always win. The handler format
// follows log_format: "text", "json", or "auto", which picks JSON when
// stderr is not a terminal so piped logs stay machine-readable.
func buildLogger() *slog.Logger {
	level := slog.LevelInfo
	format := "auto"

	if resolvedCfg != nil {
		switch resolvedCfg.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}

		format = resolvedCfg.LogFormat
	}

	// CLI flags override config (highest priority).
	if flagVerbose {
		level = slog.LevelDebug
	}

	if flagQuiet {
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if format == "json" || (format == "auto" && !isTerminal(os.Stderr)) {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}

	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// isTerminal reports whether the file is an interactive terminal.
func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// appEnv bundles the long-lived objects a command needs: resolved config, a
// logger, the credential store, the backend client, and the session
// manager. Built once per command invocation by newAppEnv.
type appEnv struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *credfile.Store
	client  *api.Client
	session *session.Manager
}

// sessionCredentials adapts the session manager to api.CredentialSource.
// The pointer bridge breaks the construction cycle: the client needs a
// credential source before the manager exists, and the manager needs the
// client as its backend. Until the manager is bound, requests go out
// anonymous, which is correct for the resolution probe itself.
type sessionCredentials struct {
	mgr *session.Manager
}

// Credential implements api.CredentialSource by reading the live session.
func (s *sessionCredentials) Credential() (string, bool) {
	if s.mgr == nil {
		return "", false
	}

	return s.mgr.Credential()
}

// newAppEnv wires the command environment from the resolved config.
func newAppEnv() (*appEnv, error) {
	logger := buildLogger()
	cfg := resolvedCfg

	if err := config.EnsureStateDir(cfg.StateDir); err != nil {
		return nil, err
	}

	store := credfile.NewStore(config.CredentialPath(cfg.StateDir))
	creds := &sessionCredentials{}
	httpClient := api.NewHTTPClient(cfg.ConnectTimeout.Std(), cfg.RequestTimeout.Std())
	client := api.NewClient(cfg.ServerURL, httpClient, creds, cfg.UserAgent, logger)
	mgr := session.NewManager(store, client, logger)
	creds.mgr = mgr

	return &appEnv{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		client:  client,
		session: mgr,
	}, nil
}

// requireRoute resolves the session and enforces the named surface's access
// rule, translating guard decisions into actionable CLI errors.
func (e *appEnv) requireRoute(ctx context.Context, route session.Route) (session.Snapshot, error) {
	snap := e.session.Initialize(ctx)

	decision := session.AuthorizeRoute(snap, route)

	switch decision.Effect {
	case session.EffectAllow:
		return snap, nil

	case session.EffectSuspend:
		// Initialize blocks until resolution completes, so this only fires
		// if a future caller checks before initializing.
		return snap, fmt.Errorf("session is still resolving, try again")

	default:
		if decision.Target == session.RouteLogin {
			return snap, fmt.Errorf("not logged in — run 'edumentor login' first")
		}

		required := session.RequiredCapability(route)
		if snap.Identity != nil {
			return snap, fmt.Errorf("requires the %s role (logged in as %s)", required, snap.Identity.Role)
		}

		return snap, fmt.Errorf("requires the %s role", required)
	}
}

// exitOnError prints a user-friendly error message to stderr and exits.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
