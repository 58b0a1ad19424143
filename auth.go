package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/edumentor/edumentor-go/internal/api"
	"github.com/edumentor/edumentor-go/internal/session"
)

// readPasswordFunc reads a password without echo. Mockable for tests.
var readPasswordFunc = term.ReadPassword

func newLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login <email>",
		Short: "Sign in to EduMentor",
		Long: `Sign in with your EduMentor account. The password is prompted without
echo; pass --password only in scripts where prompting is impossible.

Logging in while already signed in replaces the current session.`,
		Args: cobra.ExactArgs(1),
		RunE: runLogin,
	}

	cmd.Flags().String("password", "", "password (prompted when omitted)")

	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and remove the saved credential",
		RunE:  runLogout,
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Display the signed-in user",
		RunE:  runWhoami,
	}
}

func newRegisterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register <email>",
		Short: "Create an EduMentor account",
		Long: `Create a new account. Registration does not sign you in; run
'edumentor login' afterwards.`,
		Args: cobra.ExactArgs(1),
		RunE: runRegister,
	}

	cmd.Flags().String("name", "", "full name (required)")
	cmd.Flags().String("role", "student", "account role: student or mentor")
	cmd.Flags().String("password", "", "password (prompted when omitted)")
	cmd.Flags().StringSlice("skills", nil, "skills, comma-separated (mentors)")
	cmd.Flags().StringSlice("interests", nil, "interests, comma-separated")
	cmd.Flags().String("bio", "", "short bio")

	return cmd
}

// promptPassword asks for a password on the terminal without echo, falling
// back to a plain line read when stdin is not a terminal so piped input
// keeps working.
func promptPassword(prompt string) (string, error) {
	if isTerminal(os.Stdin) {
		fmt.Fprint(os.Stderr, prompt)

		pwd, err := readPasswordFunc(int(syscall.Stdin))

		fmt.Fprintln(os.Stderr)

		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}

		return string(pwd), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading password from stdin: %w", err)
	}

	return strings.TrimRight(line, "\r\n"), nil
}

// passwordFromFlagOrPrompt returns the --password value when set, prompting
// otherwise.
func passwordFromFlagOrPrompt(cmd *cobra.Command) (string, error) {
	password, err := cmd.Flags().GetString("password")
	if err != nil {
		return "", err
	}

	if password != "" {
		return password, nil
	}

	password, err = promptPassword("Password: ")
	if err != nil {
		return "", err
	}

	if password == "" {
		return "", fmt.Errorf("password must not be empty")
	}

	return password, nil
}

func runLogin(cmd *cobra.Command, args []string) error {
	email := args[0]
	ctx := cmd.Context()

	env, err := newAppEnv()
	if err != nil {
		return err
	}

	// Resolve any stored session first so a replacement login transitions
	// cleanly instead of racing the startup resolution.
	env.session.Initialize(ctx)

	password, err := passwordFromFlagOrPrompt(cmd)
	if err != nil {
		return err
	}

	snap, err := env.session.Login(ctx, email, password)
	if err != nil {
		if errors.Is(err, api.ErrUnauthorized) {
			return fmt.Errorf("invalid email or password")
		}

		return fmt.Errorf("login failed: %w", err)
	}

	statusf("Logged in as %s (%s).\n", snap.Identity.FullName, snap.Identity.Role)

	return nil
}

func runLogout(cmd *cobra.Command, _ []string) error {
	env, err := newAppEnv()
	if err != nil {
		return err
	}

	snap := env.session.Initialize(cmd.Context())
	if !snap.Authenticated() {
		statusf("Not logged in.\n")

		return nil
	}

	env.session.Logout()
	statusf("Logged out.\n")

	return nil
}

// whoamiOutput is the JSON schema for `whoami --json`.
type whoamiOutput struct {
	ID        string   `json:"id"`
	Email     string   `json:"email"`
	FullName  string   `json:"full_name"`
	Role      string   `json:"role"`
	Skills    []string `json:"skills,omitempty"`
	Interests []string `json:"interests,omitempty"`
	Bio       string   `json:"bio,omitempty"`
}

func runWhoami(cmd *cobra.Command, _ []string) error {
	env, err := newAppEnv()
	if err != nil {
		return err
	}

	snap, err := env.requireRoute(cmd.Context(), session.RouteDashboard)
	if err != nil {
		return err
	}

	if flagJSON {
		return printWhoamiJSON(snap.Identity)
	}

	printWhoamiText(snap.Identity)

	return nil
}

func printWhoamiJSON(user *api.Identity) error {
	out := whoamiOutput{
		ID:        user.ID,
		Email:     user.Email,
		FullName:  user.FullName,
		Role:      string(user.Role),
		Skills:    user.Skills,
		Interests: user.Interests,
		Bio:       user.Bio,
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}

	return nil
}

func printWhoamiText(user *api.Identity) {
	fmt.Printf("User:  %s (%s)\n", user.FullName, user.Email)
	fmt.Printf("Role:  %s\n", user.Role)
	fmt.Printf("ID:    %s\n", user.ID)

	if len(user.Skills) > 0 {
		fmt.Printf("Skills:    %s\n", strings.Join(user.Skills, ", "))
	}

	if len(user.Interests) > 0 {
		fmt.Printf("Interests: %s\n", strings.Join(user.Interests, ", "))
	}
}

func runRegister(cmd *cobra.Command, args []string) error {
	email := args[0]
	ctx := cmd.Context()

	env, err := newAppEnv()
	if err != nil {
		return err
	}

	name, _ := cmd.Flags().GetString("name")
	role, _ := cmd.Flags().GetString("role")
	skills, _ := cmd.Flags().GetStringSlice("skills")
	interests, _ := cmd.Flags().GetStringSlice("interests")
	bio, _ := cmd.Flags().GetString("bio")

	password, err := passwordFromFlagOrPrompt(cmd)
	if err != nil {
		return err
	}

	input := api.RegisterInput{
		Email:     email,
		Password:  password,
		FullName:  name,
		Role:      api.Role(role),
		Skills:    skills,
		Interests: interests,
		Bio:       bio,
	}

	identity, err := env.session.Register(ctx, input)
	if err != nil {
		if errors.Is(err, api.ErrConflict) {
			return fmt.Errorf("an account with email %s already exists", email)
		}

		return fmt.Errorf("registration failed: %w", err)
	}

	statusf("Account created for %s (%s).\n", identity.FullName, identity.Email)
	statusf("Run 'edumentor login %s' to sign in.\n", identity.Email)

	return nil
}
