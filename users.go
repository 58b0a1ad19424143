package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/edumentor/edumentor-go/internal/api"
	"github.com/edumentor/edumentor-go/internal/session"
)

func newUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Administer platform users",
	}

	cmd.AddCommand(newUsersListCmd())

	return cmd
}

func newUsersListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all users (admin only)",
		RunE:  runUsersList,
	}
}

func runUsersList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	env, err := newAppEnv()
	if err != nil {
		return err
	}

	// The admin capability is checked locally for a fast, friendly error;
	// the server enforces it authoritatively regardless.
	if _, err := env.requireRoute(ctx, session.RouteUsers); err != nil {
		return err
	}

	users, err := env.client.Users(ctx)
	if err != nil {
		if errors.Is(err, api.ErrForbidden) {
			return fmt.Errorf("the server rejected admin access for this account")
		}

		return fmt.Errorf("listing users: %w", err)
	}

	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(users)
	}

	printUsersTable(users)

	return nil
}

func printUsersTable(users []api.Identity) {
	headers := []string{"ID", "NAME", "EMAIL", "ROLE", "ACTIVE"}
	rows := make([][]string, 0, len(users))

	for i := range users {
		u := &users[i]

		active := "yes"
		if !u.IsActive {
			active = "no"
		}

		rows = append(rows, []string{
			u.ID,
			u.FullName,
			u.Email,
			string(u.Role),
			active,
		})
	}

	printTable(os.Stdout, headers, rows)
}
