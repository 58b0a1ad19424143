package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/edumentor/edumentor-go/internal/api"
)

func TestPrintUsersTable(t *testing.T) {
	users := []api.Identity{
		{
			ID:       "u-1",
			FullName: "Alice Chen",
			Email:    "alice@example.com",
			Role:     api.RoleMentor,
			IsActive: true,
		},
		{
			ID:       "u-2",
			FullName: "Bob Okafor",
			Email:    "bob@example.com",
			Role:     api.RoleStudent,
			IsActive: false,
		},
	}

	output := captureStdout(t, func() {
		printUsersTable(users)
	})

	assert.Contains(t, output, "EMAIL")
	assert.Contains(t, output, "ROLE")
	assert.Contains(t, output, "ACTIVE")

	assert.Contains(t, output, "alice@example.com")
	assert.Contains(t, output, "mentor")
	assert.Contains(t, output, "yes")

	assert.Contains(t, output, "bob@example.com")
	assert.Contains(t, output, "student")
	assert.Contains(t, output, "no")
}
