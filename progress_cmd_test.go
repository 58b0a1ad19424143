package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/edumentor/edumentor-go/internal/api"
)

func TestPrintProgressTable(t *testing.T) {
	records := []api.Progress{
		{
			CourseID:             "c-go",
			CompletionPercentage: 42,
			LastAccessed:         api.NewTime(time.Date(2026, time.August, 20, 9, 30, 0, 0, time.UTC)),
		},
		{
			CourseID:             "c-sql",
			CompletionPercentage: 88.5,
		},
	}

	output := captureStdout(t, func() {
		printProgressTable(records)
	})

	assert.Contains(t, output, "COURSE")
	assert.Contains(t, output, "COMPLETION")

	assert.Contains(t, output, "c-go")
	assert.Contains(t, output, "42.0%")
	assert.Contains(t, output, "c-sql")
	assert.Contains(t, output, "88.5%")

	// Zero last-access renders as "never".
	assert.Contains(t, output, "never")
}
