package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRegisterInput() RegisterInput {
	return RegisterInput{
		Email:    "maya@example.com",
		Password: "hunter22",
		FullName: "Maya Chen",
		Role:     RoleStudent,
	}
}

func TestValidateRegisterInput_Valid(t *testing.T) {
	assert.NoError(t, validateInput(validRegisterInput()))
}

func TestValidateRegisterInput_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*RegisterInput)
		message string
	}{
		{
			"missing email",
			func(in *RegisterInput) { in.Email = "" },
			"email: required",
		},
		{
			"malformed email",
			func(in *RegisterInput) { in.Email = "not-an-email" },
			"email: must be a valid email address",
		},
		{
			"short password",
			func(in *RegisterInput) { in.Password = "abc" },
			"password: must be at least 6 characters",
		},
		{
			"missing full name",
			func(in *RegisterInput) { in.FullName = "" },
			"full_name: required",
		},
		{
			"unknown role",
			func(in *RegisterInput) { in.Role = Role("wizard") },
			"role: must be one of: student, mentor",
		},
		{
			"admin role not self-service",
			func(in *RegisterInput) { in.Role = RoleAdmin },
			"role: must be one of: student, mentor",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validRegisterInput()
			tt.mutate(&in)

			err := validateInput(in)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrValidation)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestValidateRegisterInput_MultipleErrorsJoined(t *testing.T) {
	err := validateInput(RegisterInput{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)

	// All failing fields appear, by their wire names.
	assert.Contains(t, err.Error(), "email")
	assert.Contains(t, err.Error(), "password")
	assert.Contains(t, err.Error(), "full_name")
	assert.Contains(t, err.Error(), "role")
}

func validBookingInput() BookingInput {
	return BookingInput{
		MentorID:        "user-7",
		Title:           "Code review",
		ScheduledAt:     NewTime(time.Date(2025, 6, 1, 15, 0, 0, 0, time.UTC)),
		DurationMinutes: 60,
	}
}

func TestValidateBookingInput_Valid(t *testing.T) {
	assert.NoError(t, validateInput(validBookingInput()))
}

func TestValidateBookingInput_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*BookingInput)
		message string
	}{
		{
			"missing mentor",
			func(in *BookingInput) { in.MentorID = "" },
			"mentor_id: required",
		},
		{
			"missing title",
			func(in *BookingInput) { in.Title = "" },
			"title: required",
		},
		{
			"zero duration",
			func(in *BookingInput) { in.DurationMinutes = 0 },
			"duration_minutes: must be greater than 0",
		},
		{
			"negative duration",
			func(in *BookingInput) { in.DurationMinutes = -15 },
			"duration_minutes: must be greater than 0",
		},
		{
			"duration over eight hours",
			func(in *BookingInput) { in.DurationMinutes = 500 },
			"duration_minutes: must be at most 480",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validBookingInput()
			tt.mutate(&in)

			err := validateInput(in)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrValidation)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}
