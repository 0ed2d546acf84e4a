package apperr_test

import (
	"errors"
	"fmt"
	"testing"

	"scms/backend/internal/apperr"

	"github.com/stretchr/testify/assert"
)

func TestNew_MatchesKind(t *testing.T) {
	err := apperr.New(apperr.ErrNotFound, "Complaint not found.")

	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.NotErrorIs(t, err, apperr.ErrForbidden)
	assert.Equal(t, "Complaint not found.", err.Error())
}

func TestNew_SurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("update status: %w", apperr.New(apperr.ErrForbidden, "Admin access required."))

	assert.ErrorIs(t, err, apperr.ErrForbidden)
	assert.Equal(t, "Admin access required.", apperr.Message(err))
}

func TestMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "plain error", err: errors.New("boom"), want: "boom"},
		{name: "kind without message", err: apperr.New(apperr.ErrConflict, ""), want: "conflict"},
		{name: "kind with message", err: apperr.New(apperr.ErrInvalidInput, "Text is required."), want: "Text is required."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, apperr.Message(tt.err))
		})
	}
}
