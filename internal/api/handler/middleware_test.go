package handler

import (
	"errors"
	"fmt"
	"testing"

	"scms/backend/internal/apperr"

	"github.com/stretchr/testify/assert"
)

func TestAuditReason(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "classified", err: apperr.New(apperr.ErrConflict, "An account with this email already exists."), want: "An account with this email already exists."},
		{name: "unclassified", err: fmt.Errorf("hash password: %w", errors.New("bcrypt: password length exceeds 72 bytes")), want: "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, auditReason(tt.err))
		})
	}
}
