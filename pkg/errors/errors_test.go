package errors

import (
	"fmt"
	"testing"
)

func TestSentinelChecks(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
		want  bool
	}{
		{"not found direct", ErrNotFound, IsNotFound, true},
		{"not found wrapped", fmt.Errorf("load identity: %w", ErrNotFound), IsNotFound, true},
		{"not found mismatch", ErrConflict, IsNotFound, false},
		{"validation wrapped", fmt.Errorf("merge: %w", ErrValidation), IsValidation, true},
		{"invalid state wrapped", fmt.Errorf("case: %w", ErrInvalidState), IsInvalidState, true},
		{"degraded wrapped", fmt.Errorf("registrations: %w", ErrDegraded), IsDegraded, true},
		{"already exists", ErrAlreadyExists, IsAlreadyExists, true},
		{"conflict", ErrConflict, IsConflict, true},
		{"nil error", nil, IsNotFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.check(tt.err); got != tt.want {
				t.Errorf("check(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
