package sentinel

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_Error(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		err  Error
		want string
	}{
		"configuration missing": {err: Error("session configuration missing"), want: "session configuration missing"},
		"empty message":         {err: Error(""), want: ""},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			if got := tc.err.Error(); got != tc.want {
				t.Errorf("Error() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestError_ErrorsIs(t *testing.T) {
	t.Parallel()

	const missing = Error("namespace unavailable")

	tests := map[string]struct {
		err    error
		target error
		want   bool
	}{
		"direct match":          {err: missing, target: missing, want: true},
		"wrapped match":         {err: fmt.Errorf("setup context kind-b: %w", missing), target: missing, want: true},
		"joined match":          {err: errors.Join(errors.New("other"), missing), target: missing, want: true},
		"different sentinel":    {err: missing, target: Error("other"), want: false},
		"same text stdlib error": {err: missing, target: errors.New("namespace unavailable"), want: false},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			if got := errors.Is(tc.err, tc.target); got != tc.want {
				t.Errorf("errors.Is() = %v, want %v", got, tc.want)
			}
		})
	}
}
