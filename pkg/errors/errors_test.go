package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_UnwrapsToSentinel(t *testing.T) {
	err := Newf(ErrInvalidSeed, ExitInvalidInput, "cannot parse %q", "::")

	assert.True(t, errors.Is(err, ErrInvalidSeed))
	assert.Equal(t, `invalid seed url: cannot parse "::"`, err.Error())
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: ExitOK},
		{name: "app error", err: New(ErrOutputFailed, 7, "disk full"), want: 7},
		{name: "wrapped app error", err: fmt.Errorf("run: %w", New(ErrInvalidInput, ExitInvalidInput, "x")), want: ExitInvalidInput},
		{name: "bare invalid input", err: ErrInvalidInput, want: ExitInvalidInput},
		{name: "wrapped seed error", err: fmt.Errorf("crawl: %w", ErrInvalidSeed), want: ExitInvalidInput},
		{name: "other", err: errors.New("boom"), want: ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}
