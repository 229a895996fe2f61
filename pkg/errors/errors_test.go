package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorMessage(t *testing.T) {
	err := New(ErrUnreadable, "build file", "docs/a.txt", "permission denied")
	assert.Equal(t, "build file: unreadable input (docs/a.txt): permission denied", err.Error())

	bare := &AppError{Err: ErrInvalidInput}
	assert.Equal(t, "invalid input", bare.Error())
}

func TestAppErrorUnwrap(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", Newf(ErrNotFound, "build", "missing", "stat failed after %d tries", 1))
	assert.True(t, Is(err, ErrNotFound))
	assert.False(t, Is(err, ErrInvalidInput))

	var appErr *AppError
	assert.True(t, As(err, &appErr))
	assert.Equal(t, "missing", appErr.Path)
}

func TestExitCode(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, ExitOK},
		{New(ErrInvalidInput, "", "", ""), ExitInvalidInput},
		{fmt.Errorf("x: %w", ErrNotFound), ExitNotFound},
		{ErrUnreadable, ExitUnreadable},
		{ErrQueueShutdown, ExitInternal},
		{fmt.Errorf("boom"), ExitInternal},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, ExitCode(c.err), "err=%v", c.err)
	}
}
