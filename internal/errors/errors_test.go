package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"myssh/internal/session"
)

func TestCLIError(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(ExitNetwork, "dial failed", cause).WithHint("check network")
	assert.Equal(t, "dial failed: boom", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "check network", err.Hint)

	assert.Equal(t, "plain", New(ExitGeneral, "plain").Error())

	var target *CLIError
	require.True(t, As(fmt.Errorf("wrapped: %w", err), &target))
	assert.Equal(t, ExitNetwork, target.Code)
}

func TestFromSession(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"unknown server", session.ErrUnknownServer, ExitConfig},
		{"not connected", fmt.Errorf("upload s1: %w", session.ErrServerNotConnected), ExitNetwork},
		{"busy", session.ErrTransitionInProgress, ExitGeneral},
		{"preassigned", session.ErrIDPreassigned, ExitUsage},
		{"persist", session.ErrPersistFailed, ExitConfig},
		{"timeout", context.DeadlineExceeded, ExitTimeout},
		{"other", errors.New("connection reset"), ExitNetwork},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var target *CLIError
			require.True(t, As(FromSession("s1", tt.err), &target))
			assert.Equal(t, tt.code, target.Code)
			assert.ErrorIs(t, target, tt.err)
		})
	}

	assert.NoError(t, FromSession("s1", nil))
	usage := Usage("bad flag")
	assert.Same(t, usage, FromSession("s1", usage))
}

func TestServerNotFoundHint(t *testing.T) {
	err := ServerNotFound("abc")
	assert.Contains(t, err.Message, "abc")
	assert.Contains(t, err.Hint, "servers list")
	assert.Equal(t, ExitConfig, err.Code)
}
