package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zerolog.Level
		wantErr bool
	}{
		{"", zerolog.InfoLevel, false},
		{"DEBUG", zerolog.DebugLevel, false},
		{"warning", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"verbose", zerolog.InfoLevel, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNew_JSONWithFile(t *testing.T) {
	var buf bytes.Buffer
	logFile := filepath.Join(t.TempDir(), "logs", "myssh.log")

	logger, closer, err := New(Options{Level: "debug", Format: "json", File: logFile, Out: &buf})
	require.NoError(t, err)
	logger.Debug().Str("server", "a").Msg("connected")
	require.NoError(t, closer.Close())

	assert.Contains(t, buf.String(), `"server":"a"`)
	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"connected"`)
}

func TestNew_InvalidFormat(t *testing.T) {
	_, _, err := New(Options{Format: "xml"})
	assert.Error(t, err)
}

func TestRedact(t *testing.T) {
	assert.Equal(t, redacted, Redact("password", "hunter2"))
	assert.Equal(t, redacted, Redact("ai.api_key", "sk-1"))
	assert.Equal(t, "", Redact("password", ""))
	assert.Equal(t, "root", Redact("username", "root"))
}
