package backend

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"myssh/internal/ai"
	"myssh/internal/config"
	"myssh/internal/gateway"
	"myssh/internal/models"
	"myssh/internal/ssh"
)

func newLocal(t *testing.T) *Local {
	t.Helper()
	store := config.NewStore(filepath.Join(t.TempDir(), "servers.json"), false)
	l := New(Options{
		Store:  store,
		Dial:   ssh.DialOptions{Timeout: time.Second},
		Logger: zerolog.Nop(),
	})
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestProfiles(t *testing.T) {
	ctx := context.Background()
	l := newLocal(t)

	require.NoError(t, l.SaveProfile(ctx, models.Server{ID: "a", Host: "h1", Port: 22, KeyPath: "/k"}))
	require.NoError(t, l.SaveProfile(ctx, models.Server{ID: "b", Host: "h2", Port: 22}))

	host := "h1b"
	require.NoError(t, l.UpdateProfile(ctx, models.ServerPatch{ID: "a", Host: &host}))
	require.ErrorIs(t, l.UpdateProfile(ctx, models.ServerPatch{ID: "x", Host: &host}), config.ErrServerNotFound)
	require.NoError(t, l.DeleteProfile(ctx, "b"))
	require.ErrorIs(t, l.DeleteProfile(ctx, "b"), config.ErrServerNotFound)

	list, err := l.ListProfiles(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "h1b", list[0].Host)
	assert.Equal(t, "/k", list[0].KeyPath)
}

func TestRemoteOpsRequireConnection(t *testing.T) {
	ctx := context.Background()
	l := newLocal(t)

	_, err := l.Execute(ctx, "a", "uptime")
	require.Error(t, err)
	_, err = l.ListDirectory(ctx, "a", "/")
	require.Error(t, err)
	require.Error(t, l.Upload(ctx, "a", "/tmp/x", "/srv"))
	require.Error(t, l.Download(ctx, "a", "/srv/x", "/tmp/x"))
	require.Error(t, l.CreateDirectory(ctx, "a", "/srv"))
	require.Error(t, l.Delete(ctx, "a", []string{"/srv/x"}))
	require.Error(t, l.Rename(ctx, "a", "/a", "/b"))
	require.Error(t, l.Chmod(ctx, "a", "/a", "755"))
	_, err = l.MonitorSample(ctx, "a")
	require.Error(t, err)
	require.Error(t, l.Reconnect(ctx, "a"))
	require.Error(t, l.Shell("a", ssh.ShellOptions{}))
}

func TestDisconnectUnknownIsNoop(t *testing.T) {
	l := newLocal(t)
	require.NoError(t, l.Disconnect(context.Background(), "a"))
}

func TestConnectWithoutCredentials(t *testing.T) {
	l := newLocal(t)
	_, err := l.Connect(context.Background(), gateway.ConnectRequest{ServerID: "a", Host: "127.0.0.1", Port: 1, Username: "root"})
	require.ErrorIs(t, err, ssh.ErrNoCredentials)
}

func TestAssistant(t *testing.T) {
	ctx := context.Background()
	l := newLocal(t)

	actions, err := l.AIQuickActions(ctx, "a")
	require.NoError(t, err)
	assert.Len(t, actions, 3)

	_, err = l.AIChat(ctx, gateway.ChatRequest{ServerID: "a", Question: "hi"})
	require.ErrorIs(t, err, ai.ErrNotConfigured)
}
