package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"myssh/internal/audit"
	"myssh/internal/gateway/gatewaytest"
	"myssh/internal/logging"
	"myssh/internal/models"
)

var seedProfiles = []models.Server{
	{ID: "s1", Name: "web", Host: "10.0.0.1", Port: 22, Username: "root", KeyPath: "/home/u/.ssh/id_ed25519"},
	{ID: "s2", Name: "db", Host: "10.0.0.2", Port: 2222, Username: "admin", Password: "secret"},
}

type memAudit struct {
	mu     sync.Mutex
	events []audit.Event
}

func (m *memAudit) Record(e audit.Event) {
	m.mu.Lock()
	m.events = append(m.events, e)
	m.mu.Unlock()
}

func (m *memAudit) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.events))
	for i, e := range m.events {
		status := e.Status
		if status == "" {
			status = audit.StatusSuccess
			if e.Err != nil {
				status = audit.StatusFailure
			}
		}
		out[i] = e.Action + ":" + status
	}
	return out
}

func newTestOrchestrator(t *testing.T, profiles ...models.Server) (*Orchestrator, *gatewaytest.Fake) {
	t.Helper()
	fake := gatewaytest.New(profiles...)
	o := New(fake, Options{Logger: logging.Nop()})
	require.NoError(t, o.Load(context.Background()))
	return o, fake
}

func connected(t *testing.T, ids ...string) (*Orchestrator, *gatewaytest.Fake) {
	t.Helper()
	o, fake := newTestOrchestrator(t, seedProfiles...)
	for _, id := range ids {
		require.NoError(t, o.Connect(context.Background(), id))
	}
	return o, fake
}

// fixedClock 每次调用返回同一时刻，用于验证同一毫秒内的 tab id
func fixedClock() func() time.Time {
	ts := time.UnixMilli(1700000000123)
	return func() time.Time { return ts }
}
