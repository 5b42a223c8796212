package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"myssh/internal/gateway/gatewaytest"
	"myssh/internal/logging"
)

func TestConnect(t *testing.T) {
	rec := &memAudit{}
	fake := gatewaytest.New(seedProfiles...)
	o := New(fake, Options{Logger: logging.Nop(), Audit: rec})
	require.NoError(t, o.Load(context.Background()))

	require.NoError(t, o.Connect(context.Background(), "s2"))

	s, err := o.Get("s2")
	require.NoError(t, err)
	assert.True(t, s.Connected)
	assert.Equal(t, "s2", o.Focus().ActiveServerID)

	calls := fake.CallsTo(gatewaytest.OpConnect)
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"10.0.0.2", "2222", "admin"}, calls[0].Args)
	assert.Equal(t, []string{"connect:started", "connect:success"}, rec.actions())
}

func TestConnectUnknown(t *testing.T) {
	o, fake := newTestOrchestrator(t, seedProfiles...)

	require.ErrorIs(t, o.Connect(context.Background(), "nope"), ErrUnknownServer)
	assert.Empty(t, fake.CallsTo(gatewaytest.OpConnect))
}

func TestConnectFailure(t *testing.T) {
	o, fake := connected(t, "s1")
	fake.FailOnArg(gatewaytest.OpConnect, "10.0.0.2", nil)

	err := o.Connect(context.Background(), "s2")
	require.ErrorIs(t, err, gatewaytest.ErrInjected)

	s, err := o.Get("s2")
	require.NoError(t, err)
	assert.False(t, s.Connected)
	assert.Equal(t, "s1", o.Focus().ActiveServerID)
	assert.Len(t, fake.CallsTo(gatewaytest.OpConnect), 2)
}

func TestConnectAlreadyConnectedMovesFocus(t *testing.T) {
	o, fake := connected(t, "s1", "s2")
	assert.Equal(t, "s2", o.Focus().ActiveServerID)

	require.NoError(t, o.Connect(context.Background(), "s1"))
	assert.Equal(t, "s1", o.Focus().ActiveServerID)
	assert.Len(t, fake.CallsTo(gatewaytest.OpConnect), 2)
}

func TestConnectClearsForeignActiveTab(t *testing.T) {
	o, _ := connected(t, "s1")
	_, err := o.OpenTab("s1", TabTerminal, nil)
	require.NoError(t, err)

	require.NoError(t, o.Connect(context.Background(), "s2"))
	assert.Equal(t, Context{ActiveServerID: "s2"}, o.Focus())
}

func TestConnectCancelled(t *testing.T) {
	o, _ := newTestOrchestrator(t, seedProfiles...)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, o.Connect(ctx, "s1"), context.Canceled)
	s, err := o.Get("s1")
	require.NoError(t, err)
	assert.False(t, s.Connected)
}

func TestDisconnect(t *testing.T) {
	o, fake := connected(t, "s1")
	_, err := o.OpenTab("s1", TabTerminal, nil)
	require.NoError(t, err)

	require.NoError(t, o.Disconnect(context.Background(), "s1"))

	s, err := o.Get("s1")
	require.NoError(t, err)
	assert.False(t, s.Connected)
	assert.Empty(t, s.Tabs)
	assert.Equal(t, Context{}, o.Focus())
	assert.Len(t, fake.CallsTo(gatewaytest.OpDisconnect), 1)
}

func TestDisconnectIdempotent(t *testing.T) {
	o, fake := connected(t, "s1")
	ctx := context.Background()

	require.NoError(t, o.Disconnect(ctx, "s1"))
	before, err := o.Get("s1")
	require.NoError(t, err)

	require.NoError(t, o.Disconnect(ctx, "s1"))
	after, err := o.Get("s1")
	require.NoError(t, err)

	assert.Equal(t, before, after)
	assert.Len(t, fake.CallsTo(gatewaytest.OpDisconnect), 1)
}

func TestDisconnectNonActiveKeepsFocus(t *testing.T) {
	o, _ := connected(t, "s1", "s2")
	tabID, err := o.OpenTab("s2", TabMonitor, nil)
	require.NoError(t, err)

	require.NoError(t, o.Disconnect(context.Background(), "s1"))
	assert.Equal(t, Context{ActiveServerID: "s2", ActiveTabID: tabID}, o.Focus())
}

func TestDisconnectFailureStaysConnected(t *testing.T) {
	o, fake := connected(t, "s1")
	_, err := o.OpenTab("s1", TabTerminal, nil)
	require.NoError(t, err)
	fake.FailOn(gatewaytest.OpDisconnect, nil)

	require.ErrorIs(t, o.Disconnect(context.Background(), "s1"), gatewaytest.ErrInjected)
	s, err := o.Get("s1")
	require.NoError(t, err)
	assert.True(t, s.Connected)
	assert.Len(t, s.Tabs, 1)

	require.NoError(t, o.ForceDisconnect("s1"))
	s, err = o.Get("s1")
	require.NoError(t, err)
	assert.False(t, s.Connected)
	assert.Empty(t, s.Tabs)
	assert.Equal(t, Context{}, o.Focus())
}

func TestDisconnectUnknown(t *testing.T) {
	o, _ := newTestOrchestrator(t, seedProfiles...)
	require.ErrorIs(t, o.Disconnect(context.Background(), "nope"), ErrUnknownServer)
	require.ErrorIs(t, o.ForceDisconnect("nope"), ErrUnknownServer)
}

func TestReconnect(t *testing.T) {
	o, fake := connected(t, "s1")
	ctx := context.Background()

	require.ErrorIs(t, o.Reconnect(ctx, "s2"), ErrServerNotConnected)
	require.NoError(t, o.Reconnect(ctx, "s1"))

	fake.FailOn(gatewaytest.OpReconnect, nil)
	require.ErrorIs(t, o.Reconnect(ctx, "s1"), gatewaytest.ErrInjected)
	s, err := o.Get("s1")
	require.NoError(t, err)
	assert.True(t, s.Connected)
	assert.Len(t, fake.CallsTo(gatewaytest.OpReconnect), 2)
}

func TestActivate(t *testing.T) {
	o, _ := connected(t, "s1")

	require.ErrorIs(t, o.Activate("nope"), ErrUnknownServer)
	require.ErrorIs(t, o.Activate("s2"), ErrServerNotConnected)

	require.NoError(t, o.Connect(context.Background(), "s2"))
	require.NoError(t, o.Activate("s1"))
	assert.Equal(t, "s1", o.Focus().ActiveServerID)
}

func TestConcurrentTransitionFailsFast(t *testing.T) {
	fake := gatewaytest.New(seedProfiles...)
	o := New(fake, Options{Logger: logging.Nop()})
	require.NoError(t, o.Load(context.Background()))
	fake.Delay = 100 * time.Millisecond

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i == 1 {
				time.Sleep(20 * time.Millisecond)
			}
			errs[i] = o.Connect(context.Background(), "s1")
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.ErrorIs(t, errs[1], ErrTransitionInProgress)
	assert.Len(t, fake.CallsTo(gatewaytest.OpConnect), 1)
}

func TestDifferentServersDoNotContend(t *testing.T) {
	fake := gatewaytest.New(seedProfiles...)
	o := New(fake, Options{Logger: logging.Nop()})
	require.NoError(t, o.Load(context.Background()))
	fake.Delay = 50 * time.Millisecond

	var wg sync.WaitGroup
	for _, id := range []string{"s1", "s2"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			assert.NoError(t, o.Connect(context.Background(), id))
		}(id)
	}
	wg.Wait()

	for _, s := range o.List() {
		assert.True(t, s.Connected)
	}
}

func TestClose(t *testing.T) {
	o, fake := connected(t, "s1", "s2")

	require.NoError(t, o.Close(context.Background()))
	for _, s := range o.List() {
		assert.False(t, s.Connected)
	}
	assert.Len(t, fake.CallsTo(gatewaytest.OpDisconnect), 2)
}

func TestOrchestratorsAreIsolated(t *testing.T) {
	a, _ := connected(t, "s1")
	b, _ := newTestOrchestrator(t, seedProfiles...)

	assert.Equal(t, "s1", a.Focus().ActiveServerID)
	assert.Equal(t, Context{}, b.Focus())
}
