package session

import (
	"context"

	"myssh/internal/audit"
	"myssh/internal/gateway"
)

// Connect 建立连接；成功后标记已连接并设为当前服务器。
// 失败原样返回给调用方，不自动重试，状态保持未连接。
func (o *Orchestrator) Connect(ctx context.Context, serverID string) error {
	if _, _, err := o.profile(serverID); err != nil {
		return opErr("connect", serverID, err, nil)
	}
	unlock, err := o.lockServer(serverID)
	if err != nil {
		return opErr("connect", serverID, err, nil)
	}
	defer unlock()

	p, connected, err := o.profile(serverID)
	if err != nil {
		return opErr("connect", serverID, err, nil)
	}
	if connected {
		o.mu.Lock()
		o.setActiveServer(serverID)
		o.mu.Unlock()
		return nil
	}

	// 立即写入「开始连接」记录，避免阻塞期间进程退出时没有痕迹
	o.record("connect", p, "", audit.StatusStarted, nil)
	res, err := o.gw.Connect(ctx, gateway.ConnectRequestFor(p))
	o.record("connect", p, "", "", err)
	if err != nil {
		o.log.Warn().Err(err).Str("server", serverID).Str("host", p.Host).Msg("connect failed")
		return opErr("connect", serverID, nil, err)
	}

	o.mu.Lock()
	if e, ok := o.servers[serverID]; ok {
		e.connected = true
		o.setActiveServer(serverID)
	}
	o.mu.Unlock()
	o.log.Info().Str("server", serverID).Str("connection", res.ConnectionID).Msg("connected")
	return nil
}

// Disconnect 断开连接并清空标签页；未连接时直接成功，不调用网关。
// 网关失败时保持已连接状态，由调用方决定重试或 ForceDisconnect。
func (o *Orchestrator) Disconnect(ctx context.Context, serverID string) error {
	if _, _, err := o.profile(serverID); err != nil {
		return opErr("disconnect", serverID, err, nil)
	}
	unlock, err := o.lockServer(serverID)
	if err != nil {
		return opErr("disconnect", serverID, err, nil)
	}
	defer unlock()

	p, connected, err := o.profile(serverID)
	if err != nil {
		return opErr("disconnect", serverID, err, nil)
	}
	if !connected {
		return nil
	}
	return o.disconnect(ctx, p)
}

// disconnect 调用方需持有该服务器的转换锁
func (o *Orchestrator) disconnect(ctx context.Context, p Profile) error {
	err := o.gw.Disconnect(ctx, p.ID)
	o.record("disconnect", p, "", "", err)
	if err != nil {
		o.log.Warn().Err(err).Str("server", p.ID).Msg("disconnect failed")
		return opErr("disconnect", p.ID, nil, err)
	}
	o.mu.Lock()
	o.clearLive(p.ID)
	o.mu.Unlock()
	o.log.Info().Str("server", p.ID).Msg("disconnected")
	return nil
}

// ForceDisconnect 只清除本地状态，不调用网关；用于远程断开失败后由调用方强制清理
func (o *Orchestrator) ForceDisconnect(serverID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.servers[serverID]; !ok {
		return opErr("force-disconnect", serverID, ErrUnknownServer, nil)
	}
	o.clearLive(serverID)
	o.log.Warn().Str("server", serverID).Msg("connection state force-cleared")
	return nil
}

// Reconnect 重建已连接服务器的底层连接；本地状态无论成败都不变
func (o *Orchestrator) Reconnect(ctx context.Context, serverID string) error {
	if _, _, err := o.profile(serverID); err != nil {
		return opErr("reconnect", serverID, err, nil)
	}
	unlock, err := o.lockServer(serverID)
	if err != nil {
		return opErr("reconnect", serverID, err, nil)
	}
	defer unlock()

	p, connected, err := o.profile(serverID)
	if err != nil {
		return opErr("reconnect", serverID, err, nil)
	}
	if !connected {
		return opErr("reconnect", serverID, ErrServerNotConnected, nil)
	}
	err = o.gw.Reconnect(ctx, serverID)
	o.record("reconnect", p, "", "", err)
	if err != nil {
		return opErr("reconnect", serverID, nil, err)
	}
	return nil
}

// Activate 切换当前服务器（必须已连接）
func (o *Orchestrator) Activate(serverID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	e, ok := o.servers[serverID]
	if !ok {
		return opErr("activate", serverID, ErrUnknownServer, nil)
	}
	if !e.connected {
		return opErr("activate", serverID, ErrServerNotConnected, nil)
	}
	o.setActiveServer(serverID)
	return nil
}

// setActiveServer 焦点标签页不属于新服务器时一并清除；需持有 o.mu
func (o *Orchestrator) setActiveServer(serverID string) {
	if o.focus.ActiveServerID == serverID {
		return
	}
	o.focus.ActiveServerID = serverID
	if e := o.servers[serverID]; e == nil || !e.hasTab(o.focus.ActiveTabID) {
		o.focus.ActiveTabID = ""
	}
}

// clearLive 需持有 o.mu
func (o *Orchestrator) clearLive(serverID string) {
	if e, ok := o.servers[serverID]; ok {
		e.connected = false
		e.tabs = nil
	}
	if o.focus.ActiveServerID == serverID {
		o.focus = Context{}
	}
}
