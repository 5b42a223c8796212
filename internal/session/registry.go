package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"myssh/internal/gateway"
)

func newProfileID() string {
	return uuid.NewString()
}

// Load 从后端读取全部配置并替换内存中的集合。
// 失败时内存集合保持不变；新加载的服务器处于未连接状态。
// 重新加载时仍存在的服务器保留其连接状态与标签页。
func (o *Orchestrator) Load(ctx context.Context) error {
	records, err := o.gw.ListProfiles(ctx)
	if err != nil {
		o.log.Error().Err(err).Msg("load profiles failed")
		return opErr("load", "", ErrBackendUnavailable, err)
	}

	next := make(map[string]*entry, len(records))
	order := make([]string, 0, len(records))
	for _, rec := range records {
		p := normalize(gateway.FromRecord(rec))
		if p.ID == "" {
			o.log.Warn().Str("host", p.Host).Msg("skip profile without id")
			continue
		}
		if _, dup := next[p.ID]; dup {
			o.log.Warn().Str("server", p.ID).Msg("skip duplicate profile id")
			continue
		}
		next[p.ID] = &entry{profile: p}
		order = append(order, p.ID)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	for id, old := range o.servers {
		e, ok := next[id]
		if !ok {
			if old.connected {
				o.log.Warn().Str("server", id).Msg("connected profile vanished from store")
			}
			continue
		}
		e.connected = old.connected
		e.tabs = old.tabs
	}
	if _, ok := next[o.focus.ActiveServerID]; !ok {
		o.focus = Context{}
	}
	o.servers = next
	o.order = order
	o.log.Debug().Int("count", len(order)).Msg("profiles loaded")
	return nil
}

// Add 分配新 id 并持久化，成功后才加入内存集合
func (o *Orchestrator) Add(ctx context.Context, p Profile) (string, error) {
	if p.ID != "" {
		return "", opErr("add", p.ID, ErrIDPreassigned, nil)
	}
	p = normalize(p)

	o.mu.RLock()
	id := o.newID()
	for o.servers[id] != nil {
		id = o.newID()
	}
	o.mu.RUnlock()
	p.ID = id

	if err := o.gw.SaveProfile(ctx, gateway.ToRecord(p)); err != nil {
		o.log.Error().Err(err).Str("host", p.Host).Msg("save profile failed")
		return "", opErr("add", "", ErrPersistFailed, err)
	}

	o.mu.Lock()
	o.servers[id] = &entry{profile: p}
	o.order = append(o.order, id)
	o.mu.Unlock()
	o.log.Info().Str("server", id).Str("host", p.Host).Msg("profile added")
	return id, nil
}

// Update 持久化部分更新，成功后修改内存中的配置；连接状态与标签页不受影响
func (o *Orchestrator) Update(ctx context.Context, serverID string, u gateway.ProfileUpdate) error {
	if _, _, err := o.profile(serverID); err != nil {
		return opErr("update", serverID, err, nil)
	}
	if u.Port != nil && *u.Port <= 0 {
		port := gateway.DefaultPort
		u.Port = &port
	}
	patch := gateway.ToPatch(serverID, u)
	if patch.Empty() {
		return nil
	}
	if err := o.gw.UpdateProfile(ctx, patch); err != nil {
		o.log.Error().Err(err).Str("server", serverID).Msg("update profile failed")
		return opErr("update", serverID, ErrPersistFailed, err)
	}

	o.mu.Lock()
	if e, ok := o.servers[serverID]; ok {
		u.Apply(&e.profile)
	}
	o.mu.Unlock()
	return nil
}

// Remove 已连接时先断开；断开失败则不删除。随后删除持久化记录，成功后才移出内存集合。
func (o *Orchestrator) Remove(ctx context.Context, serverID string) error {
	if _, _, err := o.profile(serverID); err != nil {
		return opErr("remove", serverID, err, nil)
	}
	unlock, err := o.lockServer(serverID)
	if err != nil {
		return opErr("remove", serverID, err, nil)
	}
	defer unlock()

	p, connected, err := o.profile(serverID)
	if err != nil {
		return opErr("remove", serverID, err, nil)
	}
	if connected {
		if err := o.disconnect(ctx, p); err != nil {
			return err
		}
	}

	if err := o.gw.DeleteProfile(ctx, serverID); err != nil {
		o.log.Error().Err(err).Str("server", serverID).Msg("delete profile failed")
		return opErr("remove", serverID, ErrPersistFailed, err)
	}

	o.mu.Lock()
	delete(o.servers, serverID)
	for i, id := range o.order {
		if id == serverID {
			o.order = append(o.order[:i], o.order[i+1:]...)
			break
		}
	}
	if o.focus.ActiveServerID == serverID {
		o.focus = Context{}
	}
	delete(o.lastTab, serverID)
	delete(o.seq, serverID)
	o.mu.Unlock()
	o.forgetLock(serverID)
	o.log.Info().Str("server", serverID).Msg("profile removed")
	return nil
}

// Get 单台服务器的快照
func (o *Orchestrator) Get(serverID string) (Server, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	e, ok := o.servers[serverID]
	if !ok {
		return Server{}, ErrUnknownServer
	}
	return e.snapshot(), nil
}

// List 按插入顺序返回全部服务器快照
func (o *Orchestrator) List() []Server {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]Server, 0, len(o.order))
	for _, id := range o.order {
		out = append(out, o.servers[id].snapshot())
	}
	return out
}

// normalize 补全默认端口与名称
func normalize(p Profile) Profile {
	p.Name = strings.TrimSpace(p.Name)
	p.Host = strings.TrimSpace(p.Host)
	p.Username = strings.TrimSpace(p.Username)
	p.KeyPath = strings.TrimSpace(p.KeyPath)
	p.Group = strings.TrimSpace(p.Group)
	if p.Port <= 0 {
		p.Port = gateway.DefaultPort
	}
	if p.Name == "" {
		p.Name = fmt.Sprintf("%s:%d", p.Host, p.Port)
	}
	return p
}
