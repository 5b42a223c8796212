// Package session 维护服务器注册表、连接状态机、标签页与全局焦点。
//
// 所有状态变更都严格排在网关调用成功之后：方法返回时，要么远程操作与本地状态更新都已完成，
// 要么都没有发生。不同服务器之间互不阻塞；同一服务器的连接状态转换由各自的锁串行化。
package session

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"myssh/internal/audit"
	"myssh/internal/gateway"
)

// Options 可选依赖
type Options struct {
	Logger zerolog.Logger
	Audit  audit.Recorder
	Now    func() time.Time
	NewID  func() string
}

// Orchestrator 组合注册表、会话管理与标签页管理
type Orchestrator struct {
	gw    gateway.Gateway
	log   zerolog.Logger
	audit audit.Recorder
	now   func() time.Time
	newID func() string

	mu      sync.RWMutex
	servers map[string]*entry
	order   []string // 插入顺序
	focus   Context
	lastTab map[string]int64 // 每台服务器上一次生成 tab id 的毫秒时间戳
	seq     map[string]int

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// New 创建编排器；尚未加载任何配置，需要调用 Load
func New(gw gateway.Gateway, opts Options) *Orchestrator {
	o := &Orchestrator{
		gw:      gw,
		log:     opts.Logger,
		audit:   opts.Audit,
		now:     opts.Now,
		newID:   opts.NewID,
		servers: make(map[string]*entry),
		lastTab: make(map[string]int64),
		seq:     make(map[string]int),
		locks:   make(map[string]*sync.Mutex),
	}
	if o.audit == nil {
		o.audit = audit.Nop{}
	}
	if o.now == nil {
		o.now = time.Now
	}
	if o.newID == nil {
		o.newID = newProfileID
	}
	return o
}

// Focus 当前焦点
func (o *Orchestrator) Focus() Context {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.focus
}

// RequireConnected 服务器存在且已连接时返回 nil
func (o *Orchestrator) RequireConnected(serverID string) error {
	o.mu.RLock()
	defer o.mu.RUnlock()
	e, ok := o.servers[serverID]
	if !ok {
		return ErrUnknownServer
	}
	if !e.connected {
		return ErrServerNotConnected
	}
	return nil
}

// lockServer 获取该服务器的状态转换锁；已被占用时立即失败，不排队等待
func (o *Orchestrator) lockServer(serverID string) (func(), error) {
	o.locksMu.Lock()
	l, ok := o.locks[serverID]
	if !ok {
		l = &sync.Mutex{}
		o.locks[serverID] = l
	}
	o.locksMu.Unlock()
	if !l.TryLock() {
		return nil, ErrTransitionInProgress
	}
	return l.Unlock, nil
}

func (o *Orchestrator) forgetLock(serverID string) {
	o.locksMu.Lock()
	delete(o.locks, serverID)
	o.locksMu.Unlock()
}

func (o *Orchestrator) profile(serverID string) (Profile, bool, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	e, ok := o.servers[serverID]
	if !ok {
		return Profile{}, false, ErrUnknownServer
	}
	return e.profile, e.connected, nil
}

func (o *Orchestrator) record(action string, p Profile, target, status string, err error) {
	o.audit.Record(audit.Event{
		Time:   o.now(),
		Action: action,
		Server: p,
		Target: target,
		Status: status,
		Err:    err,
	})
}

// nextTabID 生成 <serverId>-<毫秒时间戳>，同一毫秒内重复时追加序号
func (o *Orchestrator) nextTabID(serverID string) string {
	ms := o.now().UnixMilli()
	id := fmt.Sprintf("%s-%d", serverID, ms)
	if o.lastTab[serverID] == ms {
		o.seq[serverID]++
		return id + "-" + strconv.Itoa(o.seq[serverID])
	}
	o.lastTab[serverID] = ms
	o.seq[serverID] = 0
	return id
}

// Close 断开所有已连接的服务器，返回遇到的第一个错误
func (o *Orchestrator) Close(ctx context.Context) error {
	var first error
	for _, s := range o.List() {
		if !s.Connected {
			continue
		}
		if err := o.Disconnect(ctx, s.ID); err != nil && first == nil {
			first = err
		}
	}
	return first
}
