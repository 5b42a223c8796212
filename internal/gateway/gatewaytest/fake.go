// Package gatewaytest 提供记录调用顺序、可按操作注入失败的内存 Gateway，供测试使用。
package gatewaytest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"myssh/internal/gateway"
	"myssh/internal/models"
)

// 操作名
const (
	OpConnect         = "connect"
	OpDisconnect      = "disconnect"
	OpReconnect       = "reconnect"
	OpExecute         = "execute"
	OpListDirectory   = "listDirectory"
	OpUpload          = "upload"
	OpDownload        = "download"
	OpCreateDirectory = "createDirectory"
	OpDelete          = "delete"
	OpRename          = "rename"
	OpChmod           = "chmod"
	OpMonitorSample   = "monitorSample"
	OpListProfiles    = "listProfiles"
	OpSaveProfile     = "saveProfile"
	OpUpdateProfile   = "updateProfile"
	OpDeleteProfile   = "deleteProfile"
	OpAIChat          = "aiChat"
	OpAIQuickActions  = "aiQuickActions"
)

// ErrInjected 默认注入的失败
var ErrInjected = errors.New("injected failure")

// Call 一次被记录的调用；Args[0] 通常是路径或 id
type Call struct {
	Op       string
	ServerID string
	Args     []string
}

type rule struct {
	op  string
	arg string // 为空表示匹配该操作的全部调用
	err error
}

// Fake 内存实现，可并发使用
type Fake struct {
	mu       sync.Mutex
	calls    []Call
	rules    []rule
	profiles []models.Server
	files    map[string][]models.FileEntry

	// Delay 每次调用前的等待，用于并发测试
	Delay time.Duration
}

var _ gateway.Gateway = (*Fake)(nil)

// New 创建带初始持久化配置的 Fake
func New(profiles ...models.Server) *Fake {
	return &Fake{
		profiles: append([]models.Server(nil), profiles...),
		files:    make(map[string][]models.FileEntry),
	}
}

// FailOn 让 op 的所有调用失败；err 为 nil 时使用 ErrInjected
func (f *Fake) FailOn(op string, err error) {
	f.FailOnArg(op, "", err)
}

// FailOnArg 仅当第一个参数等于 arg 时让 op 失败
func (f *Fake) FailOnArg(op, arg string, err error) {
	if err == nil {
		err = ErrInjected
	}
	f.mu.Lock()
	f.rules = append(f.rules, rule{op: op, arg: arg, err: err})
	f.mu.Unlock()
}

// Reset 清除失败规则
func (f *Fake) Reset() {
	f.mu.Lock()
	f.rules = nil
	f.mu.Unlock()
}

// SetListing 预置某目录的列表结果
func (f *Fake) SetListing(serverID, path string, entries []models.FileEntry) {
	f.mu.Lock()
	f.files[serverID+":"+path] = entries
	f.mu.Unlock()
}

// Calls 返回全部调用的副本
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// Ops 按顺序返回操作名
func (f *Fake) Ops() []string {
	calls := f.Calls()
	ops := make([]string, len(calls))
	for i, c := range calls {
		ops[i] = c.Op
	}
	return ops
}

// CallsTo 返回某个操作的调用
func (f *Fake) CallsTo(op string) []Call {
	var out []Call
	for _, c := range f.Calls() {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// Stored 返回当前持久化的配置
func (f *Fake) Stored() []models.Server {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Server(nil), f.profiles...)
}

func (f *Fake) record(ctx context.Context, op, serverID string, args ...string) error {
	if f.Delay > 0 {
		select {
		case <-time.After(f.Delay):
		case <-ctx.Done():
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Op: op, ServerID: serverID, Args: args})
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, r := range f.rules {
		if r.op != op {
			continue
		}
		if r.arg == "" || (len(args) > 0 && args[0] == r.arg) {
			return r.err
		}
	}
	return nil
}

func (f *Fake) Connect(ctx context.Context, req gateway.ConnectRequest) (gateway.ConnectResult, error) {
	if err := f.record(ctx, OpConnect, req.ServerID, req.Host, fmt.Sprint(req.Port), req.Username); err != nil {
		return gateway.ConnectResult{}, err
	}
	return gateway.ConnectResult{ConnectionID: req.ServerID}, nil
}

func (f *Fake) Disconnect(ctx context.Context, serverID string) error {
	return f.record(ctx, OpDisconnect, serverID)
}

func (f *Fake) Reconnect(ctx context.Context, serverID string) error {
	return f.record(ctx, OpReconnect, serverID)
}

func (f *Fake) Execute(ctx context.Context, serverID, command string) (models.ExecResult, error) {
	if err := f.record(ctx, OpExecute, serverID, command); err != nil {
		return models.ExecResult{}, err
	}
	return models.ExecResult{Output: command + "\n", ExitCode: 0}, nil
}

func (f *Fake) ListDirectory(ctx context.Context, serverID, path string) ([]models.FileEntry, error) {
	if err := f.record(ctx, OpListDirectory, serverID, path); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.FileEntry(nil), f.files[serverID+":"+path]...), nil
}

func (f *Fake) Upload(ctx context.Context, serverID, localPath, remoteDir string) error {
	return f.record(ctx, OpUpload, serverID, localPath, remoteDir)
}

func (f *Fake) Download(ctx context.Context, serverID, remotePath, localPath string) error {
	return f.record(ctx, OpDownload, serverID, remotePath, localPath)
}

func (f *Fake) CreateDirectory(ctx context.Context, serverID, path string) error {
	return f.record(ctx, OpCreateDirectory, serverID, path)
}

func (f *Fake) Delete(ctx context.Context, serverID string, paths []string) error {
	return f.record(ctx, OpDelete, serverID, paths...)
}

func (f *Fake) Rename(ctx context.Context, serverID, oldPath, newPath string) error {
	return f.record(ctx, OpRename, serverID, oldPath, newPath)
}

func (f *Fake) Chmod(ctx context.Context, serverID, path, mode string) error {
	return f.record(ctx, OpChmod, serverID, path, mode)
}

func (f *Fake) MonitorSample(ctx context.Context, serverID string) (*models.MonitorSample, error) {
	if err := f.record(ctx, OpMonitorSample, serverID); err != nil {
		return nil, err
	}
	return &models.MonitorSample{CPU: models.CPUInfo{Usage: 12.5, Cores: 2, CoresUsage: []float64{10, 15}}}, nil
}

func (f *Fake) ListProfiles(ctx context.Context) ([]models.Server, error) {
	if err := f.record(ctx, OpListProfiles, ""); err != nil {
		return nil, err
	}
	return f.Stored(), nil
}

func (f *Fake) SaveProfile(ctx context.Context, s models.Server) error {
	if err := f.record(ctx, OpSaveProfile, s.ID, s.ID); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.profiles {
		if f.profiles[i].ID == s.ID {
			f.profiles[i] = s
			return nil
		}
	}
	f.profiles = append(f.profiles, s)
	return nil
}

func (f *Fake) UpdateProfile(ctx context.Context, patch models.ServerPatch) error {
	if err := f.record(ctx, OpUpdateProfile, patch.ID, patch.ID); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.profiles {
		if f.profiles[i].ID == patch.ID {
			patch.Apply(&f.profiles[i])
			return nil
		}
	}
	return fmt.Errorf("server not found: %s", patch.ID)
}

func (f *Fake) DeleteProfile(ctx context.Context, id string) error {
	if err := f.record(ctx, OpDeleteProfile, id, id); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.profiles {
		if f.profiles[i].ID == id {
			f.profiles = append(f.profiles[:i], f.profiles[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("server not found: %s", id)
}

func (f *Fake) AIChat(ctx context.Context, req gateway.ChatRequest) (models.ChatReply, error) {
	if err := f.record(ctx, OpAIChat, req.ServerID, req.Question); err != nil {
		return models.ChatReply{}, err
	}
	return models.ChatReply{Content: "echo: " + req.Question, Timestamp: 1700000000}, nil
}

func (f *Fake) AIQuickActions(ctx context.Context, serverID string) ([]models.QuickAction, error) {
	if err := f.record(ctx, OpAIQuickActions, serverID); err != nil {
		return nil, err
	}
	return []models.QuickAction{{ID: "1", Title: "status", Action: "uptime"}}, nil
}
