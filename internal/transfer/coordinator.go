// Package transfer 批量执行互相独立的文件传输：单项失败只计数并记录，不影响其余项。
package transfer

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"myssh/internal/audit"
	"myssh/internal/gateway"
	"myssh/internal/session"
)

// Sessions 查询服务器及其连接状态
type Sessions interface {
	Get(serverID string) (session.Server, error)
}

// ItemFailure 单个失败项
type ItemFailure struct {
	Path  string `json:"path"`
	Error string `json:"error"`
	Err   error  `json:"-"`
}

// Result 批量传输的汇总；Count 为成功数
type Result struct {
	Success   bool          `json:"success"`
	Count     int           `json:"count"`
	FailCount int           `json:"failCount"`
	Failed    []ItemFailure `json:"failed,omitempty"`
}

// EventKind 进度事件类型
type EventKind int

const (
	ItemStarted EventKind = iota
	ItemFinished
)

// Event 单项进度；Index 为输入中的下标
type Event struct {
	Kind  EventKind
	Op    string // upload | download
	Index int
	Total int
	Path  string
	Err   error
}

// Observer 接收进度事件；并发执行时也按调用串行投递
type Observer func(Event)

// Options 可选配置
type Options struct {
	Workers  int // <= 1 时按输入顺序逐个执行
	Logger   zerolog.Logger
	Audit    audit.Recorder
	Observer Observer
}

// Coordinator 批量传输协调器
type Coordinator struct {
	gw       gateway.Transfers
	sessions Sessions
	workers  int
	log      zerolog.Logger
	audit    audit.Recorder
	observe  Observer
	obsMu    sync.Mutex
}

// New 创建协调器
func New(gw gateway.Transfers, sessions Sessions, opts Options) *Coordinator {
	c := &Coordinator{
		gw:       gw,
		sessions: sessions,
		workers:  opts.Workers,
		log:      opts.Logger,
		audit:    opts.Audit,
		observe:  opts.Observer,
	}
	if c.workers < 1 {
		c.workers = 1
	}
	if c.audit == nil {
		c.audit = audit.Nop{}
	}
	return c
}

// UploadMany 把每个本地文件上传到 remoteDir。
// 上传前检查服务器存在且已连接；之后每一项恰好尝试一次，失败项记录在 Failed 中（按输入顺序）。
func (c *Coordinator) UploadMany(ctx context.Context, serverID string, localPaths []string, remoteDir string) (Result, error) {
	return c.run(ctx, "upload", serverID, localPaths, func(ctx context.Context, src string) error {
		return c.gw.Upload(ctx, serverID, src, remoteDir)
	})
}

// DownloadMany 把每个远程文件下载到 localDir/<文件名>
func (c *Coordinator) DownloadMany(ctx context.Context, serverID string, remotePaths []string, localDir string) (Result, error) {
	return c.run(ctx, "download", serverID, remotePaths, func(ctx context.Context, src string) error {
		return c.gw.Download(ctx, serverID, src, filepath.Join(localDir, path.Base(src)))
	})
}

func (c *Coordinator) run(ctx context.Context, op, serverID string, items []string, do func(context.Context, string) error) (Result, error) {
	s, err := c.sessions.Get(serverID)
	if err != nil {
		return Result{}, fmt.Errorf("%s %s: %w", op, serverID, err)
	}
	if !s.Connected {
		return Result{}, fmt.Errorf("%s %s: %w", op, serverID, session.ErrServerNotConnected)
	}
	if len(items) == 0 {
		return Result{Success: true}, nil
	}

	errs := make([]error, len(items))
	one := func(i int) {
		c.notify(Event{Kind: ItemStarted, Op: op, Index: i, Total: len(items), Path: items[i]})
		err := do(ctx, items[i])
		errs[i] = err
		c.audit.Record(audit.Event{Action: op, Server: s.Profile, Target: items[i], Err: err})
		if err != nil {
			c.log.Warn().Err(err).Str("server", serverID).Str("path", items[i]).Msgf("%s failed", op)
		} else {
			c.log.Debug().Str("server", serverID).Str("path", items[i]).Msgf("%s done", op)
		}
		c.notify(Event{Kind: ItemFinished, Op: op, Index: i, Total: len(items), Path: items[i], Err: err})
	}

	if c.workers == 1 {
		for i := range items {
			one(i)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(c.workers)
		for i := range items {
			g.Go(func() error {
				one(i)
				return nil
			})
		}
		_ = g.Wait()
	}

	var res Result
	for i, err := range errs {
		if err != nil {
			res.FailCount++
			res.Failed = append(res.Failed, ItemFailure{Path: items[i], Error: err.Error(), Err: err})
			continue
		}
		res.Count++
	}
	res.Success = res.FailCount == 0
	c.log.Info().Str("server", serverID).Int("count", res.Count).Int("failCount", res.FailCount).Msgf("%s batch finished", op)
	return res, nil
}

func (c *Coordinator) notify(e Event) {
	if c.observe == nil {
		return
	}
	c.obsMu.Lock()
	defer c.obsMu.Unlock()
	c.observe(e)
}
