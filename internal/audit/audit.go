// Package audit 把连接与传输事件逐行追加到 access.log
package audit

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"myssh/internal/gateway"
)

// 事件状态
const (
	StatusStarted = "started"
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Event 一条审计记录
type Event struct {
	Time   time.Time
	Action string // connect | disconnect | reconnect | upload | download | delete | exec
	Server gateway.Profile
	Target string // 传输时的文件路径
	Status string
	Err    error
}

// Recorder 接收审计事件
type Recorder interface {
	Record(e Event)
}

// Nop 丢弃全部事件
type Nop struct{}

func (Nop) Record(Event) {}

// Log 写入 <dir>/access.log；每行写完立即 Sync，进程异常退出时也能落盘
type Log struct {
	path string
	mu   sync.Mutex
}

// New 在 dir 下创建审计日志
func New(dir string) *Log {
	return &Log{path: filepath.Join(dir, "access.log")}
}

// Path 日志文件路径
func (l *Log) Path() string {
	return l.path
}

// Record 追加一行；写失败时静默忽略，审计不能影响主流程
func (l *Log) Record(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(l.path), 0o700); err != nil {
		return
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return
	}
	_, _ = f.WriteString(Format(e))
	_ = f.Sync()
	_ = f.Close()
}

// Format 生成一行：时间 动作 id=.. name=.. host=.. port=.. user=.. [path=..] status=.. [err=..]
func Format(e Event) string {
	ts := e.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	port := e.Server.Port
	if port <= 0 {
		port = gateway.DefaultPort
	}
	status := e.Status
	if status == "" {
		status = StatusSuccess
		if e.Err != nil {
			status = StatusFailure
		}
	}
	line := fmt.Sprintf("%s %s id=%s name=%s host=%s port=%d user=%s",
		ts.UTC().Format(time.RFC3339), e.Action, e.Server.ID, escape(e.Server.Name),
		e.Server.Host, port, escape(e.Server.Username))
	if e.Target != "" {
		line += " path=" + escape(e.Target)
	}
	line += " status=" + status
	if e.Err != nil {
		line += " err=" + escape(e.Err.Error())
	}
	return line + "\n"
}

func escape(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "\t", "_")
	if strings.ContainsAny(s, "\n\"\\") {
		return fmt.Sprintf("%q", s)
	}
	return s
}
