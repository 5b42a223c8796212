package main

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"myssh/internal/ai"
	"myssh/internal/audit"
	"myssh/internal/backend"
	"myssh/internal/config"
	clierrors "myssh/internal/errors"
	"myssh/internal/logging"
	"myssh/internal/session"
	"myssh/internal/ssh"
	"myssh/internal/transfer"
)

// 命令行参数到配置键
var flagKeys = map[string]string{
	"data-dir":   "data_dir",
	"log-level":  "log.level",
	"log-format": "log.format",
	"log-file":   "log.file",
}

// app 一次命令执行期间共享的依赖，按需创建
type app struct {
	configFile string

	settings  *config.Settings
	log       zerolog.Logger
	logCloser io.Closer

	backend *backend.Local
	audit   *audit.Log
	orch    *session.Orchestrator
}

func (a *app) init(cmd *cobra.Command) error {
	v := config.NewViper()
	for flag, key := range flagKeys {
		if err := v.BindPFlag(key, cmd.Root().PersistentFlags().Lookup(flag)); err != nil {
			return clierrors.ConfigInvalid(err)
		}
	}
	if err := config.ReadFile(v, a.configFile); err != nil {
		return clierrors.ConfigInvalid(err)
	}
	s, err := config.Decode(v)
	if err != nil {
		return clierrors.ConfigInvalid(err)
	}
	logger, closer, err := logging.New(logging.Options{Level: s.LogLevel, Format: s.LogFormat, File: s.LogFile})
	if err != nil {
		return clierrors.Usage(err.Error()).WithHint("--log-level 可选 error|warn|info|debug，--log-format 可选 console|json")
	}
	a.settings = s
	a.log = logger.With().Str("cmd", cmd.CommandPath()).Logger()
	a.logCloser = closer
	return nil
}

// open 创建后端与编排器并加载服务器配置
func (a *app) open(ctx context.Context) (*session.Orchestrator, error) {
	if a.orch != nil {
		return a.orch, nil
	}
	s := a.settings
	a.backend = backend.New(backend.Options{
		Store: config.NewStore(s.StorePath(), s.Keyring),
		Dial:  ssh.DialOptions{Timeout: s.DialTimeout, KnownHosts: s.KnownHosts},
		AI: ai.Options{
			BaseURL: s.AIBaseURL,
			APIKey:  s.AIAPIKey,
			Model:   s.AIModel,
			Timeout: s.AITimeout,
		},
		Logger: a.log,
	})
	a.audit = audit.New(s.DataDir)
	orch := session.New(a.backend, session.Options{Logger: a.log, Audit: a.audit})
	if err := orch.Load(ctx); err != nil {
		return nil, clierrors.FromSession("", err)
	}
	a.orch = orch
	return orch, nil
}

// connect 加载配置并连接 id
func (a *app) connect(ctx context.Context, id string) (*session.Orchestrator, error) {
	orch, err := a.open(ctx)
	if err != nil {
		return nil, err
	}
	stop := startSpinner("正在连接 " + id)
	err = orch.Connect(ctx, id)
	stop()
	if err != nil {
		return nil, clierrors.FromSession(id, err)
	}
	return orch, nil
}

// startSpinner 标准错误是终端时显示等待动画，返回停止函数
func startSpinner(message string) func() {
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		return func() {}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " " + message
	s.Start()
	return s.Stop
}

func (a *app) coordinator(obs transfer.Observer) *transfer.Coordinator {
	return transfer.New(a.backend, a.orch, transfer.Options{
		Workers:  a.settings.Workers,
		Logger:   a.log,
		Audit:    a.audit,
		Observer: obs,
	})
}

func (a *app) close(ctx context.Context) error {
	var err error
	if a.orch != nil {
		err = a.orch.Close(ctx)
	}
	if a.backend != nil {
		_ = a.backend.Close()
	}
	if a.logCloser != nil {
		_ = a.logCloser.Close()
	}
	return err
}
