// Package backend 是 gateway.Gateway 的本地实现：配置文件 + SSH/SFTP + 远程采样 + AI 接口
package backend

import (
	"context"
	"fmt"
	"path"

	"github.com/rs/zerolog"

	"myssh/internal/ai"
	"myssh/internal/gateway"
	"myssh/internal/models"
	"myssh/internal/monitor"
	"myssh/internal/ssh"
)

// Profiles 服务器配置存储
type Profiles interface {
	List() ([]models.Server, error)
	Save(s models.Server) error
	Update(patch models.ServerPatch) error
	Delete(id string) error
}

// Local 在本进程内完成全部远程操作
type Local struct {
	store   Profiles
	pool    *ssh.Pool
	sampler *monitor.Sampler
	ai      *ai.Client
	log     zerolog.Logger
}

var _ gateway.Gateway = (*Local)(nil)

// Options 组装 Local 所需的依赖
type Options struct {
	Store  Profiles
	Dial   ssh.DialOptions
	AI     ai.Options
	Logger zerolog.Logger
}

// New 创建本地后端
func New(opts Options) *Local {
	aiOpts := opts.AI
	aiOpts.Logger = opts.Logger
	return &Local{
		store:   opts.Store,
		pool:    ssh.NewPool(opts.Dial, opts.Logger),
		sampler: monitor.NewSampler(nil),
		ai:      ai.New(aiOpts),
		log:     opts.Logger,
	}
}

// Close 关闭全部连接
func (l *Local) Close() error {
	l.pool.CloseAll()
	return nil
}

func (l *Local) Connect(ctx context.Context, req gateway.ConnectRequest) (gateway.ConnectResult, error) {
	err := l.pool.Connect(ctx, req.ServerID, ssh.Target{
		Host:     req.Host,
		Port:     req.Port,
		User:     req.Username,
		Password: req.Password,
		KeyPath:  req.KeyPath,
	})
	if err != nil {
		return gateway.ConnectResult{}, err
	}
	return gateway.ConnectResult{ConnectionID: req.ServerID}, nil
}

func (l *Local) Disconnect(_ context.Context, serverID string) error {
	l.sampler.Forget(serverID)
	return l.pool.Close(serverID)
}

func (l *Local) Reconnect(ctx context.Context, serverID string) error {
	return l.pool.Reconnect(ctx, serverID)
}

func (l *Local) Execute(ctx context.Context, serverID, command string) (models.ExecResult, error) {
	client, err := l.pool.Client(serverID)
	if err != nil {
		return models.ExecResult{}, err
	}
	return ssh.Exec(ctx, client, command)
}

// Shell 在已连接的服务器上打开交互式终端
func (l *Local) Shell(serverID string, opts ssh.ShellOptions) error {
	client, err := l.pool.Client(serverID)
	if err != nil {
		return err
	}
	return ssh.Shell(client, opts)
}

func (l *Local) ListDirectory(_ context.Context, serverID, dir string) ([]models.FileEntry, error) {
	c, err := l.pool.SFTP(serverID)
	if err != nil {
		return nil, err
	}
	return ssh.ListDir(c, dir)
}

func (l *Local) Upload(ctx context.Context, serverID, localPath, remoteDir string) error {
	c, err := l.pool.SFTP(serverID)
	if err != nil {
		return err
	}
	remote, err := ssh.Upload(ctx, c, localPath, remoteDir)
	if err != nil {
		return err
	}
	l.log.Debug().Str("server", serverID).Str("local", localPath).Str("remote", remote).Msg("uploaded")
	return nil
}

func (l *Local) Download(ctx context.Context, serverID, remotePath, localPath string) error {
	c, err := l.pool.SFTP(serverID)
	if err != nil {
		return err
	}
	return ssh.Download(ctx, c, remotePath, localPath)
}

func (l *Local) CreateDirectory(_ context.Context, serverID, dir string) error {
	c, err := l.pool.SFTP(serverID)
	if err != nil {
		return err
	}
	return ssh.Mkdir(c, dir)
}

func (l *Local) Delete(_ context.Context, serverID string, paths []string) error {
	c, err := l.pool.SFTP(serverID)
	if err != nil {
		return err
	}
	for _, p := range paths {
		if clean := path.Clean(p); clean == "/" || clean == "." {
			return fmt.Errorf("拒绝删除 %q", p)
		}
	}
	return ssh.Remove(c, paths...)
}

func (l *Local) Rename(_ context.Context, serverID, oldPath, newPath string) error {
	c, err := l.pool.SFTP(serverID)
	if err != nil {
		return err
	}
	return ssh.Rename(c, oldPath, newPath)
}

func (l *Local) Chmod(_ context.Context, serverID, p, mode string) error {
	c, err := l.pool.SFTP(serverID)
	if err != nil {
		return err
	}
	return ssh.Chmod(c, p, mode)
}

func (l *Local) MonitorSample(ctx context.Context, serverID string) (*models.MonitorSample, error) {
	res, err := l.Execute(ctx, serverID, monitor.Script)
	if err != nil {
		return nil, err
	}
	if res.ExitCode != 0 && res.Output == "" {
		return nil, fmt.Errorf("monitor script exited with %d", res.ExitCode)
	}
	return l.sampler.Sample(serverID, res.Output)
}

func (l *Local) ListProfiles(context.Context) ([]models.Server, error) {
	return l.store.List()
}

func (l *Local) SaveProfile(_ context.Context, s models.Server) error {
	return l.store.Save(s)
}

func (l *Local) UpdateProfile(_ context.Context, patch models.ServerPatch) error {
	return l.store.Update(patch)
}

func (l *Local) DeleteProfile(_ context.Context, id string) error {
	return l.store.Delete(id)
}

func (l *Local) AIChat(ctx context.Context, req gateway.ChatRequest) (models.ChatReply, error) {
	srv := ai.Server{}
	if list, err := l.store.List(); err == nil {
		for _, s := range list {
			if s.ID == req.ServerID {
				srv = ai.Server{Name: s.Name, Host: s.Host, User: s.Username}
				break
			}
		}
	}
	return l.ai.Chat(ctx, srv, req.Question, req.History)
}

func (l *Local) AIQuickActions(context.Context, string) ([]models.QuickAction, error) {
	return ai.QuickActions(), nil
}
