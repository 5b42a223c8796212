package session

import (
	"context"

	"myssh/internal/gateway"
	"myssh/internal/models"
)

// Remote 绑定到一台服务器的远程操作；每次调用前检查连接状态，失败原样返回，不重试
type Remote struct {
	o        *Orchestrator
	serverID string
}

// Files 返回 serverID 的远程操作入口；服务器不存在或未连接的错误在调用时返回
func (o *Orchestrator) Files(serverID string) *Remote {
	return &Remote{o: o, serverID: serverID}
}

func (r *Remote) check(op string) (Profile, error) {
	if err := r.o.RequireConnected(r.serverID); err != nil {
		return Profile{}, opErr(op, r.serverID, err, nil)
	}
	p, _, err := r.o.profile(r.serverID)
	if err != nil {
		return Profile{}, opErr(op, r.serverID, err, nil)
	}
	return p, nil
}

func (r *Remote) wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return opErr(op, r.serverID, nil, err)
}

func (r *Remote) ListDirectory(ctx context.Context, path string) ([]models.FileEntry, error) {
	if _, err := r.check("list"); err != nil {
		return nil, err
	}
	entries, err := r.o.gw.ListDirectory(ctx, r.serverID, path)
	return entries, r.wrap("list", err)
}

// Upload 上传单个文件到 remoteDir；批量上传见 transfer 包
func (r *Remote) Upload(ctx context.Context, localPath, remoteDir string) error {
	p, err := r.check("upload")
	if err != nil {
		return err
	}
	err = r.o.gw.Upload(ctx, r.serverID, localPath, remoteDir)
	r.o.record("upload", p, localPath, "", err)
	return r.wrap("upload", err)
}

func (r *Remote) Download(ctx context.Context, remotePath, localPath string) error {
	p, err := r.check("download")
	if err != nil {
		return err
	}
	err = r.o.gw.Download(ctx, r.serverID, remotePath, localPath)
	r.o.record("download", p, remotePath, "", err)
	return r.wrap("download", err)
}

func (r *Remote) CreateDirectory(ctx context.Context, path string) error {
	if _, err := r.check("mkdir"); err != nil {
		return err
	}
	return r.wrap("mkdir", r.o.gw.CreateDirectory(ctx, r.serverID, path))
}

func (r *Remote) Delete(ctx context.Context, paths ...string) error {
	p, err := r.check("delete")
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return nil
	}
	err = r.o.gw.Delete(ctx, r.serverID, paths)
	for _, path := range paths {
		r.o.record("delete", p, path, "", err)
	}
	return r.wrap("delete", err)
}

func (r *Remote) Rename(ctx context.Context, oldPath, newPath string) error {
	if _, err := r.check("rename"); err != nil {
		return err
	}
	return r.wrap("rename", r.o.gw.Rename(ctx, r.serverID, oldPath, newPath))
}

func (r *Remote) Chmod(ctx context.Context, path, mode string) error {
	if _, err := r.check("chmod"); err != nil {
		return err
	}
	return r.wrap("chmod", r.o.gw.Chmod(ctx, r.serverID, path, mode))
}

func (r *Remote) Execute(ctx context.Context, command string) (models.ExecResult, error) {
	p, err := r.check("exec")
	if err != nil {
		return models.ExecResult{}, err
	}
	res, err := r.o.gw.Execute(ctx, r.serverID, command)
	r.o.record("exec", p, command, "", err)
	return res, r.wrap("exec", err)
}

func (r *Remote) MonitorSample(ctx context.Context) (*models.MonitorSample, error) {
	if _, err := r.check("monitor"); err != nil {
		return nil, err
	}
	s, err := r.o.gw.MonitorSample(ctx, r.serverID)
	return s, r.wrap("monitor", err)
}

func (r *Remote) AIChat(ctx context.Context, question string, history []models.ChatMessage) (models.ChatReply, error) {
	if _, err := r.check("ai-chat"); err != nil {
		return models.ChatReply{}, err
	}
	reply, err := r.o.gw.AIChat(ctx, gateway.ChatRequest{
		ServerID: r.serverID,
		Question: question,
		History:  history,
	})
	return reply, r.wrap("ai-chat", err)
}

func (r *Remote) AIQuickActions(ctx context.Context) ([]models.QuickAction, error) {
	if _, err := r.check("ai-actions"); err != nil {
		return nil, err
	}
	actions, err := r.o.gw.AIQuickActions(ctx, r.serverID)
	return actions, r.wrap("ai-actions", err)
}
