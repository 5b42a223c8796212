// Package gateway 定义编排层与远程后端之间的命令边界。
//
// 每个操作都是一次同步调用：返回结构化结果或错误。调用可能阻塞（跨进程或跨网络往返），
// 超时与取消通过 context 传递，编排层把它们与显式失败同等对待。
package gateway

import (
	"context"

	"myssh/internal/models"
)

// ConnectRequest 连接参数，字段名与后端保持一致（key_path）
type ConnectRequest struct {
	ServerID string `json:"server_id"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password,omitempty"`
	KeyPath  string `json:"key_path,omitempty"`
}

// ConnectResult 连接成功后后端返回的连接标识
type ConnectResult struct {
	ConnectionID string `json:"connection_id"`
}

// ChatRequest AI 对话请求
type ChatRequest struct {
	ServerID string               `json:"server_id"`
	Question string               `json:"question"`
	History  []models.ChatMessage `json:"history"`
}

// Sessions 连接生命周期
type Sessions interface {
	Connect(ctx context.Context, req ConnectRequest) (ConnectResult, error)
	Disconnect(ctx context.Context, serverID string) error
	Reconnect(ctx context.Context, serverID string) error
	Execute(ctx context.Context, serverID, command string) (models.ExecResult, error)
}

// Transfers 单文件传输
type Transfers interface {
	Upload(ctx context.Context, serverID, localPath, remoteDir string) error
	Download(ctx context.Context, serverID, remotePath, localPath string) error
}

// Files 远程文件管理
type Files interface {
	Transfers
	ListDirectory(ctx context.Context, serverID, path string) ([]models.FileEntry, error)
	CreateDirectory(ctx context.Context, serverID, path string) error
	Delete(ctx context.Context, serverID string, paths []string) error
	Rename(ctx context.Context, serverID, oldPath, newPath string) error
	Chmod(ctx context.Context, serverID, path, mode string) error
}

// Profiles 服务器配置的持久化存储
type Profiles interface {
	ListProfiles(ctx context.Context) ([]models.Server, error)
	SaveProfile(ctx context.Context, s models.Server) error
	UpdateProfile(ctx context.Context, patch models.ServerPatch) error
	DeleteProfile(ctx context.Context, id string) error
}

// Monitor 系统监控采样
type Monitor interface {
	MonitorSample(ctx context.Context, serverID string) (*models.MonitorSample, error)
}

// Assistant AI 助手
type Assistant interface {
	AIChat(ctx context.Context, req ChatRequest) (models.ChatReply, error)
	AIQuickActions(ctx context.Context, serverID string) ([]models.QuickAction, error)
}

// Gateway 后端提供的全部操作
type Gateway interface {
	Sessions
	Files
	Profiles
	Monitor
	Assistant
}
