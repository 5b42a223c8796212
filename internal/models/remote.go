package models

// 文件类型
const (
	FileTypeFile      = "file"
	FileTypeDirectory = "directory"
)

// FileEntry 远程目录中的一项
type FileEntry struct {
	Name     string `json:"name"`
	Type     string `json:"type"` // file | directory
	Size     int64  `json:"size"`
	Modified string `json:"modified"` // RFC3339
	Path     string `json:"path"`
	Mode     string `json:"mode,omitempty"`
}

// ExecResult 远程命令执行结果
type ExecResult struct {
	Output   string `json:"output"`
	ExitCode int    `json:"exitCode"`
}

// CPUInfo CPU 使用情况
type CPUInfo struct {
	Usage       float64   `json:"usage"`     // 总使用率 0-100
	Cores       int       `json:"cores"`     // 核心数
	Frequency   float64   `json:"frequency"` // MHz
	LoadAverage string    `json:"loadAverage"`
	CoresUsage  []float64 `json:"coresUsage"`
}

// MemoryInfo 内存（字节）
type MemoryInfo struct {
	Total     uint64  `json:"total"`
	Used      uint64  `json:"used"`
	Cached    *uint64 `json:"cached,omitempty"`
	Available uint64  `json:"available"`
}

// DiskInfo 单个挂载点（字节）
type DiskInfo struct {
	Mount      string  `json:"mount"`
	Filesystem string  `json:"filesystem"`
	Total      uint64  `json:"total"`
	Used       uint64  `json:"used"`
	Available  uint64  `json:"available"`
	Usage      float64 `json:"usage"`
}

// NetworkInfo 网络速率（字节/秒）与累计量（字节）
type NetworkInfo struct {
	Download      uint64 `json:"download"`
	Upload        uint64 `json:"upload"`
	DownloadTotal uint64 `json:"downloadTotal"`
	UploadTotal   uint64 `json:"uploadTotal"`
}

// MonitorSample 一次系统监控采样
type MonitorSample struct {
	CPU     CPUInfo     `json:"cpu"`
	Memory  MemoryInfo  `json:"memory"`
	Disk    []DiskInfo  `json:"disk"`
	Network NetworkInfo `json:"network"`
}

// ChatMessage AI 对话消息
type ChatMessage struct {
	Role      string `json:"role"` // user | assistant
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// ChatReply AI 回复
type ChatReply struct {
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

// QuickAction AI 快速操作建议
type QuickAction struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Action      string `json:"action"`
}
