// Package config 负责运行配置（viper）与服务器配置文件的读写。
//
// 运行配置来源（优先级从高到低）：
//  1. 命令行参数
//  2. 环境变量（MYSSH_*）
//  3. 配置文件（<UserConfigDir>/myssh/config.yaml 或 --config 指定的文件）
//  4. 内置默认值
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// 默认值
const (
	AppName            = "myssh"
	DefaultHTTPAddr    = ":21008"
	DefaultDialTimeout = 10 * time.Second
	DefaultAITimeout   = 60 * time.Second
	DefaultWorkers     = 1
)

// Settings 解析后的运行配置
type Settings struct {
	DataDir string

	LogLevel  string
	LogFormat string
	LogFile   string

	HTTPAddr string

	DialTimeout time.Duration
	KnownHosts  string

	Workers int
	Keyring bool

	AIBaseURL string
	AIAPIKey  string
	AIModel   string
	AITimeout time.Duration
}

// StorePath 服务器配置文件
func (s *Settings) StorePath() string {
	return filepath.Join(s.DataDir, "servers.json")
}

// AuthDir 主密码与会话目录
func (s *Settings) AuthDir() string {
	return s.DataDir
}

// DefaultDataDir <UserConfigDir>/myssh
// macOS 为 ~/Library/Application Support/myssh，Linux 为 ~/.config/myssh
func DefaultDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", "."+AppName)
	}
	return filepath.Join(dir, AppName)
}

// NewViper 带默认值与环境变量绑定的 viper 实例
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("data_dir", DefaultDataDir())
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file", "")
	v.SetDefault("http.addr", DefaultHTTPAddr)
	v.SetDefault("ssh.dial_timeout", DefaultDialTimeout)
	v.SetDefault("ssh.known_hosts", "")
	v.SetDefault("transfer.workers", DefaultWorkers)
	v.SetDefault("store.keyring", false)
	v.SetDefault("ai.base_url", "")
	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.model", "")
	v.SetDefault("ai.timeout", DefaultAITimeout)

	v.SetEnvPrefix("MYSSH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// ReadFile 读取配置文件；file 为空时在默认目录查找 config.yaml，不存在不算错误
func ReadFile(v *viper.Viper, file string) error {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.AddConfigPath(DefaultDataDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("读取配置文件失败: %w", err)
	}
	return nil
}

// Decode 从 viper 中取出全部配置并校验
func Decode(v *viper.Viper) (*Settings, error) {
	s := &Settings{
		DataDir:     expandHome(v.GetString("data_dir")),
		LogLevel:    v.GetString("log.level"),
		LogFormat:   v.GetString("log.format"),
		LogFile:     expandHome(v.GetString("log.file")),
		HTTPAddr:    v.GetString("http.addr"),
		DialTimeout: v.GetDuration("ssh.dial_timeout"),
		KnownHosts:  expandHome(v.GetString("ssh.known_hosts")),
		Workers:     v.GetInt("transfer.workers"),
		Keyring:     v.GetBool("store.keyring"),
		AIBaseURL:   v.GetString("ai.base_url"),
		AIAPIKey:    v.GetString("ai.api_key"),
		AIModel:     v.GetString("ai.model"),
		AITimeout:   v.GetDuration("ai.timeout"),
	}
	if s.DataDir == "" {
		return nil, fmt.Errorf("data_dir 不能为空")
	}
	if s.DialTimeout <= 0 {
		s.DialTimeout = DefaultDialTimeout
	}
	if s.AITimeout <= 0 {
		s.AITimeout = DefaultAITimeout
	}
	if s.Workers < 1 {
		s.Workers = DefaultWorkers
	}
	return s, nil
}

func expandHome(p string) string {
	if !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[2:])
}
