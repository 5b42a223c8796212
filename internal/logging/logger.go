// Package logging 基于 zerolog 构建进程内共享的结构化日志
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

const redacted = "[REDACTED]"

// Options 日志配置
type Options struct {
	Level  string // debug | info | warn | error
	Format string // console | json
	File   string // 额外写入的日志文件（可选）
	Out    io.Writer
}

// New 根据配置创建 logger，返回的 closer 用于关闭日志文件
func New(opts Options) (zerolog.Logger, io.Closer, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return zerolog.Nop(), nopCloser{}, err
	}
	out := opts.Out
	if out == nil {
		out = os.Stderr
	}

	var sink io.Writer
	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case "", "console":
		sink = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	case "json":
		sink = out
	default:
		return zerolog.Nop(), nopCloser{}, fmt.Errorf("invalid log format: %q (allowed: console, json)", opts.Format)
	}

	var closer io.Closer = nopCloser{}
	if p := strings.TrimSpace(opts.File); p != "" {
		f, err := openLogFile(p)
		if err != nil {
			return zerolog.Nop(), nopCloser{}, err
		}
		// 文件中始终写 JSON，便于事后分析
		sink = zerolog.MultiLevelWriter(sink, f)
		closer = f
	}

	logger := zerolog.New(sink).Level(level).With().Timestamp().Logger()
	return logger, closer, nil
}

// Nop 测试与默认场景使用的空 logger
func Nop() zerolog.Logger {
	return zerolog.Nop()
}

// ParseLevel 解析日志级别，空字符串视为 info
func ParseLevel(s string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return zerolog.InfoLevel, nil
	case "debug":
		return zerolog.DebugLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	default:
		return zerolog.InfoLevel, fmt.Errorf("invalid log level: %q (allowed: error, warn, info, debug)", s)
	}
}

// IsSensitive 字段名是否属于不可写入日志的凭据
func IsSensitive(key string) bool {
	key = strings.ToLower(key)
	for _, p := range []string{"password", "passphrase", "api_key", "apikey", "token", "secret"} {
		if strings.Contains(key, p) {
			return true
		}
	}
	return false
}

// Redact 对敏感字段返回占位符，其余原样返回
func Redact(key, value string) string {
	if value != "" && IsSensitive(key) {
		return redacted
	}
	return value
}

func openLogFile(path string) (*os.File, error) {
	clean := filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(clean), 0o700); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(clean, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
