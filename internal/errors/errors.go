// Package errors 提供命令行使用的结构化错误：面向用户的消息、修复提示与退出码
package errors

import (
	"context"
	"errors"
	"fmt"

	"myssh/internal/session"
)

// 退出码
const (
	ExitSuccess = 0
	ExitGeneral = 1
	ExitAuth    = 2
	ExitNetwork = 3
	ExitConfig  = 4
	ExitTimeout = 5
	ExitUsage   = 64 // BSD 约定
)

// CLIError 带提示与退出码的错误
type CLIError struct {
	Message string
	Hint    string
	Cause   error
	Code    int
}

func (e *CLIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *CLIError) Unwrap() error {
	return e.Cause
}

// New 创建 CLIError
func New(code int, message string) *CLIError {
	return &CLIError{Message: message, Code: code}
}

// Wrap 包装已有错误
func Wrap(code int, message string, cause error) *CLIError {
	return &CLIError{Message: message, Cause: cause, Code: code}
}

// WithHint 设置提示
func (e *CLIError) WithHint(hint string) *CLIError {
	e.Hint = hint
	return e
}

// As errors.As 的简写
func As(err error, target **CLIError) bool {
	return errors.As(err, target)
}

// ServerNotFound 注册表中没有该 id
func ServerNotFound(id string) *CLIError {
	return &CLIError{
		Message: fmt.Sprintf("服务器不存在: %s", id),
		Hint:    "运行 'myssh servers list' 查看可用的服务器",
		Code:    ExitConfig,
	}
}

// NotConnected 操作需要已建立的连接
func NotConnected(id string) *CLIError {
	return &CLIError{
		Message: fmt.Sprintf("服务器 %s 未连接", id),
		Hint:    "先连接该服务器再重试",
		Code:    ExitNetwork,
	}
}

// ConfigInvalid 配置文件或参数无法解析
func ConfigInvalid(cause error) *CLIError {
	return &CLIError{
		Message: "配置无效",
		Hint:    "检查 --config 指定的文件与 MYSSH_* 环境变量",
		Cause:   cause,
		Code:    ExitConfig,
	}
}

// Usage 命令行用法错误
func Usage(message string) *CLIError {
	return &CLIError{
		Message: message,
		Hint:    "运行 'myssh --help' 查看用法",
		Code:    ExitUsage,
	}
}

// FromSession 把编排层错误映射为 CLIError；已是 CLIError 或 nil 时原样返回
func FromSession(id string, err error) error {
	if err == nil {
		return nil
	}
	var cliErr *CLIError
	if As(err, &cliErr) {
		return err
	}
	switch {
	case errors.Is(err, session.ErrUnknownServer):
		e := ServerNotFound(id)
		e.Cause = err
		return e
	case errors.Is(err, session.ErrServerNotConnected):
		e := NotConnected(id)
		e.Cause = err
		return e
	case errors.Is(err, session.ErrTransitionInProgress):
		return Wrap(ExitGeneral, "该服务器正在连接或断开", err).WithHint("稍后重试")
	case errors.Is(err, session.ErrIDPreassigned):
		return Wrap(ExitUsage, "新建服务器时不能指定 id", err)
	case errors.Is(err, session.ErrPersistFailed), errors.Is(err, session.ErrBackendUnavailable):
		return Wrap(ExitConfig, "无法读写服务器配置", err)
	case errors.Is(err, context.DeadlineExceeded):
		return Wrap(ExitTimeout, "操作超时", err)
	default:
		return Wrap(ExitNetwork, "远程操作失败", err)
	}
}
