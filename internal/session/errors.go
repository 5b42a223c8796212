package session

import (
	"errors"
	"fmt"
)

// 编排层错误分类，调用方用 errors.Is 判断
var (
	ErrUnknownServer        = errors.New("unknown server")
	ErrServerNotConnected   = errors.New("server not connected")
	ErrBackendUnavailable   = errors.New("backend unavailable")
	ErrPersistFailed        = errors.New("persist failed")
	ErrIDPreassigned        = errors.New("profile id must not be pre-assigned")
	ErrTransitionInProgress = errors.New("connection transition already in progress")
	ErrUnknownTab           = errors.New("unknown tab")
)

// OpError 记录失败的操作、服务器以及分类和底层原因。
// errors.Is 同时可以匹配 Kind 与 Err。
type OpError struct {
	Op       string
	ServerID string
	Kind     error // 上面的分类之一，可能为 nil（例如连接失败原样透传）
	Err      error // 网关返回的原始错误，可能为 nil
}

func (e *OpError) Error() string {
	prefix := e.Op
	if e.ServerID != "" {
		prefix += " " + e.ServerID
	}
	switch {
	case e.Kind != nil && e.Err != nil:
		return fmt.Sprintf("%s: %v: %v", prefix, e.Kind, e.Err)
	case e.Kind != nil:
		return fmt.Sprintf("%s: %v", prefix, e.Kind)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", prefix, e.Err)
	}
	return prefix + ": failed"
}

func (e *OpError) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

func opErr(op, serverID string, kind, err error) error {
	return &OpError{Op: op, ServerID: serverID, Kind: kind, Err: err}
}
