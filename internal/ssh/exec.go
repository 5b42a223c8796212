package ssh

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/ssh"

	"myssh/internal/models"
)

// Exec 在新会话中执行命令，返回合并后的输出与退出码；非零退出码不算错误
func Exec(ctx context.Context, client *ssh.Client, command string) (models.ExecResult, error) {
	session, err := client.NewSession()
	if err != nil {
		return models.ExecResult{}, fmt.Errorf("创建会话失败: %w", err)
	}
	defer session.Close()

	var out bytes.Buffer
	session.Stdout = &out
	session.Stderr = &out
	done := make(chan error, 1)
	go func() { done <- session.Run(command) }()

	select {
	case <-ctx.Done():
		_ = session.Close()
		return models.ExecResult{}, ctx.Err()
	case err = <-done:
	}
	return execResult(out.String(), err)
}

func execResult(output string, err error) (models.ExecResult, error) {
	res := models.ExecResult{Output: output}
	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitStatus()
		return res, nil
	}
	if err != nil {
		return res, fmt.Errorf("执行命令失败: %w", err)
	}
	return res, nil
}
