package server

import (
	"errors"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"al.essio.dev/pkg/shellescape"
)

// ErrTerminalUnsupported 当前系统不支持新开终端窗口
var ErrTerminalUnsupported = errors.New("multi-window connect only supported on macOS")

// connectCommand 在终端里执行的命令：当前二进制 connect <id>
func connectCommand(exe, serverID string) string {
	return shellescape.Quote(exe) + " connect " + shellescape.Quote(serverID)
}

func escapeAppleScript(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}

// launchTerminal 新开 Terminal 窗口连接服务器（仅 macOS，通过 osascript）
func launchTerminal(serverID string) error {
	if runtime.GOOS != "darwin" {
		return ErrTerminalUnsupported
	}
	exe, err := os.Executable()
	if err != nil {
		return err
	}
	script := `tell application "Terminal" to do script "` + escapeAppleScript(connectCommand(exe, serverID)) + `"`
	return exec.Command("osascript", "-e", script).Run()
}
