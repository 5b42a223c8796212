package ssh

import (
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/term"
)

// ShellOptions 交互式终端选项
type ShellOptions struct {
	WindowTitle string // 不为空时连接期间定期写入 /dev/tty，固定窗口标题
	Term        string // 默认 xterm-256color
	Stdin       *os.File
	Stdout      io.Writer
	Stderr      io.Writer
}

// Shell 在已建立的连接上请求 PTY 并进入交互式终端，直到远程 shell 退出
func Shell(client *ssh.Client, opts ShellOptions) error {
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Term == "" {
		opts.Term = "xterm-256color"
	}

	fd := int(opts.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return fmt.Errorf("标准输入不是终端，无法进入交互模式")
	}

	session, err := client.NewSession()
	if err != nil {
		return fmt.Errorf("创建会话失败: %w", err)
	}
	defer session.Close()

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return err
	}
	defer term.Restore(fd, oldState)

	w, h, err := term.GetSize(fd)
	if err != nil {
		w, h = 80, 24
	}
	modes := ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	if err := session.RequestPty(opts.Term, h, w, modes); err != nil {
		return fmt.Errorf("请求 PTY 失败: %w", err)
	}
	session.Stdin = opts.Stdin
	session.Stdout = opts.Stdout
	session.Stderr = opts.Stderr

	done := make(chan struct{})
	defer close(done)
	go watchWindowSize(done, session, fd, w, h)
	if opts.WindowTitle != "" {
		go keepWindowTitle(done, opts.WindowTitle)
	}

	if err := session.Shell(); err != nil {
		return err
	}
	return session.Wait()
}

// keepWindowTitle 定期向 /dev/tty 写入 OSC 标题，使状态栏始终显示服务器名
func keepWindowTitle(done <-chan struct{}, title string) {
	tty, err := os.OpenFile("/dev/tty", os.O_WRONLY, 0)
	if err != nil {
		return
	}
	defer tty.Close()
	seq := "\033]0;" + title + "\007\033]2;" + title + "\007"
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		_, _ = tty.WriteString(seq)
		select {
		case <-done:
			return
		case <-ticker.C:
		}
	}
}

// watchWindowSize 轮询本地终端尺寸，变化时通知服务端
func watchWindowSize(done <-chan struct{}, session *ssh.Session, fd, w, h int) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
		}
		nw, nh, err := term.GetSize(fd)
		if err != nil {
			return
		}
		if nw != w || nh != h {
			w, h = nw, nh
			_ = session.WindowChange(h, w)
		}
	}
}
