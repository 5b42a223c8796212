// Package ssh 负责 SSH 拨号、认证、连接池、远程命令、交互式终端与 SFTP 文件操作
package ssh

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// ErrNoCredentials 既没有私钥也没有密码
var ErrNoCredentials = errors.New("请配置密码或私钥路径")

// Target 连接目标
type Target struct {
	Host     string
	Port     int
	User     string
	Password string
	KeyPath  string
}

// Addr host:port，端口缺省为 22
func (t Target) Addr() string {
	port := t.Port
	if port <= 0 {
		port = 22
	}
	return net.JoinHostPort(t.Host, strconv.Itoa(port))
}

// DialOptions 拨号选项
type DialOptions struct {
	Timeout    time.Duration
	KnownHosts string // 为空时不校验主机密钥
}

// Dial 建立 SSH 连接；认证优先使用私钥，其次密码。超时与取消同时作用于 TCP 连接和握手。
func Dial(ctx context.Context, t Target, opts DialOptions) (*ssh.Client, error) {
	config, err := buildClientConfig(t.User, t.Password, t.KeyPath)
	if err != nil {
		return nil, err
	}
	config.Timeout = opts.Timeout
	if opts.KnownHosts != "" {
		cb, err := knownhosts.New(opts.KnownHosts)
		if err != nil {
			return nil, fmt.Errorf("读取 known_hosts 失败: %w", err)
		}
		config.HostKeyCallback = cb
	}

	addr := t.Addr()
	d := net.Dialer{Timeout: opts.Timeout}
	nc, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("连接失败: %w", err)
	}
	stop := context.AfterFunc(ctx, func() { _ = nc.Close() })
	defer stop()
	if opts.Timeout > 0 {
		_ = nc.SetDeadline(time.Now().Add(opts.Timeout))
	}
	c, chans, reqs, err := ssh.NewClientConn(nc, addr, config)
	if err != nil {
		_ = nc.Close()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("连接失败: %w", ctxErr)
		}
		return nil, fmt.Errorf("SSH 握手失败: %w", err)
	}
	_ = nc.SetDeadline(time.Time{})
	return ssh.NewClient(c, chans, reqs), nil
}

func buildClientConfig(user, password, keyPath string) (*ssh.ClientConfig, error) {
	var auth []ssh.AuthMethod
	if keyPath != "" {
		keyAuth, err := readPrivateKey(expandHome(keyPath))
		if err != nil {
			return nil, fmt.Errorf("读取私钥失败: %w", err)
		}
		auth = append(auth, keyAuth)
	}
	if password != "" {
		auth = append(auth, ssh.Password(password))
	}
	if len(auth) == 0 {
		return nil, ErrNoCredentials
	}
	return &ssh.ClientConfig{
		User:            user,
		Auth:            auth,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
	}, nil
}

func readPrivateKey(path string) (ssh.AuthMethod, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	signer, err := ssh.ParsePrivateKey(data)
	if err != nil {
		var missing *ssh.PassphraseMissingError
		if errors.As(err, &missing) {
			return nil, fmt.Errorf("加密私钥暂不支持，请使用未加密私钥或配置密码登录: %w", err)
		}
		return nil, err
	}
	return ssh.PublicKeys(signer), nil
}

// expandHome 展开开头的 ~/
func expandHome(p string) string {
	if !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return home + p[1:]
}
