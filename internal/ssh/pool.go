package ssh

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/sftp"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"
)

type conn struct {
	target Target
	client *ssh.Client
	sftp   *sftp.Client
	mu     sync.Mutex // 保护 sftp 的延迟创建
}

func (c *conn) close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sftp != nil {
		_ = c.sftp.Close()
		c.sftp = nil
	}
	return c.client.Close()
}

// Pool 按服务器 id 保存已建立的连接
type Pool struct {
	opts DialOptions
	log  zerolog.Logger

	mu    sync.Mutex
	conns map[string]*conn
}

// NewPool 创建连接池
func NewPool(opts DialOptions, log zerolog.Logger) *Pool {
	return &Pool{opts: opts, log: log, conns: make(map[string]*conn)}
}

// Connect 拨号并保存连接；同一 id 的旧连接会被替换并关闭
func (p *Pool) Connect(ctx context.Context, id string, t Target) error {
	client, err := Dial(ctx, t, p.opts)
	if err != nil {
		return err
	}
	p.mu.Lock()
	old := p.conns[id]
	p.conns[id] = &conn{target: t, client: client}
	p.mu.Unlock()
	if old != nil {
		_ = old.close()
	}
	p.log.Debug().Str("server", id).Str("addr", t.Addr()).Msg("ssh connected")
	return nil
}

// Close 关闭并移除连接；id 不存在时直接返回 nil
func (p *Pool) Close(id string) error {
	p.mu.Lock()
	c := p.conns[id]
	delete(p.conns, id)
	p.mu.Unlock()
	if c == nil {
		return nil
	}
	if err := c.close(); err != nil {
		p.log.Debug().Err(err).Str("server", id).Msg("ssh close")
	}
	return nil
}

// Reconnect 用上次成功连接的参数重新拨号
func (p *Pool) Reconnect(ctx context.Context, id string) error {
	p.mu.Lock()
	c := p.conns[id]
	p.mu.Unlock()
	if c == nil {
		return fmt.Errorf("服务器 %s 未连接", id)
	}
	return p.Connect(ctx, id, c.target)
}

// Client 返回已建立的 SSH 连接
func (p *Pool) Client(id string) (*ssh.Client, error) {
	c, err := p.get(id)
	if err != nil {
		return nil, err
	}
	return c.client, nil
}

// SFTP 返回该连接上的 SFTP 客户端，首次调用时创建
func (p *Pool) SFTP(id string) (*sftp.Client, error) {
	c, err := p.get(id)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sftp == nil {
		s, err := sftp.NewClient(c.client)
		if err != nil {
			return nil, fmt.Errorf("创建 SFTP 会话失败: %w", err)
		}
		c.sftp = s
	}
	return c.sftp, nil
}

// CloseAll 关闭全部连接
func (p *Pool) CloseAll() {
	p.mu.Lock()
	conns := p.conns
	p.conns = make(map[string]*conn)
	p.mu.Unlock()
	for _, c := range conns {
		_ = c.close()
	}
}

// Len 当前连接数
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.conns)
}

func (p *Pool) get(id string) (*conn, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c := p.conns[id]
	if c == nil {
		return nil, fmt.Errorf("服务器 %s 未连接", id)
	}
	return c, nil
}
