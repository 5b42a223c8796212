// Package auth 本地 Web 界面的主密码认证：bcrypt 哈希落盘，会话保存在内存中
package auth

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	defaultCost = 12
	minPassword = 6
	hashFile    = ".auth_hash"
)

// 认证错误
var (
	ErrPasswordTooShort = errors.New("主密码至少 6 位")
	ErrAlreadySet       = errors.New("already set")
)

// Guard 持有主密码哈希路径与登录会话
type Guard struct {
	dir  string
	cost int
	now  func() time.Time

	mu       sync.RWMutex
	sessions map[string]time.Time
}

// Option Guard 可选项
type Option func(*Guard)

// WithCost 设置 bcrypt 成本（测试中使用 bcrypt.MinCost）
func WithCost(cost int) Option {
	return func(g *Guard) { g.cost = cost }
}

// WithClock 替换时钟
func WithClock(now func() time.Time) Option {
	return func(g *Guard) { g.now = now }
}

// New 哈希文件位于 dir/.auth_hash
func New(dir string, opts ...Option) *Guard {
	g := &Guard{
		dir:      dir,
		cost:     defaultCost,
		now:      time.Now,
		sessions: make(map[string]time.Time),
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

func (g *Guard) hashPath() string {
	return filepath.Join(g.dir, hashFile)
}

// HasPassword 是否已设置主密码（存在哈希文件）
func (g *Guard) HasPassword() (bool, error) {
	_, err := os.Stat(g.hashPath())
	if os.IsNotExist(err) {
		return false, nil
	}
	return err == nil, err
}

// SetPassword 写入 bcrypt 哈希
func (g *Guard) SetPassword(password string) error {
	if len(password) < minPassword {
		return ErrPasswordTooShort
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), g.cost)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(g.dir, 0o700); err != nil {
		return err
	}
	return os.WriteFile(g.hashPath(), hash, 0o600)
}

// VerifyPassword 未设置主密码时返回 false
func (g *Guard) VerifyPassword(password string) (bool, error) {
	data, err := os.ReadFile(g.hashPath())
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return bcrypt.CompareHashAndPassword(data, []byte(password)) == nil, nil
}
