package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/zalando/go-keyring"

	"myssh/internal/models"
)

// KeyringService 系统钥匙串中的服务名，账户名为服务器 id
const KeyringService = AppName

// ErrServerNotFound 更新或删除不存在的服务器
var ErrServerNotFound = errors.New("server not found")

// Store 服务器配置文件 servers.json；开启钥匙串时密码不落盘
type Store struct {
	path    string
	keyring bool

	mu sync.Mutex
}

// NewStore path 为 servers.json 路径
func NewStore(path string, useKeyring bool) *Store {
	return &Store{path: path, keyring: useKeyring}
}

// Path 文件路径
func (s *Store) Path() string {
	return s.path
}

// List 按文件中的顺序返回全部服务器
func (s *Store) List() ([]models.Server, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, err := s.load()
	if err != nil {
		return nil, err
	}
	if s.keyring {
		for i := range cfg.Servers {
			if cfg.Servers[i].Password != "" {
				continue
			}
			if pw, err := keyring.Get(KeyringService, cfg.Servers[i].ID); err == nil {
				cfg.Servers[i].Password = pw
			}
		}
	}
	return cfg.Servers, nil
}

// Save 按 id 插入或整体替换
func (s *Store) Save(srv models.Server) error {
	if srv.ID == "" {
		return fmt.Errorf("server id is empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, err := s.load()
	if err != nil {
		return err
	}
	if srv, err = s.stashPassword(srv); err != nil {
		return err
	}
	replaced := false
	for i := range cfg.Servers {
		if cfg.Servers[i].ID == srv.ID {
			cfg.Servers[i] = srv
			replaced = true
			break
		}
	}
	if !replaced {
		cfg.Servers = append(cfg.Servers, srv)
	}
	return s.save(cfg)
}

// Update 只修改补丁中设置的字段
func (s *Store) Update(patch models.ServerPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, err := s.load()
	if err != nil {
		return err
	}
	for i := range cfg.Servers {
		if cfg.Servers[i].ID != patch.ID {
			continue
		}
		patch.Apply(&cfg.Servers[i])
		if patch.Password != nil {
			if cfg.Servers[i], err = s.stashPassword(cfg.Servers[i]); err != nil {
				return err
			}
		}
		return s.save(cfg)
	}
	return fmt.Errorf("%w: %s", ErrServerNotFound, patch.ID)
}

// Delete 删除服务器及其钥匙串中的密码
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, err := s.load()
	if err != nil {
		return err
	}
	for i := range cfg.Servers {
		if cfg.Servers[i].ID != id {
			continue
		}
		cfg.Servers = append(cfg.Servers[:i], cfg.Servers[i+1:]...)
		if err := s.save(cfg); err != nil {
			return err
		}
		if s.keyring {
			if err := keyring.Delete(KeyringService, id); err != nil && !errors.Is(err, keyring.ErrNotFound) {
				return fmt.Errorf("删除钥匙串密码失败: %w", err)
			}
		}
		return nil
	}
	return fmt.Errorf("%w: %s", ErrServerNotFound, id)
}

// stashPassword 开启钥匙串时把密码移入钥匙串，返回清空密码后的记录
func (s *Store) stashPassword(srv models.Server) (models.Server, error) {
	if !s.keyring {
		return srv, nil
	}
	if srv.Password == "" {
		if err := keyring.Delete(KeyringService, srv.ID); err != nil && !errors.Is(err, keyring.ErrNotFound) {
			return srv, fmt.Errorf("删除钥匙串密码失败: %w", err)
		}
		return srv, nil
	}
	if err := keyring.Set(KeyringService, srv.ID, srv.Password); err != nil {
		return srv, fmt.Errorf("写入钥匙串失败: %w", err)
	}
	srv.Password = ""
	return srv, nil
}

func (s *Store) load() (*models.Config, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &models.Config{Servers: []models.Server{}}, nil
		}
		return nil, err
	}
	var cfg models.Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	if cfg.Servers == nil {
		cfg.Servers = []models.Server{}
	}
	// 为没有 ID 的旧数据补全唯一 ID
	max := 0
	for _, srv := range cfg.Servers {
		if n := parseNum(srv.ID); n > max {
			max = n
		}
	}
	for i := range cfg.Servers {
		if cfg.Servers[i].ID == "" {
			max++
			cfg.Servers[i].ID = strconv.Itoa(max)
		}
	}
	return &cfg, nil
}

// parseNum 纯数字 id 的数值，其他形式（如 uuid）返回 0
func parseNum(s string) int {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int(c-'0')
		if n < 0 || n > 1<<30 {
			return 0
		}
	}
	return n
}

func (s *Store) save(cfg *models.Config) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
