package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"myssh/internal/gateway"
	"myssh/internal/models"
	"myssh/internal/session"
)

// 导入导出格式
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatTOML = "toml"
)

// ImportReq 导入请求：servers 为要导入的列表，replace 为 true 时替换全部，false 时与当前合并
type ImportReq struct {
	Servers []models.Server `json:"servers" yaml:"servers" toml:"servers"`
	Replace bool            `json:"replace" yaml:"replace" toml:"replace"`
}

// ImportResult 导入统计
type ImportResult struct {
	Added   int `json:"added"`
	Updated int `json:"updated"`
	Removed int `json:"removed"`
	Total   int `json:"count"`
}

// ExportConfig 当前注册表的完整配置（含密码），便于迁移或备份
func ExportConfig(servers []session.Server) models.Config {
	cfg := models.Config{Servers: make([]models.Server, 0, len(servers))}
	for _, s := range servers {
		cfg.Servers = append(cfg.Servers, gateway.ToRecord(s.Profile))
	}
	return cfg
}

// Marshal 按格式编码配置
func Marshal(cfg models.Config, format string) ([]byte, error) {
	switch format {
	case "", FormatJSON:
		return json.MarshalIndent(cfg, "", "  ")
	case FormatYAML, "yml":
		return yaml.Marshal(cfg)
	case FormatTOML:
		return toml.Marshal(cfg)
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

// Unmarshal 按格式解码导入内容；既接受 {"servers": [...]} 也接受 ImportReq
func Unmarshal(data []byte, format string) (ImportReq, error) {
	var req ImportReq
	var err error
	switch format {
	case "", FormatJSON:
		err = json.Unmarshal(data, &req)
	case FormatYAML, "yml":
		err = yaml.Unmarshal(data, &req)
	case FormatTOML:
		err = toml.Unmarshal(data, &req)
	default:
		return req, fmt.Errorf("unsupported format %q", format)
	}
	if err != nil {
		return req, fmt.Errorf("decode %s: %w", format, err)
	}
	return req, nil
}

// Import 经由注册表导入：已存在的 id 整体更新，其余作为新服务器添加（重新分配 id）。
// replace 时先删除导入列表中没有的服务器。遇到第一个错误即停止，返回已完成部分的统计。
func Import(ctx context.Context, orch *session.Orchestrator, servers []models.Server, replace bool) (ImportResult, error) {
	var res ImportResult
	existing := make(map[string]bool)
	for _, s := range orch.List() {
		existing[s.ID] = true
	}
	incoming := make(map[string]bool)
	for _, s := range servers {
		if id := strings.TrimSpace(s.ID); existing[id] {
			incoming[id] = true
		}
	}

	if replace {
		for id := range existing {
			if incoming[id] {
				continue
			}
			if err := orch.Remove(ctx, id); err != nil {
				return res, err
			}
			delete(existing, id)
			res.Removed++
		}
	}

	for _, s := range servers {
		p := gateway.FromRecord(s)
		p.ID = strings.TrimSpace(p.ID)
		p.Name = strings.TrimSpace(p.Name)
		p.Host = strings.TrimSpace(p.Host)
		p.Username = strings.TrimSpace(p.Username)
		p.KeyPath = strings.TrimSpace(p.KeyPath)
		p.Group = strings.TrimSpace(p.Group)
		if p.Host == "" {
			continue
		}
		if existing[p.ID] {
			u := gateway.ProfileUpdate{
				Name:     &p.Name,
				Host:     &p.Host,
				Port:     &p.Port,
				Username: &p.Username,
				Password: &p.Password,
				KeyPath:  &p.KeyPath,
				Group:    &p.Group,
			}
			if err := orch.Update(ctx, p.ID, u); err != nil {
				return res, err
			}
			res.Updated++
			continue
		}
		p.ID = ""
		if _, err := orch.Add(ctx, p); err != nil {
			return res, err
		}
		res.Added++
	}
	res.Total = len(orch.List())
	return res, nil
}

func formatOf(r *http.Request) string {
	if f := r.URL.Query().Get("format"); f != "" {
		return strings.ToLower(f)
	}
	switch ct := r.Header.Get("Content-Type"); {
	case strings.Contains(ct, "yaml"):
		return FormatYAML
	case strings.Contains(ct, "toml"):
		return FormatTOML
	}
	return FormatJSON
}

func (s *Server) export(w http.ResponseWriter, r *http.Request) {
	format := formatOf(r)
	data, err := Marshal(ExportConfig(s.orch.List()), format)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ext, ctype := "json", "application/json; charset=utf-8"
	switch format {
	case FormatYAML, "yml":
		ext, ctype = "yaml", "application/yaml; charset=utf-8"
	case FormatTOML:
		ext, ctype = "toml", "application/toml; charset=utf-8"
	}
	w.Header().Set("Content-Type", ctype)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="myssh-servers.%s"`, ext))
	_, _ = w.Write(data)
}

func (s *Server) importServers(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, 4<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req, err := Unmarshal(data, formatOf(r))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if r.URL.Query().Get("replace") == "true" {
		req.Replace = true
	}
	res, err := Import(r.Context(), s.orch, req.Servers, req.Replace)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.log.Info().Int("added", res.Added).Int("updated", res.Updated).Int("removed", res.Removed).Msg("servers imported")
	writeJSON(w, http.StatusOK, res)
}
