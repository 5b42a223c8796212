package server

import (
	"net/http"
	"sort"
	"strings"

	"myssh/internal/gateway"
	"myssh/internal/session"
)

// Ungrouped 未设置分组的服务器归入此组，排在最后
const Ungrouped = "未分组"

// ServerResp 返回给前端的服务器信息，不含密码
type ServerResp struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Host        string        `json:"host"`
	Port        int           `json:"port"`
	Username    string        `json:"username"`
	KeyPath     string        `json:"keyPath,omitempty"`
	Group       string        `json:"group,omitempty"`
	HasPassword bool          `json:"hasPassword"`
	Connected   bool          `json:"connected"`
	Tabs        []session.Tab `json:"tabs"`
}

// Group 分组及其下的服务器
type Group struct {
	Name    string       `json:"name"`
	Servers []ServerResp `json:"servers"`
}

// ServerBody 创建/更新请求；更新时 nil 字段保持不变
type ServerBody struct {
	Name     *string `json:"name"`
	Host     *string `json:"host"`
	Port     *int    `json:"port"`
	Username *string `json:"username"`
	Password *string `json:"password"`
	KeyPath  *string `json:"keyPath"`
	Group    *string `json:"group"`
}

func toResp(s session.Server) ServerResp {
	tabs := s.Tabs
	if tabs == nil {
		tabs = []session.Tab{}
	}
	return ServerResp{
		ID:          s.ID,
		Name:        s.Name,
		Host:        s.Host,
		Port:        s.Port,
		Username:    s.Username,
		KeyPath:     s.KeyPath,
		Group:       s.Group,
		HasPassword: s.Password != "",
		Connected:   s.Connected,
		Tabs:        tabs,
	}
}

// GroupServers 按 group 分组；组名按字典序，未分组排最后，组内保持注册顺序
func GroupServers(servers []session.Server) []Group {
	index := make(map[string]int)
	var groups []Group
	for _, s := range servers {
		name := strings.TrimSpace(s.Group)
		if name == "" {
			name = Ungrouped
		}
		i, ok := index[name]
		if !ok {
			i = len(groups)
			index[name] = i
			groups = append(groups, Group{Name: name})
		}
		groups[i].Servers = append(groups[i].Servers, toResp(s))
	}
	sort.SliceStable(groups, func(i, j int) bool {
		a, b := groups[i].Name, groups[j].Name
		if a == Ungrouped || b == Ungrouped {
			return b == Ungrouped && a != Ungrouped
		}
		return a < b
	})
	if groups == nil {
		groups = []Group{}
	}
	return groups
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}

func (b ServerBody) profile() gateway.Profile {
	p := gateway.Profile{
		Name:     str(b.Name),
		Host:     str(b.Host),
		Username: str(b.Username),
		KeyPath:  str(b.KeyPath),
		Group:    str(b.Group),
	}
	if b.Port != nil {
		p.Port = *b.Port
	}
	if b.Password != nil {
		p.Password = *b.Password
	}
	return p
}

func (b ServerBody) update() gateway.ProfileUpdate {
	trim := func(p *string) *string {
		if p == nil {
			return nil
		}
		v := strings.TrimSpace(*p)
		return &v
	}
	return gateway.ProfileUpdate{
		Name:     trim(b.Name),
		Host:     trim(b.Host),
		Port:     b.Port,
		Username: trim(b.Username),
		Password: b.Password,
		KeyPath:  trim(b.KeyPath),
		Group:    trim(b.Group),
	}
}

func (s *Server) listServers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, GroupServers(s.orch.List()))
}

func (s *Server) createServer(w http.ResponseWriter, r *http.Request) {
	var body ServerBody
	if !decode(w, r, &body) {
		return
	}
	p := body.profile()
	if p.Host == "" || p.Username == "" {
		writeError(w, http.StatusBadRequest, "host and username are required")
		return
	}
	id, err := s.orch.Add(r.Context(), p)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) updateServer(w http.ResponseWriter, r *http.Request) {
	var body ServerBody
	if !decode(w, r, &body) {
		return
	}
	u := body.update()
	if (u.Host != nil && *u.Host == "") || (u.Username != nil && *u.Username == "") {
		writeError(w, http.StatusBadRequest, "host and username cannot be empty")
		return
	}
	if err := s.orch.Update(r.Context(), r.PathValue("id"), u); err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w)
}

func (s *Server) deleteServer(w http.ResponseWriter, r *http.Request) {
	if err := s.orch.Remove(r.Context(), r.PathValue("id")); err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w)
}
