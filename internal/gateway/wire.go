package gateway

import "myssh/internal/models"

// DefaultPort SSH 默认端口
const DefaultPort = 22

// Profile 编排层看到的服务器配置（keyPath 命名）
type Profile struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password,omitempty"`
	KeyPath  string `json:"keyPath,omitempty"`
	Group    string `json:"group,omitempty"`
}

// ProfileUpdate 部分更新，nil 表示不修改
type ProfileUpdate struct {
	Name     *string `json:"name,omitempty"`
	Host     *string `json:"host,omitempty"`
	Port     *int    `json:"port,omitempty"`
	Username *string `json:"username,omitempty"`
	Password *string `json:"password,omitempty"`
	KeyPath  *string `json:"keyPath,omitempty"`
	Group    *string `json:"group,omitempty"`
}

// ToRecord keyPath -> key_path
func ToRecord(p Profile) models.Server {
	return models.Server{
		ID:       p.ID,
		Name:     p.Name,
		Host:     p.Host,
		Port:     p.Port,
		Username: p.Username,
		Password: p.Password,
		KeyPath:  p.KeyPath,
		Group:    p.Group,
	}
}

// FromRecord key_path -> keyPath
func FromRecord(s models.Server) Profile {
	return Profile{
		ID:       s.ID,
		Name:     s.Name,
		Host:     s.Host,
		Port:     s.Port,
		Username: s.Username,
		Password: s.Password,
		KeyPath:  s.KeyPath,
		Group:    s.Group,
	}
}

// ToPatch 把 ProfileUpdate 转成后端的部分更新
func ToPatch(id string, u ProfileUpdate) models.ServerPatch {
	return models.ServerPatch{
		ID:       id,
		Name:     u.Name,
		Host:     u.Host,
		Port:     u.Port,
		Username: u.Username,
		Password: u.Password,
		KeyPath:  u.KeyPath,
		Group:    u.Group,
	}
}

// Apply 把已设置的字段写入 p；与 ToPatch + ServerPatch.Apply 的效果一致
func (u ProfileUpdate) Apply(p *Profile) {
	rec := ToRecord(*p)
	ToPatch(p.ID, u).Apply(&rec)
	*p = FromRecord(rec)
}

// ConnectRequestFor 根据配置构造连接参数
func ConnectRequestFor(p Profile) ConnectRequest {
	port := p.Port
	if port <= 0 {
		port = DefaultPort
	}
	return ConnectRequest{
		ServerID: p.ID,
		Host:     p.Host,
		Port:     port,
		Username: p.Username,
		Password: p.Password,
		KeyPath:  p.KeyPath,
	}
}
