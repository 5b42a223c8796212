package models

// Server 后端持久化的一台 SSH 主机配置（字段名沿用后端的 key_path 命名）
type Server struct {
	ID       string `json:"id" yaml:"id" toml:"id"`                                                 // 唯一标识，创建后不变
	Name     string `json:"name" yaml:"name" toml:"name"`                                           // 显示名称
	Host     string `json:"host" yaml:"host" toml:"host"`                                           // IP 或域名
	Port     int    `json:"port" yaml:"port" toml:"port"`                                           // 端口，默认 22
	Username string `json:"username" yaml:"username" toml:"username"`                               // 登录用户
	Password string `json:"password,omitempty" yaml:"password,omitempty" toml:"password,omitempty"` // 密码（可选）
	KeyPath  string `json:"key_path,omitempty" yaml:"key_path,omitempty" toml:"key_path,omitempty"` // 私钥路径（可选）
	Group    string `json:"group,omitempty" yaml:"group,omitempty" toml:"group,omitempty"`          // 分组名称
}

// ServerPatch 部分更新：nil 字段表示不修改
type ServerPatch struct {
	ID       string  `json:"id"`
	Name     *string `json:"name,omitempty"`
	Host     *string `json:"host,omitempty"`
	Port     *int    `json:"port,omitempty"`
	Username *string `json:"username,omitempty"`
	Password *string `json:"password,omitempty"`
	KeyPath  *string `json:"key_path,omitempty"`
	Group    *string `json:"group,omitempty"`
}

// Apply 把补丁中已设置的字段写入 s
func (p ServerPatch) Apply(s *Server) {
	if p.Name != nil {
		s.Name = *p.Name
	}
	if p.Host != nil {
		s.Host = *p.Host
	}
	if p.Port != nil {
		s.Port = *p.Port
	}
	if p.Username != nil {
		s.Username = *p.Username
	}
	if p.Password != nil {
		s.Password = *p.Password
	}
	if p.KeyPath != nil {
		s.KeyPath = *p.KeyPath
	}
	if p.Group != nil {
		s.Group = *p.Group
	}
}

// Empty 补丁是否没有任何需要更新的字段
func (p ServerPatch) Empty() bool {
	return p.Name == nil && p.Host == nil && p.Port == nil && p.Username == nil &&
		p.Password == nil && p.KeyPath == nil && p.Group == nil
}

// Config 持久化文件内容：服务器列表
type Config struct {
	Servers []Server `json:"servers" yaml:"servers" toml:"servers"`
}
