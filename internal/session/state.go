package session

import "myssh/internal/gateway"

// Profile 服务器配置
type Profile = gateway.Profile

// TabType 工作区类型
type TabType string

const (
	TabTerminal    TabType = "terminal"
	TabFileManager TabType = "filemanager"
	TabMonitor     TabType = "monitor"
)

// Title 固定的显示名称，未知类型返回 "Unknown"
func (t TabType) Title() string {
	switch t {
	case TabTerminal:
		return "Terminal"
	case TabFileManager:
		return "File Manager"
	case TabMonitor:
		return "Monitor"
	default:
		return "Unknown"
	}
}

// Tab 绑定在一台已连接服务器上的工作区
type Tab struct {
	ID       string         `json:"id"`
	ServerID string         `json:"serverId"`
	Type     TabType        `json:"type"`
	Title    string         `json:"title"`
	Data     map[string]any `json:"data,omitempty"`
}

// Server 配置加运行时状态的快照
type Server struct {
	Profile
	Connected bool  `json:"connected"`
	Tabs      []Tab `json:"tabs"`
}

// Context 全局焦点；空字符串表示未设置
type Context struct {
	ActiveServerID string `json:"activeServerId,omitempty"`
	ActiveTabID    string `json:"activeTabId,omitempty"`
}

// entry 注册表中的一项，仅在持有 Orchestrator.mu 时访问
type entry struct {
	profile   Profile
	connected bool
	tabs      []Tab
}

func (e *entry) snapshot() Server {
	tabs := make([]Tab, len(e.tabs))
	for i, t := range e.tabs {
		tabs[i] = t
		if t.Data != nil {
			data := make(map[string]any, len(t.Data))
			for k, v := range t.Data {
				data[k] = v
			}
			tabs[i].Data = data
		}
	}
	return Server{Profile: e.profile, Connected: e.connected, Tabs: tabs}
}

func (e *entry) hasTab(tabID string) bool {
	return e.tabIndex(tabID) >= 0
}

func (e *entry) tabIndex(tabID string) int {
	for i, t := range e.tabs {
		if t.ID == tabID {
			return i
		}
	}
	return -1
}
