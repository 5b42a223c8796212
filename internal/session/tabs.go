package session

// OpenTab 在已连接服务器上新建标签页并获得焦点，同时把该服务器设为当前服务器
func (o *Orchestrator) OpenTab(serverID string, typ TabType, data map[string]any) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	e, ok := o.servers[serverID]
	if !ok {
		return "", opErr("open-tab", serverID, ErrUnknownServer, nil)
	}
	if !e.connected {
		return "", opErr("open-tab", serverID, ErrServerNotConnected, nil)
	}

	tab := Tab{
		ID:       o.nextTabID(serverID),
		ServerID: serverID,
		Type:     typ,
		Title:    typ.Title(),
	}
	if data != nil {
		tab.Data = make(map[string]any, len(data))
		for k, v := range data {
			tab.Data[k] = v
		}
	}
	e.tabs = append(e.tabs, tab)
	o.focus = Context{ActiveServerID: serverID, ActiveTabID: tab.ID}
	o.log.Debug().Str("server", serverID).Str("tab", tab.ID).Str("type", string(typ)).Msg("tab opened")
	return tab.ID, nil
}

// CloseTab 关闭标签页；不存在时什么也不做。
// 关闭的是焦点标签页时，焦点移到该服务器剩余的最后一个标签页，没有则清除。
func (o *Orchestrator) CloseTab(serverID, tabID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	e, ok := o.servers[serverID]
	if !ok {
		return opErr("close-tab", serverID, ErrUnknownServer, nil)
	}
	i := e.tabIndex(tabID)
	if i < 0 {
		return nil
	}
	e.tabs = append(e.tabs[:i], e.tabs[i+1:]...)
	if o.focus.ActiveTabID == tabID {
		o.focus.ActiveTabID = ""
		if n := len(e.tabs); n > 0 {
			o.focus.ActiveTabID = e.tabs[n-1].ID
		}
	}
	o.log.Debug().Str("server", serverID).Str("tab", tabID).Msg("tab closed")
	return nil
}

// FocusTab 聚焦已有标签页，同时切换当前服务器
func (o *Orchestrator) FocusTab(serverID, tabID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	e, ok := o.servers[serverID]
	if !ok {
		return opErr("focus-tab", serverID, ErrUnknownServer, nil)
	}
	if !e.connected {
		return opErr("focus-tab", serverID, ErrServerNotConnected, nil)
	}
	if !e.hasTab(tabID) {
		return opErr("focus-tab", serverID, ErrUnknownTab, nil)
	}
	o.focus = Context{ActiveServerID: serverID, ActiveTabID: tabID}
	return nil
}

// Tabs 返回标签页快照
func (o *Orchestrator) Tabs(serverID string) ([]Tab, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	e, ok := o.servers[serverID]
	if !ok {
		return nil, opErr("tabs", serverID, ErrUnknownServer, nil)
	}
	return e.snapshot().Tabs, nil
}
