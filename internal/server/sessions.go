package server

import (
	"errors"
	"net/http"

	"myssh/internal/session"
)

// StateResp 全局焦点加全部服务器快照
type StateResp struct {
	Focus   session.Context `json:"focus"`
	Servers []ServerResp    `json:"servers"`
}

// TabReq 打开标签页
type TabReq struct {
	Type session.TabType `json:"type"`
	Data map[string]any  `json:"data"`
}

func (s *Server) state(w http.ResponseWriter, r *http.Request) {
	list := s.orch.List()
	resp := StateResp{Focus: s.orch.Focus(), Servers: make([]ServerResp, 0, len(list))}
	for _, srv := range list {
		resp.Servers = append(resp.Servers, toResp(srv))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) connect(w http.ResponseWriter, r *http.Request) {
	if err := s.orch.Connect(r.Context(), r.PathValue("id")); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.orch.Focus())
}

// disconnect ?force=true 时只清理本地状态，用于远端已失效的连接
func (s *Server) disconnect(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var err error
	if r.URL.Query().Get("force") == "true" {
		err = s.orch.ForceDisconnect(id)
	} else {
		err = s.orch.Disconnect(r.Context(), id)
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w)
}

func (s *Server) reconnect(w http.ResponseWriter, r *http.Request) {
	if err := s.orch.Reconnect(r.Context(), r.PathValue("id")); err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w)
}

func (s *Server) activate(w http.ResponseWriter, r *http.Request) {
	if err := s.orch.Activate(r.PathValue("id")); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.orch.Focus())
}

func (s *Server) openTerminal(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.orch.Get(id); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.term(id); err != nil {
		if errors.Is(err, ErrTerminalUnsupported) {
			writeError(w, http.StatusNotImplemented, err.Error())
			return
		}
		s.log.Error().Err(err).Str("server", id).Msg("open terminal failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeOK(w)
}

func (s *Server) listTabs(w http.ResponseWriter, r *http.Request) {
	tabs, err := s.orch.Tabs(r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if tabs == nil {
		tabs = []session.Tab{}
	}
	writeJSON(w, http.StatusOK, tabs)
}

func (s *Server) openTab(w http.ResponseWriter, r *http.Request) {
	var req TabReq
	if !decode(w, r, &req) {
		return
	}
	id, err := s.orch.OpenTab(r.PathValue("id"), req.Type, req.Data)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) closeTab(w http.ResponseWriter, r *http.Request) {
	if err := s.orch.CloseTab(r.PathValue("id"), r.PathValue("tabId")); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.orch.Focus())
}

func (s *Server) focusTab(w http.ResponseWriter, r *http.Request) {
	if err := s.orch.FocusTab(r.PathValue("id"), r.PathValue("tabId")); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.orch.Focus())
}
