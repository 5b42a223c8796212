// Package server 提供本机 Web 界面使用的 JSON API，所有状态变更经由 session 与 transfer 完成
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"myssh/internal/auth"
	"myssh/internal/session"
	"myssh/internal/transfer"
)

// Options 可选依赖
type Options struct {
	Logger zerolog.Logger

	// OpenTerminal 在新的本地终端窗口中连接服务器；为 nil 时使用 launchTerminal
	OpenTerminal func(serverID string) error
}

// Server HTTP API
type Server struct {
	orch  *session.Orchestrator
	xfer  *transfer.Coordinator
	guard *auth.Guard
	log   zerolog.Logger
	term  func(serverID string) error
}

// New 组装 API
func New(orch *session.Orchestrator, xfer *transfer.Coordinator, guard *auth.Guard, opts Options) *Server {
	s := &Server{orch: orch, xfer: xfer, guard: guard, log: opts.Logger, term: opts.OpenTerminal}
	if s.term == nil {
		s.term = launchTerminal
	}
	return s
}

// Handler 全部路由；除 /api/auth/* 外都需要登录
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.guard.Register(mux)

	api := http.NewServeMux()
	api.HandleFunc("GET /api/state", s.state)
	api.HandleFunc("GET /api/servers", s.listServers)
	api.HandleFunc("POST /api/servers", s.createServer)
	api.HandleFunc("PUT /api/servers/{id}", s.updateServer)
	api.HandleFunc("DELETE /api/servers/{id}", s.deleteServer)

	api.HandleFunc("POST /api/servers/{id}/connect", s.connect)
	api.HandleFunc("POST /api/servers/{id}/disconnect", s.disconnect)
	api.HandleFunc("POST /api/servers/{id}/reconnect", s.reconnect)
	api.HandleFunc("POST /api/servers/{id}/activate", s.activate)
	api.HandleFunc("POST /api/servers/{id}/terminal", s.openTerminal)

	api.HandleFunc("GET /api/servers/{id}/tabs", s.listTabs)
	api.HandleFunc("POST /api/servers/{id}/tabs", s.openTab)
	api.HandleFunc("DELETE /api/servers/{id}/tabs/{tabId}", s.closeTab)
	api.HandleFunc("POST /api/servers/{id}/tabs/{tabId}/focus", s.focusTab)

	api.HandleFunc("GET /api/servers/{id}/files", s.listFiles)
	api.HandleFunc("POST /api/servers/{id}/upload", s.upload)
	api.HandleFunc("POST /api/servers/{id}/download", s.download)
	api.HandleFunc("POST /api/servers/{id}/mkdir", s.mkdir)
	api.HandleFunc("POST /api/servers/{id}/delete", s.deletePaths)
	api.HandleFunc("POST /api/servers/{id}/rename", s.rename)
	api.HandleFunc("POST /api/servers/{id}/chmod", s.chmod)

	api.HandleFunc("POST /api/servers/{id}/exec", s.exec)
	api.HandleFunc("GET /api/servers/{id}/monitor", s.monitor)
	api.HandleFunc("POST /api/servers/{id}/ai/chat", s.aiChat)
	api.HandleFunc("GET /api/servers/{id}/ai/actions", s.aiActions)

	api.HandleFunc("GET /api/export", s.export)
	api.HandleFunc("POST /api/import", s.importServers)

	mux.Handle("/api/", s.guard.Require(api))
	return s.logRequests(mux)
}

// ListenAndServe 监听 addr，ctx 取消后优雅退出
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.log.Info().Str("addr", addr).Msg("http api listening")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("took", time.Since(start)).
			Msg("http")
	})
}

// statusFor 编排层错误到 HTTP 状态码
func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrUnknownServer), errors.Is(err, session.ErrUnknownTab):
		return http.StatusNotFound
	case errors.Is(err, session.ErrServerNotConnected), errors.Is(err, session.ErrTransitionInProgress):
		return http.StatusConflict
	case errors.Is(err, session.ErrIDPreassigned):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= 500 {
		s.log.Warn().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	writeError(w, status, err.Error())
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return false
	}
	return true
}

func writeOK(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
