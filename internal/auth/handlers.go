package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// StatusResp 认证状态
type StatusResp struct {
	NeedSetup bool `json:"need_setup"` // 未设置主密码，需首次设置
	LoggedIn  bool `json:"logged_in"`
}

// SetupReq 首次设置主密码
type SetupReq struct {
	Password string `json:"password"`
	Confirm  string `json:"confirm"`
}

// LoginReq 登录
type LoginReq struct {
	Password string `json:"password"`
}

// ResetReq 重设主密码（需已登录）
type ResetReq struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
	Confirm         string `json:"confirm"`
}

// Register 挂载 /api/auth/* 路由
func (g *Guard) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/auth/status", g.Status)
	mux.HandleFunc("POST /api/auth/setup", g.Setup)
	mux.HandleFunc("POST /api/auth/login", g.Login)
	mux.HandleFunc("POST /api/auth/logout", g.Logout)
	mux.Handle("POST /api/auth/reset", g.Require(http.HandlerFunc(g.Reset)))
}

// Status NeedSetup 仅在从未设置过主密码时为 true；设置之后只会要求登录
func (g *Guard) Status(w http.ResponseWriter, r *http.Request) {
	hasPwd, err := g.HasPassword()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !hasPwd {
		writeJSON(w, http.StatusOK, StatusResp{NeedSetup: true})
		return
	}
	writeJSON(w, http.StatusOK, StatusResp{LoggedIn: g.LoggedIn(r)})
}

// Setup 仅首次可用；成功后不创建会话，前端跳转登录
func (g *Guard) Setup(w http.ResponseWriter, r *http.Request) {
	hasPwd, err := g.HasPassword()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if hasPwd {
		writeError(w, http.StatusBadRequest, ErrAlreadySet.Error())
		return
	}
	var req SetupReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	pwd := strings.TrimSpace(req.Password)
	if pwd != strings.TrimSpace(req.Confirm) {
		writeError(w, http.StatusBadRequest, "两次密码不一致")
		return
	}
	if !g.setPassword(w, pwd) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Login 验证主密码并创建会话
func (g *Guard) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	ok, err := g.VerifyPassword(strings.TrimSpace(req.Password))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !ok {
		writeError(w, http.StatusUnauthorized, "密码错误")
		return
	}
	if _, err := g.createSession(w); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Logout 登出
func (g *Guard) Logout(w http.ResponseWriter, r *http.Request) {
	g.destroySession(w, r)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Reset 校验当前密码后写入新密码，旧会话全部失效
func (g *Guard) Reset(w http.ResponseWriter, r *http.Request) {
	var req ResetReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	cur := strings.TrimSpace(req.CurrentPassword)
	newPwd := strings.TrimSpace(req.NewPassword)
	if cur == "" {
		writeError(w, http.StatusBadRequest, "请输入当前密码")
		return
	}
	ok, err := g.VerifyPassword(cur)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !ok {
		writeError(w, http.StatusUnauthorized, "当前密码错误")
		return
	}
	if newPwd != strings.TrimSpace(req.Confirm) {
		writeError(w, http.StatusBadRequest, "两次新密码不一致")
		return
	}
	if !g.setPassword(w, newPwd) {
		return
	}
	g.dropSessions()
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (g *Guard) setPassword(w http.ResponseWriter, pwd string) bool {
	if err := g.SetPassword(pwd); err != nil {
		if errors.Is(err, ErrPasswordTooShort) {
			writeError(w, http.StatusBadRequest, err.Error())
		} else {
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
