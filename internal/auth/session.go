package auth

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"time"
)

const (
	cookieName = "myssh_session"
	sessionTTL = 24 * time.Hour
)

func newSessionID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func (g *Guard) createSession(w http.ResponseWriter) (string, error) {
	id, err := newSessionID()
	if err != nil {
		return "", err
	}
	g.mu.Lock()
	g.sessions[id] = g.now().Add(sessionTTL)
	g.mu.Unlock()
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(sessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id, nil
}

// LoggedIn 请求是否携带有效会话
func (g *Guard) LoggedIn(r *http.Request) bool {
	c, err := r.Cookie(cookieName)
	if err != nil || c.Value == "" {
		return false
	}
	g.mu.RLock()
	exp, ok := g.sessions[c.Value]
	g.mu.RUnlock()
	if ok && g.now().After(exp) {
		g.mu.Lock()
		delete(g.sessions, c.Value)
		g.mu.Unlock()
		return false
	}
	return ok
}

func (g *Guard) destroySession(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
		g.mu.Lock()
		delete(g.sessions, c.Value)
		g.mu.Unlock()
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// dropSessions 重设密码后所有旧会话失效
func (g *Guard) dropSessions() {
	g.mu.Lock()
	g.sessions = make(map[string]time.Time)
	g.mu.Unlock()
}
