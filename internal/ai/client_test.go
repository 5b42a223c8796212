package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"myssh/internal/models"
)

func fixedNow() time.Time {
	return time.Unix(1700000000, 0)
}

func TestChatNotConfigured(t *testing.T) {
	c := New(Options{Logger: zerolog.Nop()})

	_, err := c.Chat(context.Background(), Server{}, "hi", nil)
	require.ErrorIs(t, err, ErrNotConfigured)
	assert.Equal(t, "ai endpoint not configured", err.Error())
}

func TestChat(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"df -h"}}]}`))
	}))
	defer srv.Close()

	c := New(Options{BaseURL: srv.URL + "/v1/", APIKey: "sk-test", Model: "m1", Logger: zerolog.Nop(), Now: fixedNow})
	history := []models.ChatMessage{
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: "hi"},
		{Role: "system", Content: "ignored"},
	}
	reply, err := c.Chat(context.Background(), Server{Name: "web", Host: "10.0.0.1", User: "root"}, "磁盘？", history)
	require.NoError(t, err)

	assert.Equal(t, "df -h", reply.Content)
	assert.Equal(t, int64(1700000000), reply.Timestamp)
	assert.Equal(t, "m1", got.Model)
	require.Len(t, got.Messages, 4)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Contains(t, got.Messages[0].Content, "root@10.0.0.1")
	assert.Equal(t, "磁盘？", got.Messages[3].Content)
}

func TestChatRetriesServerError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`))
	}))
	defer srv.Close()

	c := New(Options{BaseURL: srv.URL, Logger: zerolog.Nop()})
	reply, err := c.Chat(context.Background(), Server{}, "uptime?", nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", reply.Content)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestChatClientError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid api key"}}`))
	}))
	defer srv.Close()

	c := New(Options{BaseURL: srv.URL, Logger: zerolog.Nop()})
	_, err := c.Chat(context.Background(), Server{}, "q", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "invalid api key")
}

func TestChatEmptyQuestion(t *testing.T) {
	c := New(Options{BaseURL: "http://127.0.0.1:1", Logger: zerolog.Nop()})
	_, err := c.Chat(context.Background(), Server{}, "  ", nil)
	require.Error(t, err)
}

func TestQuickActions(t *testing.T) {
	actions := QuickActions()
	require.Len(t, actions, 3)
	assert.Equal(t, "1", actions[0].ID)
	assert.Equal(t, "查看运行进程", actions[2].Title)
}
