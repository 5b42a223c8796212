// Package ai 调用 OpenAI 兼容的 chat/completions 接口，为服务器运维问题生成回答
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"

	"myssh/internal/models"
)

// ErrNotConfigured 未配置 ai.base_url
var ErrNotConfigured = errors.New("ai endpoint not configured")

// Options 连接参数
type Options struct {
	BaseURL  string
	APIKey   string
	Model    string
	Timeout  time.Duration
	RetryMax int
	Logger   zerolog.Logger
	Now      func() time.Time
}

// Client AI 接口客户端；网络错误与 5xx 由 retryablehttp 重试
type Client struct {
	baseURL string
	apiKey  string
	model   string
	http    *retryablehttp.Client
	now     func() time.Time
}

// New 创建客户端；BaseURL 为空时 Chat 返回 ErrNotConfigured
func New(opts Options) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = opts.RetryMax
	if rc.RetryMax <= 0 {
		rc.RetryMax = 2
	}
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 5 * time.Second
	rc.HTTPClient.Timeout = opts.Timeout
	rc.Logger = retryLogger{log: opts.Logger}

	c := &Client{
		baseURL: strings.TrimSuffix(strings.TrimSpace(opts.BaseURL), "/"),
		apiKey:  opts.APIKey,
		model:   opts.Model,
		http:    rc,
		now:     opts.Now,
	}
	if c.model == "" {
		c.model = "gpt-4o-mini"
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// Configured 是否配置了接口地址
func (c *Client) Configured() bool {
	return c.baseURL != ""
}

// Server 对话涉及的服务器，写入系统提示
type Server struct {
	Name string
	Host string
	User string
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Chat 发送历史与问题，返回回复内容与时间戳（秒）
func (c *Client) Chat(ctx context.Context, srv Server, question string, history []models.ChatMessage) (models.ChatReply, error) {
	if !c.Configured() {
		return models.ChatReply{}, ErrNotConfigured
	}
	if strings.TrimSpace(question) == "" {
		return models.ChatReply{}, fmt.Errorf("question is empty")
	}

	msgs := make([]message, 0, len(history)+2)
	msgs = append(msgs, message{Role: "system", Content: systemPrompt(srv)})
	for _, h := range history {
		if h.Role != "user" && h.Role != "assistant" {
			continue
		}
		msgs = append(msgs, message{Role: h.Role, Content: h.Content})
	}
	msgs = append(msgs, message{Role: "user", Content: question})

	body, err := json.Marshal(chatRequest{Model: c.model, Messages: msgs})
	if err != nil {
		return models.ChatReply{}, err
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return models.ChatReply{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return models.ChatReply{}, fmt.Errorf("ai request: %w", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return models.ChatReply{}, fmt.Errorf("ai response: %w", err)
	}

	var out chatResponse
	decodeErr := json.Unmarshal(data, &out)
	if resp.StatusCode/100 != 2 {
		if decodeErr == nil && out.Error != nil && out.Error.Message != "" {
			return models.ChatReply{}, fmt.Errorf("ai endpoint returned %d: %s", resp.StatusCode, out.Error.Message)
		}
		return models.ChatReply{}, fmt.Errorf("ai endpoint returned %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return models.ChatReply{}, fmt.Errorf("ai response: %w", decodeErr)
	}
	if len(out.Choices) == 0 {
		return models.ChatReply{}, fmt.Errorf("ai response has no choices")
	}
	return models.ChatReply{
		Content:   out.Choices[0].Message.Content,
		Timestamp: c.now().Unix(),
	}, nil
}

func systemPrompt(srv Server) string {
	var b strings.Builder
	b.WriteString("你是一名 Linux 运维助手，回答要简洁，给出可以直接执行的命令。")
	if srv.Host != "" {
		fmt.Fprintf(&b, "当前服务器：%s（%s@%s）。", srv.Name, srv.User, srv.Host)
	}
	return b.String()
}

// QuickActions 固定的快速操作
func QuickActions() []models.QuickAction {
	return []models.QuickAction{
		{ID: "1", Title: "查看系统状态", Description: "获取当前服务器的系统监控信息", Action: "查看系统状态"},
		{ID: "2", Title: "检查磁盘空间", Description: "检查服务器磁盘使用情况", Action: "检查磁盘空间"},
		{ID: "3", Title: "查看运行进程", Description: "列出当前运行的进程", Action: "查看运行进程"},
	}
}

// retryLogger 把 retryablehttp 的日志转给 zerolog，只保留警告和错误
type retryLogger struct {
	log zerolog.Logger
}

func (l retryLogger) Error(msg string, kv ...interface{}) {
	l.log.Error().Fields(kv).Msg(msg)
}

func (l retryLogger) Warn(msg string, kv ...interface{}) {
	l.log.Warn().Fields(kv).Msg(msg)
}

func (l retryLogger) Info(string, ...interface{}) {}

func (l retryLogger) Debug(msg string, kv ...interface{}) {
	l.log.Debug().Fields(kv).Msg(msg)
}
