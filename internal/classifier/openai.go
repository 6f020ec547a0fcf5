package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tradesync/internal/logger"
)

// 中文说明：
// OpenAIChatClient：兼容 OpenAI / DeepSeek / Qwen 的聊天补全接口
// （/v1/chat/completions）。429/5xx 做有限重试（支持 Retry-After）。
// 超时默认 10s：单个慢请求不能拖住整个 webhook 进程。

type OpenAIChatClient struct {
	BaseURL      string
	APIKey       string
	Model        string
	Timeout      time.Duration
	// 若为 0 则默认重试 2 次
	MaxRetries   int
	ExtraHeaders map[string]string
}

func (c *OpenAIChatClient) CallWithMessages(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if c.Timeout == 0 {
		c.Timeout = 10 * time.Second
	}
	maxRetries := c.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 2
	}
	// 规范化 BaseURL，避免配置里已带 /chat/completions 导致路径重复
	url := c.BaseURL
	if url == "" {
		url = "https://api.openai.com/v1"
	}
	url = strings.TrimRight(url, "/")
	url = strings.TrimSuffix(url, "/chat/completions")
	url = url + "/chat/completions"

	messages := []map[string]string{}
	if systemPrompt != "" {
		messages = append(messages, map[string]string{"role": "system", "content": systemPrompt})
	}
	messages = append(messages, map[string]string{"role": "user", "content": userPrompt})

	body := map[string]any{"model": c.Model, "messages": messages, "temperature": 0}
	b, _ := json.Marshal(body)

	httpc := &http.Client{Timeout: c.Timeout}
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt == 0 {
			logger.Debugf("[classifier] POST %s model=%s key=****%s", url, c.Model, keyTail(c.APIKey))
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
		if err != nil {
			return "", err
		}
		req.Header.Set("Content-Type", "application/json")
		if c.APIKey != "" {
			req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.APIKey))
		}
		for k, v := range c.ExtraHeaders {
			req.Header.Set(k, v)
		}

		resp, err := httpc.Do(req)
		if err != nil {
			lastErr = err
			break
		}
		if resp.StatusCode/100 == 2 {
			var r struct {
				Choices []struct {
					Message struct {
						Content string `json:"content"`
					} `json:"message"`
				} `json:"choices"`
			}
			derr := json.NewDecoder(resp.Body).Decode(&r)
			resp.Body.Close()
			if derr != nil {
				return "", derr
			}
			if len(r.Choices) == 0 {
				return "", fmt.Errorf("empty choices")
			}
			return r.Choices[0].Message.Content, nil
		}
		var eresp struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&eresp)
		resp.Body.Close()
		msg := strings.TrimSpace(eresp.Error.Message)
		if msg == "" {
			msg = resp.Status
		}
		lastErr = fmt.Errorf("status=%d: %s", resp.StatusCode, msg)
		if retryable(resp.StatusCode) && attempt < maxRetries {
			wait := retryWait(resp.Header.Get("Retry-After"), attempt)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return "", ctx.Err()
			}
			continue
		}
		break
	}
	return "", lastErr
}

func retryable(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusInternalServerError,
		http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

func retryWait(retryAfter string, attempt int) time.Duration {
	if retryAfter != "" {
		if secs, err := strconv.Atoi(retryAfter); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	// 基本指数退避：0.8s, 1.6s ...
	wait := 800 * time.Millisecond << attempt
	if wait > 8*time.Second {
		wait = 8 * time.Second
	}
	return wait
}

func keyTail(key string) string {
	if len(key) > 4 {
		return key[len(key)-4:]
	}
	return key
}
