package classifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatResponse(content string) map[string]any {
	return map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	}
}

func TestCallWithMessages(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(chatResponse(`{"action":"buy"}`))
	}))
	defer srv.Close()

	c := &OpenAIChatClient{BaseURL: srv.URL, APIKey: "sk-test", Model: "gpt-4o-mini"}
	out, err := c.CallWithMessages(context.Background(), "system prompt", "BOUGHT NDX 20700C")
	require.NoError(t, err)
	assert.Equal(t, `{"action":"buy"}`, out)
	assert.Equal(t, "/chat/completions", gotPath)
	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "gpt-4o-mini", gotBody["model"])

	msgs := gotBody["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "user", msgs[1].(map[string]any)["role"])
}

func TestCallNormalizesBaseURL(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode(chatResponse("ok"))
	}))
	defer srv.Close()

	// 配置里已带 /chat/completions 不应导致路径重复
	c := &OpenAIChatClient{BaseURL: srv.URL + "/v1/chat/completions", Model: "m"}
	_, err := c.CallWithMessages(context.Background(), "", "hi")
	require.NoError(t, err)
	assert.Equal(t, "/v1/chat/completions", gotPath)
}

func TestCallRetriesOn429(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(chatResponse("recovered"))
	}))
	defer srv.Close()

	c := &OpenAIChatClient{BaseURL: srv.URL, Model: "m", MaxRetries: 2, Timeout: 5 * time.Second}
	out, err := c.CallWithMessages(context.Background(), "", "hi")
	require.NoError(t, err)
	assert.Equal(t, "recovered", out)
	assert.Equal(t, 2, calls)
}

func TestCallDoesNotRetryOn400(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "bad model"}})
	}))
	defer srv.Close()

	c := &OpenAIChatClient{BaseURL: srv.URL, Model: "m", MaxRetries: 2}
	_, err := c.CallWithMessages(context.Background(), "", "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad model")
	assert.Equal(t, 1, calls)
}

func TestCallEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer srv.Close()

	c := &OpenAIChatClient{BaseURL: srv.URL, Model: "m"}
	_, err := c.CallWithMessages(context.Background(), "", "hi")
	assert.ErrorContains(t, err, "empty choices")
}

func TestStructuredExtractorRequiresKey(t *testing.T) {
	_, err := NewStructuredExtractor(Config{Model: "m"})
	assert.Error(t, err)
}

func TestStructuredExtractorRejectsEmptyText(t *testing.T) {
	e, err := NewStructuredExtractor(Config{APIKey: "sk-test", Model: "m"})
	require.NoError(t, err)
	_, err = e.ExtractStructured(context.Background(), "   ")
	assert.Error(t, err)
}

func TestStructuredExtractorPassesAlertText(t *testing.T) {
	var userContent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		for _, m := range body.Messages {
			if m.Role == "user" {
				userContent = m.Content
			}
		}
		json.NewEncoder(w).Encode(chatResponse(`{"action":"sell","symbol":"AAPL"}`))
	}))
	defer srv.Close()

	e, err := NewStructuredExtractor(Config{BaseURL: srv.URL, APIKey: "sk-test", Model: "m"})
	require.NoError(t, err)
	out, err := e.ExtractStructured(context.Background(), "SOLD AAPL all out")
	require.NoError(t, err)
	assert.Equal(t, `{"action":"sell","symbol":"AAPL"}`, out)
	assert.Equal(t, "SOLD AAPL all out", userContent)
}
