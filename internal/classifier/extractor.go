package classifier

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// 中文说明：
// 结构化抽取：对单条告警文本发起一次固定 schema 的抽取请求，
// 返回模型原始输出。围栏剥离/JSON 修复/schema 校验在 alert 包完成。

const extractionSystemPrompt = `You are a trade alert parser. Extract structured trade data from the alert text.
Respond with a single JSON object and nothing else, using exactly these keys:
{"trader": string|null, "action": "buy"|"sell"|"unknown", "quantity": number,
"symbol": string|null, "strike": number|null, "option_type": "call"|"put"|null,
"expiration": "YYYY-MM-DD"|null, "price": number|null, "confidence": number}
Rules:
- action: "buy" for opening/adding, "sell" for closing/trimming, else "unknown".
- For sells, quantity is the fraction of the position being closed (0.5 for half), default 1.
- symbol is the ticker in uppercase, 1-5 letters.
- strike/option_type/expiration only for option trades, null otherwise.`

// Config 分类器配置
type Config struct {
	BaseURL    string
	APIKey     string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

// StructuredExtractor 实现 alert.Classifier
type StructuredExtractor struct {
	client *OpenAIChatClient
}

func NewStructuredExtractor(cfg Config) (*StructuredExtractor, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("classifier: api key required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &StructuredExtractor{
		client: &OpenAIChatClient{
			BaseURL:    cfg.BaseURL,
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			Timeout:    cfg.Timeout,
			MaxRetries: cfg.MaxRetries,
		},
	}, nil
}

// ExtractStructured 发起一次抽取请求，返回模型原始输出
func (e *StructuredExtractor) ExtractStructured(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("empty alert text")
	}
	out, err := e.client.CallWithMessages(ctx, extractionSystemPrompt, text)
	if err != nil {
		return "", fmt.Errorf("classifier request: %w", err)
	}
	return out, nil
}
