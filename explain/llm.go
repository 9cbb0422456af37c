package explain

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog"

	"github.com/rushteam/shopsense/logging"
	"github.com/rushteam/shopsense/metrics"
	"github.com/rushteam/shopsense/pkg/breaker"
)

// LLM 默认参数
const (
	DefaultModel       = "gpt-4o-mini"
	DefaultMaxTokens   = 80
	DefaultTemperature = 0.25
	DefaultTimeout     = 10 * time.Second

	// contextEvents 是写入提示词的最近行为条数
	contextEvents = 6
)

// LLMConfig 语言模型说明生成器配置。
type LLMConfig struct {
	APIKey  string        `koanf:"api_key"`
	Model   string        `koanf:"model"`
	BaseURL string        `koanf:"base_url"` // 兼容 OpenAI 协议的网关，空则使用官方地址
	Timeout time.Duration `koanf:"timeout"`
}

// LLM 调用 OpenAI Chat Completions 生成说明。
// 未配置 APIKey 或调用失败时降级为 Fallback 模板，失败原因写入 Explanation.Error。
type LLM struct {
	Fallback    *Template
	Model       string
	MaxTokens   int64
	Temperature float64
	Timeout     time.Duration

	enabled bool
	client  openai.Client
	breaker *breaker.Breaker[string]
	log     zerolog.Logger
}

// NewLLM 创建 LLM 说明生成器。
func NewLLM(cfg LLMConfig, fallback *Template) *LLM {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
		option.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(cfg.BaseURL, "/")+"/"))
	}
	return &LLM{
		Fallback:    fallback,
		Model:       cfg.Model,
		MaxTokens:   DefaultMaxTokens,
		Temperature: DefaultTemperature,
		Timeout:     cfg.Timeout,
		enabled:     cfg.APIKey != "",
		client:      openai.NewClient(opts...),
		breaker:     breaker.New[string](breaker.DefaultSettings("llm")),
		log:         logging.Component("explain"),
	}
}

func (l *LLM) Explain(ctx context.Context, req Request) Explanation {
	if !l.enabled {
		return l.Fallback.Explain(ctx, req)
	}

	ctx, cancel := context.WithTimeout(ctx, l.Timeout)
	defer cancel()

	text, err := l.breaker.Execute(func() (string, error) {
		return l.complete(ctx, req)
	})
	if err != nil {
		metrics.UpstreamFailures.WithLabelValues("llm").Inc()
		l.log.Warn().Err(err).Str("user_id", req.UserID).Msg("llm explanation failed, using template")
		out := l.Fallback.Explain(ctx, req)
		out.Error = err.Error()
		return out
	}
	return Explanation{Text: text, Source: SourceOpenAI}
}

func (l *LLM) complete(ctx context.Context, req Request) (string, error) {
	completion, err := l.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       l.Model,
		Messages:    []openai.ChatCompletionMessageParamUnion{openai.UserMessage(Prompt(req))},
		MaxTokens:   openai.Int(l.MaxTokens),
		Temperature: openai.Float(l.Temperature),
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}
	text := strings.TrimSpace(completion.Choices[0].Message.Content)
	if text == "" {
		return "", errors.New("openai returned empty content")
	}
	return text, nil
}

// Prompt 构造提示词：最近 6 条行为、用户选择的过滤条件与商品信息。
func Prompt(req Request) string {
	events := req.Events
	if len(events) > contextEvents {
		events = events[len(events)-contextEvents:]
	}
	actions := make([]string, len(events))
	for i, ev := range events {
		actions[i] = ev.EventType + ":" + ev.ProductID
	}

	var filters []string
	c := req.Constraints
	if c.HasCategory() {
		filters = append(filters, "category "+c.Category)
	}
	if c.MinPrice != nil && c.MaxPrice != nil {
		filters = append(filters, "price between "+formatFloat(*c.MinPrice)+" and "+formatFloat(*c.MaxPrice))
	}

	var b strings.Builder
	b.WriteString("User recent actions: [" + strings.Join(actions, ", ") + "]")
	if len(filters) > 0 {
		b.WriteString("\nUser selected filters: " + strings.Join(filters, ", "))
	}
	b.WriteString("\n\nProduct:\n")
	if p := req.Product; p != nil {
		b.WriteString("- Title: " + p.Title + "\n")
		b.WriteString("- Brand: " + p.Brand + "\n")
		b.WriteString("- Category: " + p.Category + "\n")
		b.WriteString("- Price: " + formatFloat(p.Price) + "\n")
	}
	b.WriteString("\nWrite a concise, helpful explanation (2 sentences) of why this product is recommended, " +
		"referencing both recent activity and selected filters when provided.")
	return b.String()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

var _ Explainer = (*LLM)(nil)
