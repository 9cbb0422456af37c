// Package eventlog 从外部事件日志服务拉取用户近期行为。
package eventlog

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/rushteam/shopsense/core"
	"github.com/rushteam/shopsense/logging"
	"github.com/rushteam/shopsense/metrics"
	"github.com/rushteam/shopsense/pkg/breaker"
)

// DefaultTimeout 单次拉取的超时
const DefaultTimeout = 3 * time.Second

// maxBody 限制响应体大小，避免异常上游拖垮进程
const maxBody = 4 << 20

// Client 调用 GET {BaseURL}/api/events/{user}，返回 recent_events。
// 非 2xx、超时、解码失败、熔断打开都返回 UNAVAILABLE，调用方按“没有行为”降级。
type Client struct {
	BaseURL string
	HTTP    *http.Client

	breaker *breaker.Breaker[[]core.Event]
	log     zerolog.Logger
}

// NewClient 创建带熔断的事件日志客户端，timeout <= 0 时使用 3 秒。
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout},
		breaker: breaker.New[[]core.Event](breaker.DefaultSettings("eventlog")),
		log:     logging.Component("eventlog"),
	}
}

type eventsResponse struct {
	RecentEvents []rawEvent `json:"recent_events"`
}

type rawEvent struct {
	EventType flexString `json:"event_type"`
	ProductID flexString `json:"product_id"`
	CreatedAt flexString `json:"createdAt"`
	Timestamp flexString `json:"timestamp"`
}

// RecentEvents 实现 core.EventSource。
func (c *Client) RecentEvents(ctx context.Context, userID string) ([]core.Event, error) {
	events, err := c.breaker.Execute(func() ([]core.Event, error) {
		return c.fetch(ctx, userID)
	})
	if err != nil {
		metrics.UpstreamFailures.WithLabelValues("eventlog").Inc()
		if core.IsUnavailable(err) {
			return nil, err
		}
		return nil, core.WrapDomainError(core.ModuleEventLog, core.ErrorCodeUnavailable, "eventlog: fetch events", err)
	}
	return events, nil
}

func (c *Client) fetch(ctx context.Context, userID string) ([]core.Event, error) {
	endpoint := c.BaseURL + "/api/events/" + url.PathEscape(userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, core.NewDomainError(core.ModuleEventLog, core.ErrorCodeUnavailable,
			fmt.Sprintf("eventlog: unexpected status %d", resp.StatusCode))
	}

	var payload eventsResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}
	events := make([]core.Event, 0, len(payload.RecentEvents))
	for _, ev := range payload.RecentEvents {
		ts := string(ev.CreatedAt)
		if ts == "" {
			ts = string(ev.Timestamp)
		}
		events = append(events, core.Event{
			EventType: string(ev.EventType),
			ProductID: string(ev.ProductID),
			Timestamp: ts,
		})
	}
	c.log.Debug().Str("user_id", userID).Int("events", len(events)).Msg("fetched events")
	return events, nil
}

// flexString 接受 JSON 字符串、数字或 null。
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	*f = flexString(b)
	return nil
}

var _ core.EventSource = (*Client)(nil)
