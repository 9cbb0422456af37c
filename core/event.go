package core

import "context"

// 行为类型
const (
	EventView      = "view"
	EventClick     = "click"
	EventAddToCart = "add_to_cart"
	EventPurchase  = "purchase"
)

// Event 是用户的一次交互行为，由调用方传入或从事件日志服务拉取，引擎不持久化。
type Event struct {
	EventType string `json:"event_type"`
	ProductID string `json:"product_id"`
	Timestamp string `json:"timestamp,omitempty"`
}

// EventSource 是事件日志服务的领域接口。
// 返回 error 时调用方自行决定降级（通常视为没有行为）。
type EventSource interface {
	RecentEvents(ctx context.Context, userID string) ([]Event, error)
}
