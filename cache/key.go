package cache

import (
	"crypto/sha1"
	"encoding/hex"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/rushteam/shopsense/core"
)

// 缓存 key 前缀
const (
	ClassRecommend = "recommend"
	ClassExplain   = "explain"
)

const (
	hashLen     = 12
	noHash      = "nohash"
	anyCategory = "all"
	noValue     = "none"
)

// canonicalEvent 固定字段顺序，保证同一事件总是编码成同一字节串。
type canonicalEvent struct {
	EventType string `json:"event_type"`
	ProductID string `json:"product_id"`
	Timestamp string `json:"timestamp"`
}

// EventsHash 返回行为列表的 12 位十六进制摘要。
// 每个事件独立编码后排序再做 SHA-1，因此与事件顺序无关；编码失败时返回 "nohash"。
func EventsHash(events []core.Event) string {
	encoded := make([]string, 0, len(events))
	for _, ev := range events {
		b, err := json.Marshal(canonicalEvent{EventType: ev.EventType, ProductID: ev.ProductID, Timestamp: ev.Timestamp})
		if err != nil {
			return noHash
		}
		encoded = append(encoded, string(b))
	}
	sort.Strings(encoded)

	h := sha1.New()
	for _, e := range encoded {
		h.Write([]byte(e))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))[:hashLen]
}

// segment 转义调用方给出的自由文本，避免其中的 ':' 伪造出别的 key。
func segment(s string) string {
	return url.QueryEscape(s)
}

// filterTokens 把约束规范化为 key 片段：类目未设为 all，价格未设为 none，表达式为 none 或其摘要。
func filterTokens(c core.Constraints) string {
	cat := anyCategory
	if c.Category != "" {
		cat = segment(c.Category)
	}
	return strings.Join([]string{cat, priceToken(c.MinPrice), priceToken(c.MaxPrice), exprToken(c.Expr)}, ":")
}

func priceToken(v *float64) string {
	if v == nil {
		return noValue
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func exprToken(expr string) string {
	if expr == "" {
		return noValue
	}
	sum := sha1.Sum([]byte(expr))
	return hex.EncodeToString(sum[:])[:hashLen]
}

// RecommendKey = recommend:{user}:{evhash}:{cat}:{min}:{max}:{expr}:k{k}
// user / cat 经过 QueryEscape。
func RecommendKey(userID string, events []core.Event, c core.Constraints, k int) string {
	return ClassRecommend + ":" + segment(userID) + ":" + EventsHash(events) + ":" + filterTokens(c) + ":k" + strconv.Itoa(k)
}

// ExplainKey = explain:{user}:{product}:{evhash}:{cat}:{min}:{max}:{expr}
func ExplainKey(userID, productID string, events []core.Event, c core.Constraints) string {
	return ClassExplain + ":" + segment(userID) + ":" + segment(productID) + ":" + EventsHash(events) + ":" + filterTokens(c)
}
