// Package explain 生成“为什么推荐这个商品”的说明文本。
package explain

import (
	"context"

	"github.com/rushteam/shopsense/core"
)

// 说明来源
const (
	SourceTemplate = "template"
	SourceOpenAI   = "openai"
)

// Explanation 是一条推荐说明。Error 记录生成失败的原因（已降级为模板）。
type Explanation struct {
	Text   string `json:"text"`
	Source string `json:"source"`
	Error  string `json:"error,omitempty"`
}

// Request 是生成说明所需的上下文。
type Request struct {
	UserID      string
	Product     *core.Product
	Events      []core.Event
	Constraints core.Constraints
}

// Explainer 生成说明。实现不返回错误：失败时自行降级。
type Explainer interface {
	Explain(ctx context.Context, req Request) Explanation
}

// ProductLookup 用于把行为里的商品 ID 解析成商品。
type ProductLookup interface {
	Get(id string) (*core.Product, bool)
}
