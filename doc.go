// Package shopsense 是一个基于商品 Embedding 的个性化推荐引擎。
//
// 设计要点：
// - Pipeline-first: 推荐逻辑通过 Node 串联（Recall → Filter → Rank → ReRank），Node 可由 YAML 配置组装
// - Labels-first: category_match / price_in_range / pool 等标签全链路透传，用于打分、兜底与解释
// - 降级优先: 索引未加载、事件日志或缓存不可用时返回空结果或跳过缓存，而不是报错
//
// 服务入口见 cmd/shopsense，引擎组装见 engine.Load。
package shopsense

import "github.com/rushteam/shopsense/pipeline"

// 轻量 facade：便于直接 import "shopsense" 使用核心抽象。
type Pipeline = pipeline.Pipeline
type Node = pipeline.Node
type Kind = pipeline.Kind

const (
	KindRecall = pipeline.KindRecall
	KindFilter = pipeline.KindFilter
	KindRank   = pipeline.KindRank
	KindReRank = pipeline.KindReRank
)
