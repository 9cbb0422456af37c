// Package engine 把目录、向量、Pipeline、缓存、事件日志与解释生成组装成对外的查询接口。
//
// Engine 不持有包级全局状态：所有依赖在构造时注入，同一进程内可以并存多个实例。
package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/rushteam/shopsense/cache"
	"github.com/rushteam/shopsense/catalog"
	"github.com/rushteam/shopsense/core"
	"github.com/rushteam/shopsense/explain"
	"github.com/rushteam/shopsense/filter"
	"github.com/rushteam/shopsense/logging"
	"github.com/rushteam/shopsense/metrics"
	"github.com/rushteam/shopsense/pipeline"
	"github.com/rushteam/shopsense/pkg/dsl"
	"github.com/rushteam/shopsense/pkg/utils"
	"github.com/rushteam/shopsense/vector"
)

// 默认返回条数与上限
const (
	DefaultK = 10
	MaxK     = 100
)

// Options 是 Engine 的依赖。Cache、Events、Explainer 可以为 nil。
type Options struct {
	Catalog   *catalog.Catalog
	Vectors   *vector.Store
	Index     core.VectorIndex
	Pipeline  *pipeline.Pipeline
	Cache     *cache.Cache
	Events    core.EventSource
	Explainer explain.Explainer
	// Policy 仅在 Pipeline 中没有约束过滤节点时生效，否则以节点的策略为准。
	Policy    filter.Policy
	DefaultK  int
	MaxK      int
	Logger    zerolog.Logger
}

// Engine 是推荐引擎，并发安全。
type Engine struct {
	catalog   *catalog.Catalog
	vectors   *vector.Store
	index     core.VectorIndex
	pipeline  *pipeline.Pipeline
	cache     *cache.Cache
	events    core.EventSource
	explainer explain.Explainer
	policy    filter.Policy
	defaultK  int
	maxK      int
	logger    zerolog.Logger
}

// New 创建 Engine。
func New(opts Options) *Engine {
	e := &Engine{
		catalog:   opts.Catalog,
		vectors:   opts.Vectors,
		index:     opts.Index,
		pipeline:  opts.Pipeline,
		cache:     opts.Cache,
		events:    opts.Events,
		explainer: opts.Explainer,
		policy:    opts.Policy,
		defaultK:  opts.DefaultK,
		maxK:      opts.MaxK,
		logger:    opts.Logger,
	}
	if e.pipeline == nil {
		e.pipeline = &pipeline.Pipeline{}
	}
	if e.explainer == nil {
		e.explainer = &explain.Template{Catalog: e.catalog}
	}
	if p, ok := constraintPolicy(e.pipeline); ok {
		e.policy = p
	}
	if e.policy == "" {
		e.policy = filter.PolicyFallback
	}
	if e.defaultK <= 0 {
		e.defaultK = DefaultK
	}
	if e.maxK <= 0 {
		e.maxK = MaxK
	}
	if e.maxK < e.defaultK {
		e.maxK = e.defaultK
	}
	metrics.IndexEntries.Set(float64(e.vectors.Len()))
	return e
}

// constraintPolicy 返回流水线中约束过滤节点的策略，保证类目门控与过滤节点一致。
func constraintPolicy(p *pipeline.Pipeline) (filter.Policy, bool) {
	for _, n := range p.Nodes {
		if fn, ok := n.(*filter.FilterNode); ok && fn.Policy != "" {
			return fn.Policy, true
		}
	}
	return "", false
}

// Ready 向量表与索引都已加载。
func (e *Engine) Ready() bool {
	return e.index != nil && e.vectors.Len() > 0
}

// Request 是一次推荐请求。Events 为 nil 时从事件日志拉取；非 nil（包括空切片）时直接使用。
type Request struct {
	UserID   string
	K        int
	Category string
	MinPrice *float64
	MaxPrice *float64
	Expr     string
	Events   []core.Event
}

func (r Request) constraints() core.Constraints {
	return core.Constraints{Category: r.Category, MinPrice: r.MinPrice, MaxPrice: r.MaxPrice, Expr: r.Expr}
}

// Result 是一条推荐结果。
type Result struct {
	ProductID string        `json:"product_id"`
	Score     float64       `json:"score"`
	Product   *core.Product `json:"product"`
}

// RecommendResponse 推荐结果，Cached 表示来自缓存。
type RecommendResponse struct {
	Cached  bool     `json:"cached"`
	Results []Result `json:"results"`
}

func emptyResponse() *RecommendResponse {
	return &RecommendResponse{Results: []Result{}}
}

// Recommend 返回个性化推荐。
//
// 只有表达式非法时返回 INVALID_INPUT 错误；索引未加载、上游不可用等情况都降级为空结果。
// 未加载与检索失败的空结果不写缓存，正常计算出的空结果照常缓存。
func (e *Engine) Recommend(ctx context.Context, req Request) (*RecommendResponse, error) {
	start := time.Now()
	ctx, log := e.requestLogger(ctx, "recommend")

	c := req.constraints()
	if c.Expr != "" {
		if _, err := dsl.Compile(c.Expr); err != nil {
			metrics.RecordRequest("recommend", "invalid", start)
			return nil, err
		}
	}
	k := e.normalizeK(req.K)
	events := e.resolveEvents(ctx, req.UserID, req.Events)

	if !e.Ready() {
		log.Warn().Msg("index not loaded, returning empty results")
		metrics.RecordRequest("recommend", "not_ready", start)
		return emptyResponse(), nil
	}

	if e.policy == filter.PolicyStrict && c.HasCategory() && !e.hasCategoryActivity(events, c.Category) {
		metrics.RecordRequest("recommend", "empty", start)
		return emptyResponse(), nil
	}

	key := cache.RecommendKey(req.UserID, events, c, k)
	var cached []Result
	if e.cache.Get(ctx, key, &cached) {
		if cached == nil {
			cached = []Result{}
		}
		metrics.RecordRequest("recommend", "hit", start)
		return &RecommendResponse{Cached: true, Results: cached}, nil
	}

	rctx := &core.RecommendContext{
		RequestID:   logging.RequestIDFromContext(ctx),
		UserID:      req.UserID,
		K:           k,
		Events:      events,
		Constraints: c,
	}
	items, err := e.pipeline.Run(ctx, rctx, nil)
	if err != nil {
		if core.IsInvalidInput(err) {
			metrics.RecordRequest("recommend", "invalid", start)
			return nil, err
		}
		result := "error"
		if core.IsNotReady(err) {
			result = "not_ready"
		}
		log.Warn().Err(err).Msg("pipeline failed, returning empty results")
		metrics.RecordRequest("recommend", result, start)
		return emptyResponse(), nil
	}
	if _, ok := rctx.GetLabel(utils.LabelColdStart); ok {
		metrics.ColdStartTotal.Inc()
	}

	results := toResults(items)
	e.cache.SetRecommend(ctx, key, results)

	log.Debug().Int("k", k).Int("results", len(results)).Int("events", len(events)).Msg("recommend computed")
	metrics.RecordRequest("recommend", "miss", start)
	return &RecommendResponse{Results: results}, nil
}

// Rank 对外部给定的候选执行 回填 → 约束 → 打分 → Top-N，跳过召回阶段。
// raw 的顺序视为召回顺序。
func (e *Engine) Rank(ctx context.Context, rctx *core.RecommendContext, raw []core.VectorSearchItem) ([]Result, error) {
	if rctx.K <= 0 {
		rctx.K = e.defaultK
	}
	items := make([]*core.Item, 0, len(raw))
	for i, r := range raw {
		it := core.NewItem(r.ID)
		it.Similarity = r.Score
		it.Rank = i
		items = append(items, it)
	}
	out, err := e.pipeline.Stage(pipeline.KindFilter).Run(ctx, rctx, items)
	if err != nil {
		return nil, err
	}
	return toResults(out), nil
}

func toResults(items []*core.Item) []Result {
	out := make([]Result, 0, len(items))
	for _, it := range items {
		if it == nil {
			continue
		}
		pool := it.LabelValue(utils.LabelPool)
		if pool == "" {
			pool = utils.PoolPrimary
		}
		metrics.CandidatesTotal.WithLabelValues(pool).Inc()
		out = append(out, Result{ProductID: it.ID, Score: it.Score, Product: it.Product})
	}
	return out
}

// ExplainRequest 是一次解释请求，Events 语义同 Request。
type ExplainRequest struct {
	UserID    string
	ProductID string
	Category  string
	MinPrice  *float64
	MaxPrice  *float64
	Events    []core.Event
}

// ExplainResponse 解释结果。
type ExplainResponse struct {
	Cached      bool                `json:"cached"`
	Explanation explain.Explanation `json:"explanation"`
}

// Explain 解释为什么向用户推荐某个商品。商品不存在时返回 NOT_FOUND。
// 生成失败降级为模板的结果不写缓存，上游恢复后可以拿到更好的解释。
func (e *Engine) Explain(ctx context.Context, req ExplainRequest) (*ExplainResponse, error) {
	start := time.Now()
	ctx, log := e.requestLogger(ctx, "explain")

	product, err := e.catalog.Lookup(req.ProductID)
	if err != nil {
		metrics.RecordRequest("explain", "not_found", start)
		return nil, err
	}
	events := e.resolveEvents(ctx, req.UserID, req.Events)
	c := core.Constraints{Category: req.Category, MinPrice: req.MinPrice, MaxPrice: req.MaxPrice}

	key := cache.ExplainKey(req.UserID, req.ProductID, events, c)
	var cached explain.Explanation
	if e.cache.Get(ctx, key, &cached) {
		metrics.RecordRequest("explain", "hit", start)
		return &ExplainResponse{Cached: true, Explanation: cached}, nil
	}

	out := e.explainer.Explain(ctx, explain.Request{
		UserID:      req.UserID,
		Product:     product,
		Events:      events,
		Constraints: c,
	})
	if out.Error == "" {
		e.cache.SetExplain(ctx, key, out)
	}
	log.Debug().Str("product_id", req.ProductID).Str("source", out.Source).Msg("explanation generated")
	metrics.RecordRequest("explain", "miss", start)
	return &ExplainResponse{Explanation: out}, nil
}

// Product 按 ID 查询商品，不存在时返回 NOT_FOUND。
func (e *Engine) Product(id string) (*core.Product, error) {
	return e.catalog.Lookup(id)
}

// SessionSummary 是用户近期行为的规范化视图。
type SessionSummary struct {
	SessionID    string       `json:"session_id"`
	RecentEvents []core.Event `json:"recent_events"`
}

// SessionSummary 拉取用户近期行为；事件日志不可用时返回空列表。
func (e *Engine) SessionSummary(ctx context.Context, sessionID string) *SessionSummary {
	ctx, _ = e.requestLogger(ctx, "session_summary")
	events := e.resolveEvents(ctx, sessionID, nil)
	return &SessionSummary{SessionID: sessionID, RecentEvents: events}
}

// Health 健康状态。
type Health struct {
	Status        string `json:"status"`
	IndexLoaded   bool   `json:"index_loaded"`
	TotalProducts int    `json:"total_products"`
}

func (e *Engine) Health() Health {
	return Health{Status: "ok", IndexLoaded: e.Ready(), TotalProducts: e.catalog.Len()}
}

// Close 释放索引连接与缓存后端。
func (e *Engine) Close() error {
	var firstErr error
	if e.index != nil {
		if err := e.index.Close(); err != nil {
			firstErr = err
		}
	}
	if e.cache != nil && e.cache.Store != nil {
		if err := e.cache.Store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (e *Engine) normalizeK(k int) int {
	if k <= 0 {
		return e.defaultK
	}
	if k > e.maxK {
		return e.maxK
	}
	return k
}

// resolveEvents 调用方未提供行为时从事件日志拉取，失败视为没有行为。
func (e *Engine) resolveEvents(ctx context.Context, userID string, supplied []core.Event) []core.Event {
	if supplied != nil {
		return supplied
	}
	if e.events == nil || userID == "" {
		return []core.Event{}
	}
	events, err := e.events.RecentEvents(ctx, userID)
	if err != nil {
		l := logging.Ctx(ctx, e.logger)
		l.Warn().Err(err).Str("user_id", userID).Msg("event log unavailable, continuing without events")
		return []core.Event{}
	}
	if events == nil {
		events = []core.Event{}
	}
	return events
}

// hasCategoryActivity 行为中是否有商品属于该类目。
func (e *Engine) hasCategoryActivity(events []core.Event, category string) bool {
	for _, ev := range events {
		if p, ok := e.catalog.Get(ev.ProductID); ok && p.Category == category {
			return true
		}
	}
	return false
}

// requestLogger 确保 ctx 中有请求 ID，并返回带 request_id 与 operation 字段的 Logger。
func (e *Engine) requestLogger(ctx context.Context, op string) (context.Context, zerolog.Logger) {
	if logging.RequestIDFromContext(ctx) == "" {
		ctx = logging.ContextWithRequestID(ctx, logging.GenerateRequestID())
	}
	return ctx, logging.Ctx(ctx, e.logger).With().Str("operation", op).Logger()
}
