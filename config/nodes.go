package config

import (
	"errors"
	"fmt"

	"github.com/rushteam/shopsense/filter"
	"github.com/rushteam/shopsense/pipeline"
	"github.com/rushteam/shopsense/pkg/conv"
	"github.com/rushteam/shopsense/rank"
	"github.com/rushteam/shopsense/recall"
	"github.com/rushteam/shopsense/rerank"
)

// 内置 Node 类型
const (
	NodeRecallANN        = "recall.ann"
	NodeFilterHydrate    = "filter.hydrate"
	NodeFilterConstraint = "filter.constraint"
	NodeRankWeighted     = "rank.weighted"
	NodeRerankTopN       = "rerank.topn"
)

func init() {
	Register(NodeRecallANN, BuildANNNode)
	Register(NodeFilterHydrate, BuildHydrateNode)
	Register(NodeFilterConstraint, BuildConstraintNode)
	Register(NodeRankWeighted, BuildWeightedNode)
	Register(NodeRerankTopN, BuildTopNNode)
}

// BuildANNNode 配置项：candidate_multiplier、min_candidates。
func BuildANNNode(deps Deps, cfg map[string]any) (pipeline.Node, error) {
	if deps.Index == nil || deps.Profile == nil {
		return nil, errors.New("recall.ann requires a vector index and profile builder")
	}
	return &recall.ANN{
		Index:               deps.Index,
		Profile:             deps.Profile,
		CandidateMultiplier: int(conv.ConfigGetInt64(cfg, "candidate_multiplier", recall.DefaultCandidateMultiplier)),
		MinCandidates:       int(conv.ConfigGetInt64(cfg, "min_candidates", recall.DefaultMinCandidates)),
	}, nil
}

func BuildHydrateNode(deps Deps, _ map[string]any) (pipeline.Node, error) {
	if deps.Catalog == nil {
		return nil, errors.New("filter.hydrate requires a catalog")
	}
	return &filter.HydrateNode{Catalog: deps.Catalog}, nil
}

// BuildConstraintNode 配置项：policy（fallback/strict）、exclude_ids、expr（全局附加表达式）。
func BuildConstraintNode(_ Deps, cfg map[string]any) (pipeline.Node, error) {
	policy, ok := filter.ParsePolicy(conv.ConfigGet(cfg, "policy", ""))
	if !ok {
		return nil, fmt.Errorf("filter.constraint: unknown policy %q", cfg["policy"])
	}
	node := &filter.FilterNode{Filters: filter.DefaultFilters(), Policy: policy}
	if expr := conv.ConfigGet(cfg, "expr", ""); expr != "" {
		node.Filters = append(node.Filters, &filter.ExprFilter{Expr: expr})
	}
	if ids := conv.SliceAnyToString(cfg["exclude_ids"]); len(ids) > 0 {
		node.Excludes = append(node.Excludes, filter.NewBlocklistFilter(ids))
	}
	return node, nil
}

// BuildWeightedNode 配置项：alpha、beta、gamma，缺省取 0.7/0.2/0.1。
func BuildWeightedNode(_ Deps, cfg map[string]any) (pipeline.Node, error) {
	def := rank.DefaultWeights()
	w := rank.Weights{
		Alpha: configFloat(cfg, "alpha", def.Alpha),
		Beta:  configFloat(cfg, "beta", def.Beta),
		Gamma: configFloat(cfg, "gamma", def.Gamma),
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &rank.WeightedNode{Weights: w}, nil
}

// BuildTopNNode 配置项：n，缺省使用请求的 k。
func BuildTopNNode(_ Deps, cfg map[string]any) (pipeline.Node, error) {
	return &rerank.TopNNode{N: int(conv.ConfigGetInt64(cfg, "n", 0))}, nil
}

func configFloat(cfg map[string]any, key string, def float64) float64 {
	if v, ok := conv.ToFloat64(cfg[key]); ok {
		return v
	}
	return def
}

// DefaultPipelineConfig 返回默认链路：ann 召回 → 回填 → 约束 → 融合打分 → Top-N。
func DefaultPipelineConfig(r RecommendConfig) *pipeline.Config {
	excludes := make([]any, len(r.ExcludeIDs))
	for i, id := range r.ExcludeIDs {
		excludes[i] = id
	}
	cfg := &pipeline.Config{}
	cfg.Pipeline.Name = "default"
	cfg.Pipeline.Nodes = []pipeline.NodeConfig{
		{Type: NodeRecallANN, Config: map[string]any{
			"candidate_multiplier": r.CandidateMultiplier,
			"min_candidates":       r.MinCandidates,
		}},
		{Type: NodeFilterHydrate},
		{Type: NodeFilterConstraint, Config: map[string]any{
			"policy":      r.Policy,
			"exclude_ids": excludes,
		}},
		{Type: NodeRankWeighted, Config: map[string]any{
			"alpha": r.Rank.Alpha,
			"beta":  r.Rank.Beta,
			"gamma": r.Rank.Gamma,
		}},
		{Type: NodeRerankTopN},
	}
	return cfg
}
