package pipeline

import (
	"context"
	"fmt"

	"github.com/rushteam/shopsense/core"
)

// Pipeline 把推荐逻辑拆成可组合的 Node 链：recall → filter → rank → rerank。
// Pipeline 本身无状态，可被多个请求并发复用。
type Pipeline struct {
	Nodes []Node
}

// Run 依次执行各 Node。任一 Node 出错即中止，错误带上 Node 名称。
// ctx 取消时在下一个 Node 之前返回。
func (p *Pipeline) Run(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	cur := items
	for _, node := range p.Nodes {
		if node == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		next, err := node.Process(ctx, rctx, cur)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", node.Name(), err)
		}
		cur = next
	}
	return cur, nil
}

// Stage 返回从第一个 kind 类型 Node 开始的子链，用于跳过召回、直接对已有候选排序。
func (p *Pipeline) Stage(kind Kind) *Pipeline {
	for i, node := range p.Nodes {
		if node != nil && node.Kind() == kind {
			return &Pipeline{Nodes: p.Nodes[i:]}
		}
	}
	return &Pipeline{}
}
