package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/rushteam/shopsense/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvErr  error
	celEnvOnce sync.Once

	// programs 缓存已编译的表达式，key 为表达式原文。
	// 表达式来自请求参数，按 LRU 淘汰以限制内存。
	programs = mustProgramCache(MaxCachedPrograms)
)

// MaxCachedPrograms 是已编译表达式缓存的容量。
const MaxCachedPrograms = 1024

func mustProgramCache(size int) *lru.Cache[string, cel.Program] {
	c, err := lru.New[string, cel.Program](size)
	if err != nil {
		panic(err)
	}
	return c
}

func initCELEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("product", cel.DynType),
		cel.Variable("item", cel.DynType),
		cel.Variable("label", cel.DynType),
		cel.CrossTypeNumericComparisons(true),
	)
}

func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = initCELEnv()
	})
	return celEnv, celEnvErr
}

// Compile 编译并缓存表达式。语法错误或返回值不是 bool 时返回 INVALID_INPUT。
func Compile(expr string) (cel.Program, error) {
	if p, ok := programs.Get(expr); ok {
		return p, nil
	}
	env, err := getCELEnv()
	if err != nil {
		return nil, core.WrapDomainError(core.ModuleEngine, core.ErrorCodeInternalError, "dsl: cel env", err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, core.WrapDomainError(core.ModuleEngine, core.ErrorCodeInvalidInput,
			fmt.Sprintf("dsl: compile %q", expr), issues.Err())
	}
	if t := ast.OutputType(); !t.IsExactType(cel.BoolType) && !t.IsExactType(cel.DynType) {
		return nil, core.NewDomainError(core.ModuleEngine, core.ErrorCodeInvalidInput,
			fmt.Sprintf("dsl: expression must return bool, got %s", t))
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, core.WrapDomainError(core.ModuleEngine, core.ErrorCodeInvalidInput, "dsl: program", err)
	}
	programs.Add(expr, prg)
	return prg, nil
}

// Eval 是候选商品上的表达式解释器，使用 CEL (Common Expression Language) 实现。
//
// 可用变量：
//   - product：id / title / brand / category / price / attributes
//   - item：id / similarity / score / rank
//   - label：候选上的 Label 值，例如 label.recall_source
//
// 示例：
//   - `product.brand == "Acme"`
//   - `product.price >= 100 && product.price < 500`
//   - `product.attributes.color == "red"`
//   - `"in_stock" in product.attributes && product.attributes.in_stock == "true"`
type Eval struct {
	item *core.Item
}

// NewEval 创建绑定到单个候选的解释器。
func NewEval(item *core.Item) *Eval {
	return &Eval{item: item}
}

// Evaluate 执行表达式，空表达式恒为 true。
// 访问不存在的 key 会得到运行期错误，应先用 `"key" in product.attributes` 判断。
func (e *Eval) Evaluate(expr string) (bool, error) {
	if expr == "" {
		return true, nil
	}
	prg, err := Compile(expr)
	if err != nil {
		return false, err
	}

	out, _, err := prg.Eval(e.buildInput())
	if err != nil {
		return false, fmt.Errorf("eval error: %w", err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression must return boolean, got %T", out.Value())
	}
	return result, nil
}

func (e *Eval) buildInput() map[string]any {
	labels := make(map[string]any, len(e.item.Labels))
	for k, v := range e.item.Labels {
		labels[k] = v.Value
	}

	item := map[string]any{
		"id":         e.item.ID,
		"similarity": e.item.Similarity,
		"score":      e.item.Score,
		"rank":       int64(e.item.Rank),
	}

	product := map[string]any{}
	if p := e.item.Product; p != nil {
		attrs := make(map[string]any, len(p.Attributes))
		for k, v := range p.Attributes {
			attrs[k] = v
		}
		product = map[string]any{
			"id":         p.ID,
			"title":      p.Title,
			"brand":      p.Brand,
			"category":   p.Category,
			"price":      p.Price,
			"attributes": attrs,
		}
	}

	return map[string]any{
		"product": product,
		"item":    item,
		"label":   labels,
	}
}
