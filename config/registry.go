package config

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rushteam/shopsense/core"
	"github.com/rushteam/shopsense/filter"
	"github.com/rushteam/shopsense/pipeline"
	"github.com/rushteam/shopsense/recall"
)

// Deps 是构建 Node 所需的运行期依赖，由 engine 在加载完数据后提供。
// 某个依赖为 nil 时，需要它的 Node 构建失败。
type Deps struct {
	Catalog filter.ProductLookup
	Index   core.VectorIndex
	Profile *recall.ProfileBuilder
}

// Builder 根据运行期依赖与 Node 配置构建 Node。
type Builder func(deps Deps, cfg map[string]any) (pipeline.Node, error)

var (
	defaultBuilders   = make(map[string]Builder)
	defaultBuildersMu sync.RWMutex
)

// Register 注册一种 Node 的构建逻辑，供 DefaultFactory 与配置驱动使用。
// 内置 Node 在本包 init 中注册；扩展 Node 可在自己的 init 中调用。
func Register(typeName string, builder Builder) {
	if typeName == "" || builder == nil {
		return
	}
	defaultBuildersMu.Lock()
	defer defaultBuildersMu.Unlock()
	defaultBuilders[typeName] = builder
}

// SupportedTypes 返回当前已注册的 Node 类型列表（排序），用于错误提示与校验。
func SupportedTypes() []string {
	defaultBuildersMu.RLock()
	defer defaultBuildersMu.RUnlock()
	types := make([]string, 0, len(defaultBuilders))
	for t := range defaultBuilders {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// DefaultFactory 返回绑定了 deps 的 NodeFactory，包含所有通过 Register 注册的 Node 类型。
func DefaultFactory(deps Deps) *pipeline.NodeFactory {
	defaultBuildersMu.RLock()
	defer defaultBuildersMu.RUnlock()
	f := pipeline.NewNodeFactory()
	for typeName, builder := range defaultBuilders {
		b := builder
		f.Register(typeName, func(cfg map[string]any) (pipeline.Node, error) {
			return b(deps, cfg)
		})
	}
	return f
}

// ValidatePipelineConfig 校验 pipeline 配置中所有 node 类型均已注册；若有未支持类型则返回包含已支持列表的错误。
func ValidatePipelineConfig(cfg *pipeline.Config) error {
	if cfg == nil {
		return nil
	}
	supported := SupportedTypes()
	for _, nc := range cfg.Pipeline.Nodes {
		if nc.Type == "" {
			continue
		}
		defaultBuildersMu.RLock()
		_, ok := defaultBuilders[nc.Type]
		defaultBuildersMu.RUnlock()
		if !ok {
			return fmt.Errorf("unsupported node type %q (supported: %v)", nc.Type, supported)
		}
	}
	return nil
}
