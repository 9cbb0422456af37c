package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/shopsense/cache"
	"github.com/rushteam/shopsense/catalog"
	"github.com/rushteam/shopsense/config"
	"github.com/rushteam/shopsense/core"
	"github.com/rushteam/shopsense/eventlog"
	"github.com/rushteam/shopsense/explain"
	"github.com/rushteam/shopsense/filter"
	"github.com/rushteam/shopsense/logging"
	"github.com/rushteam/shopsense/pipeline"
	"github.com/rushteam/shopsense/recall"
	"github.com/rushteam/shopsense/store"
	"github.com/rushteam/shopsense/vector"
)

// Load 按配置加载离线产物并组装 Engine。
//
//   - 商品目录与向量表并发加载
//   - 目录缺失或缺列、向量与 ID 行数不一致：返回错误，进程应退出
//   - 向量产物不存在：Engine 照常启动，推荐接口返回空结果（NOT_READY）
func Load(ctx context.Context, cfg *config.Config) (*Engine, error) {
	log := logging.Component("engine")

	var (
		cat     *catalog.Catalog
		vectors *vector.Store
	)
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := catalog.LoadCSV(cfg.Data.ProductsCSV)
		if err != nil {
			return fmt.Errorf("load catalog: %w", err)
		}
		cat = c
		return nil
	})
	g.Go(func() error {
		s, err := vector.Load(cfg.Data.EmbeddingsPath, cfg.Data.ProductIDsPath)
		if errors.Is(err, fs.ErrNotExist) {
			log.Warn().Err(err).Msg("embedding artifacts missing, starting without an index")
			vectors, _ = vector.NewStore(nil)
			return nil
		}
		if err != nil {
			return fmt.Errorf("load embeddings: %w", err)
		}
		vectors = s
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	index, err := openIndex(cfg.Index, vectors)
	if err != nil {
		return nil, err
	}

	profile := recall.NewProfileBuilder(vectors)
	profile.Weights = cfg.Recommend.EventWeights

	p, err := buildPipeline(cfg, config.Deps{Catalog: cat, Index: index, Profile: profile})
	if err != nil {
		_ = index.Close()
		return nil, err
	}

	cacheStore, err := NewCacheStore(cfg.Cache)
	switch {
	case core.IsUnavailable(err):
		// 缓存只是加速手段，连不上时不带缓存启动
		log.Warn().Err(err).Msg("cache backend unavailable, caching disabled")
		cacheStore = nil
	case err != nil:
		_ = index.Close()
		return nil, err
	}
	var c *cache.Cache
	if cacheStore != nil {
		c = cache.New(cacheStore, logging.Component("cache"))
		if cfg.Cache.RecommendTTL > 0 {
			c.RecommendTTL = cfg.Cache.RecommendTTL
		}
		if cfg.Cache.ExplainTTL > 0 {
			c.ExplainTTL = cfg.Cache.ExplainTTL
		}
		if cfg.Cache.Timeout > 0 {
			c.Timeout = cfg.Cache.Timeout
		}
	}

	var events core.EventSource
	if cfg.EventLog.URL != "" {
		events = eventlog.NewClient(cfg.EventLog.URL, cfg.EventLog.Timeout)
	}

	policy, _ := filter.ParsePolicy(cfg.Recommend.Policy)
	e := New(Options{
		Catalog:   cat,
		Vectors:   vectors,
		Index:     index,
		Pipeline:  p,
		Cache:     c,
		Events:    events,
		Explainer: explain.NewLLM(cfg.LLM, &explain.Template{Catalog: cat}),
		Policy:    policy,
		DefaultK:  cfg.Recommend.DefaultK,
		MaxK:      cfg.Recommend.MaxK,
		Logger:    log,
	})

	log.Info().
		Int("products", cat.Len()).
		Int("vectors", vectors.Len()).
		Int("dim", vectors.Dim()).
		Str("index", index.Name()).
		Str("cache", cfg.Cache.Resolved()).
		Str("policy", string(e.policy)).
		Bool("ready", e.Ready()).
		Msg("engine loaded")
	return e, nil
}

func openIndex(cfg config.IndexConfig, vectors *vector.Store) (core.VectorIndex, error) {
	switch cfg.Backend {
	case config.IndexQdrant:
		idx, err := vector.NewQdrantIndex(cfg.QdrantAddr, cfg.QdrantCollection)
		if err != nil {
			return nil, fmt.Errorf("open qdrant index: %w", err)
		}
		return idx, nil
	default:
		return vector.NewFlatIndex(vectors), nil
	}
}

func buildPipeline(cfg *config.Config, deps config.Deps) (*pipeline.Pipeline, error) {
	pc := config.DefaultPipelineConfig(cfg.Recommend)
	if cfg.Data.PipelinePath != "" {
		loaded, err := pipeline.LoadFromYAML(cfg.Data.PipelinePath)
		if err != nil {
			return nil, fmt.Errorf("load pipeline %s: %w", cfg.Data.PipelinePath, err)
		}
		pc = loaded
	}
	if err := config.ValidatePipelineConfig(pc); err != nil {
		return nil, err
	}
	p, err := pc.BuildPipeline(config.DefaultFactory(deps))
	if err != nil {
		return nil, fmt.Errorf("build pipeline: %w", err)
	}
	return p, nil
}

// NewCacheStore 按配置创建缓存后端；none 返回 (nil, nil)，即不使用缓存。
func NewCacheStore(cfg config.CacheConfig) (core.Store, error) {
	switch cfg.Resolved() {
	case config.CacheNone:
		return nil, nil
	case config.CacheRedis:
		s, err := store.NewRedisStoreFromURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("open redis cache: %w", err)
		}
		return s, nil
	case config.CacheBadger:
		s, err := store.OpenBadgerStore(cfg.BadgerDir)
		if err != nil {
			return nil, fmt.Errorf("open badger cache: %w", err)
		}
		return s, nil
	default:
		return store.NewMemoryStore(), nil
	}
}
