// Package config 负责两类配置：
//   - 服务配置（Load）：默认值 → YAML 文件 → 环境变量，基于 koanf 分层合并
//   - Pipeline 配置：Node 注册表与构建器（Register / DefaultFactory）
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/rushteam/shopsense/explain"
	"github.com/rushteam/shopsense/filter"
	"github.com/rushteam/shopsense/logging"
	"github.com/rushteam/shopsense/rank"
	"github.com/rushteam/shopsense/recall"
)

// DefaultConfigPaths 按优先级查找的配置文件，使用第一个存在的。
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/shopsense/config.yaml",
}

// ConfigPathEnvVar 指定配置文件路径的环境变量。
const ConfigPathEnvVar = "CONFIG_PATH"

// 索引与缓存后端
const (
	IndexFlat   = "flat"
	IndexQdrant = "qdrant"

	CacheAuto   = "" // 配置了 redis_url 时用 redis，否则 memory
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheBadger = "badger"
)

// Config 是服务的完整配置。
type Config struct {
	Server    ServerConfig      `koanf:"server"`
	Data      DataConfig        `koanf:"data"`
	Index     IndexConfig       `koanf:"index"`
	Recommend RecommendConfig   `koanf:"recommend"`
	Cache     CacheConfig       `koanf:"cache"`
	EventLog  EventLogConfig    `koanf:"eventlog"`
	LLM       explain.LLMConfig `koanf:"llm"`
	Logging   logging.Config    `koanf:"logging"`
}

type ServerConfig struct {
	Addr            string        `koanf:"addr"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// DataConfig 离线构建产物的位置。
type DataConfig struct {
	EmbeddingsPath string `koanf:"embeddings_path"`
	ProductIDsPath string `koanf:"product_ids_path"`
	ProductsCSV    string `koanf:"products_csv"`

	// PipelinePath 可选的 pipeline YAML，为空时使用默认链路
	PipelinePath string `koanf:"pipeline_path"`
}

type IndexConfig struct {
	Backend          string `koanf:"backend"` // flat / qdrant
	QdrantAddr       string `koanf:"qdrant_addr"`
	QdrantCollection string `koanf:"qdrant_collection"`
}

type RecommendConfig struct {
	DefaultK            int                 `koanf:"default_k"`
	MaxK                int                 `koanf:"max_k"`
	Policy              string              `koanf:"policy"` // fallback / strict
	CandidateMultiplier int                 `koanf:"candidate_multiplier"`
	MinCandidates       int                 `koanf:"min_candidates"`
	ExcludeIDs          []string            `koanf:"exclude_ids"`
	Rank                rank.Weights        `koanf:"rank"`
	EventWeights        recall.EventWeights `koanf:"event_weights"`
}

type CacheConfig struct {
	Backend      string        `koanf:"backend"` // 空 / none / memory / redis / badger
	RedisURL     string        `koanf:"redis_url"`
	BadgerDir    string        `koanf:"badger_dir"` // 为空时使用内存模式
	RecommendTTL time.Duration `koanf:"recommend_ttl"`
	ExplainTTL   time.Duration `koanf:"explain_ttl"`
	Timeout      time.Duration `koanf:"timeout"`
}

type EventLogConfig struct {
	URL     string        `koanf:"url"` // 为空时不拉取行为
	Timeout time.Duration `koanf:"timeout"`
}

// Resolved 返回实际使用的缓存后端。
func (c CacheConfig) Resolved() string {
	if c.Backend != CacheAuto {
		return c.Backend
	}
	if c.RedisURL != "" {
		return CacheRedis
	}
	return CacheMemory
}

// Default 返回默认配置。
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8000",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Data: DataConfig{
			EmbeddingsPath: "./embeddings.npy",
			ProductIDsPath: "./product_ids.json",
			ProductsCSV:    "./products.csv",
		},
		Index: IndexConfig{Backend: IndexFlat, QdrantCollection: "products"},
		Recommend: RecommendConfig{
			DefaultK:            10,
			MaxK:                100,
			Policy:              string(filter.PolicyFallback),
			CandidateMultiplier: recall.DefaultCandidateMultiplier,
			MinCandidates:       recall.DefaultMinCandidates,
			Rank:                rank.DefaultWeights(),
			EventWeights:        recall.DefaultEventWeights(),
		},
		Cache: CacheConfig{
			Backend:      CacheAuto,
			RecommendTTL: 5 * time.Minute,
			ExplainTTL:   24 * time.Hour,
			Timeout:      time.Second,
		},
		EventLog: EventLogConfig{
			URL:     "http://localhost:5000",
			Timeout: 3 * time.Second,
		},
		LLM: explain.LLMConfig{
			Model:   explain.DefaultModel,
			Timeout: explain.DefaultTimeout,
		},
		Logging: logging.Config{Level: "info", Format: "json"},
	}
}

// Load 按 默认值 → 配置文件 → 环境变量 的顺序合并配置并校验。
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSecondsFields(k); err != nil {
		return nil, err
	}
	processSliceFields(k)

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		return p
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// envMappings 把环境变量（小写）映射到配置路径，兼容历史部署使用的变量名。
var envMappings = map[string]string{
	"embeddings_path":  "data.embeddings_path",
	"product_ids_path": "data.product_ids_path",
	"products_csv":     "data.products_csv",
	"pipeline_path":    "data.pipeline_path",

	"top_k":                "recommend.default_k",
	"max_k":                "recommend.max_k",
	"filter_policy":        "recommend.policy",
	"candidate_multiplier": "recommend.candidate_multiplier",
	"min_candidates":       "recommend.min_candidates",
	"exclude_ids":          "recommend.exclude_ids",
	"rank_alpha":           "recommend.rank.alpha",
	"rank_beta":            "recommend.rank.beta",
	"rank_gamma":           "recommend.rank.gamma",

	"index_backend":     "index.backend",
	"qdrant_addr":       "index.qdrant_addr",
	"qdrant_collection": "index.qdrant_collection",

	"cache_backend": "cache.backend",
	"redis_url":     "cache.redis_url",
	"badger_dir":    "cache.badger_dir",
	"recommend_ttl": "cache.recommend_ttl",
	"explain_ttl":   "cache.explain_ttl",

	"node_backend_url": "eventlog.url",
	"eventlog_timeout": "eventlog.timeout",

	"openai_api_key":  "llm.api_key",
	"openai_model":    "llm.model",
	"openai_base_url": "llm.base_url",

	"http_addr":  "server.addr",
	"log_level":  "logging.level",
	"log_format": "logging.format",
}

// envTransformFunc 返回空串的变量会被忽略。
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

// secondsFields 历史上以整数秒配置（RECOMMEND_TTL=300），纯数字按秒解释。
var secondsFields = []string{
	"cache.recommend_ttl",
	"cache.explain_ttl",
	"cache.timeout",
	"eventlog.timeout",
	"llm.timeout",
}

func processSecondsFields(k *koanf.Koanf) error {
	for _, key := range secondsFields {
		s, ok := k.Get(key).(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if n, err := strconv.Atoi(s); err == nil {
			if err := k.Set(key, time.Duration(n)*time.Second); err != nil {
				return fmt.Errorf("failed to set %s: %w", key, err)
			}
		}
	}
	return nil
}

// processSliceFields 把逗号分隔的环境变量拆成列表。
func processSliceFields(k *koanf.Koanf) {
	for _, key := range []string{"recommend.exclude_ids"} {
		s, ok := k.Get(key).(string)
		if !ok {
			continue
		}
		var out []string
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		_ = k.Set(key, out)
	}
}

// Validate 校验配置取值。
func (c *Config) Validate() error {
	var errs []error
	if c.Recommend.DefaultK <= 0 {
		errs = append(errs, fmt.Errorf("recommend.default_k must be positive, got %d", c.Recommend.DefaultK))
	}
	if c.Recommend.MaxK < c.Recommend.DefaultK {
		errs = append(errs, fmt.Errorf("recommend.max_k (%d) must be >= default_k (%d)", c.Recommend.MaxK, c.Recommend.DefaultK))
	}
	if _, ok := filter.ParsePolicy(c.Recommend.Policy); !ok {
		errs = append(errs, fmt.Errorf("recommend.policy must be fallback or strict, got %q", c.Recommend.Policy))
	}
	if err := c.Recommend.Rank.Validate(); err != nil {
		errs = append(errs, err)
	}
	switch c.Index.Backend {
	case IndexFlat:
	case IndexQdrant:
		if c.Index.QdrantAddr == "" {
			errs = append(errs, errors.New("index.qdrant_addr is required for the qdrant backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("index.backend must be flat or qdrant, got %q", c.Index.Backend))
	}
	switch c.Cache.Resolved() {
	case CacheNone, CacheMemory, CacheBadger:
	case CacheRedis:
		if c.Cache.RedisURL == "" {
			errs = append(errs, errors.New("cache.redis_url is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("cache.backend must be none, memory, redis or badger, got %q", c.Cache.Backend))
	}
	if c.Data.ProductsCSV == "" {
		errs = append(errs, errors.New("data.products_csv is required"))
	}
	return errors.Join(errs...)
}
