package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rushteam/shopsense/config"
	"github.com/rushteam/shopsense/core"
)

const catalogCSV = `product_id,title,brand,normalized_top_category,price,image
p1,Tee,Acme,apparel,100,tee.png
p2,Lamp,,home,abc,lamp.png
p3,Mug,Lumo,home,50,
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func testConfig(t *testing.T, vectors, ids string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Data.ProductsCSV = writeFile(t, dir, "products.csv", catalogCSV)
	cfg.Data.EmbeddingsPath = filepath.Join(dir, "embeddings.json")
	cfg.Data.ProductIDsPath = filepath.Join(dir, "product_ids.json")
	if vectors != "" {
		writeFile(t, dir, "embeddings.json", vectors)
	}
	if ids != "" {
		writeFile(t, dir, "product_ids.json", ids)
	}
	cfg.Cache.Backend = config.CacheMemory
	cfg.EventLog.URL = ""
	return cfg
}

func TestLoad(t *testing.T) {
	cfg := testConfig(t, `[[1,0],[0,1],[0.5,0.5]]`, `["p1","p2","p3"]`)
	e, err := Load(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Load 失败: %v", err)
	}
	defer e.Close()

	h := e.Health()
	if !h.IndexLoaded || h.TotalProducts != 3 {
		t.Errorf("Health 错误: %+v", h)
	}
	p, err := e.Product("p2")
	if err != nil || p.Price != 0 || p.Brand != "" || p.Attributes["image"] != "lamp.png" {
		t.Errorf("目录解析错误: %v %+v", err, p)
	}

	resp, err := e.Recommend(context.Background(), Request{UserID: "u", K: 2, Events: viewed("p1")})
	if err != nil || ids(resp.Results) != "p1,p3" {
		t.Errorf("加载后推荐错误: %v %+v", err, resp)
	}
}

const strictPipelineYAML = `pipeline:
  nodes:
    - type: recall.ann
    - type: filter.hydrate
    - type: filter.constraint
      config:
        policy: strict
    - type: rank.weighted
    - type: rerank.topn
`

func TestLoad_PolicyFollowsPipelineNode(t *testing.T) {
	tests := []struct {
		name     string
		pipeline string
		want     string
	}{
		{"default pipeline uses recommend.policy", "", "p1"},
		{"yaml strict node overrides recommend.policy", strictPipelineYAML, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t, `[[1,0],[0,1],[0.5,0.5]]`, `["p1","p2","p3"]`)
			cfg.Recommend.Policy = "fallback"
			if tt.pipeline != "" {
				cfg.Data.PipelinePath = writeFile(t, t.TempDir(), "pipeline.yaml", tt.pipeline)
			}
			e, err := Load(context.Background(), cfg)
			if err != nil {
				t.Fatalf("Load 失败: %v", err)
			}
			defer e.Close()

			// 只看过 home 类目，请求 apparel：strict 下直接返回空
			resp, err := e.Recommend(context.Background(), Request{UserID: "u", K: 1, Category: "apparel", Events: viewed("p3")})
			if err != nil {
				t.Fatalf("Recommend 失败: %v", err)
			}
			if got := ids(resp.Results); got != tt.want {
				t.Errorf("结果 %q，期望 %q", got, tt.want)
			}
		})
	}
}

func TestLoad_MissingEmbeddingsStartsNotReady(t *testing.T) {
	cfg := testConfig(t, "", "")
	e, err := Load(context.Background(), cfg)
	if err != nil {
		t.Fatalf("缺少向量产物时应照常启动: %v", err)
	}
	defer e.Close()
	if e.Ready() {
		t.Error("缺少向量产物时不应 Ready")
	}
	resp, err := e.Recommend(context.Background(), Request{UserID: "u", Events: viewed("p1")})
	if err != nil || len(resp.Results) != 0 {
		t.Errorf("应返回空结果: %v %+v", err, resp)
	}
}

func TestLoad_Fatal(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *config.Config)
		check  func(err error) bool
	}{
		{
			name:   "row mismatch",
			mutate: func(cfg *config.Config) { writeFile(t, filepath.Dir(cfg.Data.ProductIDsPath), "product_ids.json", `["p1","p2"]`) },
			check:  core.IsDataInconsistency,
		},
		{
			name:   "missing catalog",
			mutate: func(cfg *config.Config) { cfg.Data.ProductsCSV = filepath.Join(t.TempDir(), "nope.csv") },
			check:  func(err error) bool { return err != nil },
		},
		{
			name: "missing column",
			mutate: func(cfg *config.Config) {
				cfg.Data.ProductsCSV = writeFile(t, t.TempDir(), "bad.csv", "product_id,title\np1,Tee\n")
			},
			check: core.IsDataInconsistency,
		},
		{
			name:   "unknown pipeline node",
			mutate: func(cfg *config.Config) { cfg.Data.PipelinePath = writeFile(t, t.TempDir(), "p.yaml", "pipeline:\n  nodes:\n    - type: rank.lr\n") },
			check:  func(err error) bool { return err != nil },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t, `[[1,0],[0,1],[0.5,0.5]]`, `["p1","p2","p3"]`)
			tt.mutate(cfg)
			e, err := Load(context.Background(), cfg)
			if e != nil {
				_ = e.Close()
			}
			if err == nil || !tt.check(err) {
				t.Errorf("期望启动失败，得到 %v", err)
			}
		})
	}
}

func TestNewCacheStore(t *testing.T) {
	tests := []struct {
		backend string
		wantNil bool
		name    string
	}{
		{backend: config.CacheNone, wantNil: true},
		{backend: config.CacheMemory, name: "memory"},
		{backend: config.CacheBadger, name: "badger"},
		{backend: config.CacheAuto, name: "memory"},
	}
	for _, tt := range tests {
		s, err := NewCacheStore(config.CacheConfig{Backend: tt.backend})
		if err != nil {
			t.Fatalf("%q: %v", tt.backend, err)
		}
		if tt.wantNil {
			if s != nil {
				t.Errorf("%q 应不使用缓存", tt.backend)
			}
			continue
		}
		if s.Name() != tt.name {
			t.Errorf("%q: 后端 = %s, want %s", tt.backend, s.Name(), tt.name)
		}
		_ = s.Close()
	}

	if _, err := NewCacheStore(config.CacheConfig{Backend: config.CacheRedis, RedisURL: "://bad"}); err == nil {
		t.Error("非法 redis url 应报错")
	}
}
