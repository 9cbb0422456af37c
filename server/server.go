// Package server 是引擎的 HTTP 接口（chi 路由 + JSON）。
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/rushteam/shopsense/core"
	"github.com/rushteam/shopsense/engine"
	"github.com/rushteam/shopsense/logging"
	"github.com/rushteam/shopsense/metrics"
)

// Service 是 HTTP 层依赖的引擎能力，由 *engine.Engine 实现。
type Service interface {
	Recommend(ctx context.Context, req engine.Request) (*engine.RecommendResponse, error)
	Explain(ctx context.Context, req engine.ExplainRequest) (*engine.ExplainResponse, error)
	Product(id string) (*core.Product, error)
	SessionSummary(ctx context.Context, sessionID string) *engine.SessionSummary
	Health() engine.Health
}

var _ Service = (*engine.Engine)(nil)

// Server 持有路由与依赖。
type Server struct {
	svc    Service
	logger zerolog.Logger
}

func New(svc Service, logger zerolog.Logger) *Server {
	return &Server{svc: svc, logger: logger}
}

// Handler 返回完整路由。
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(requestID())
	r.Use(chimiddleware.Recoverer)
	r.Use(s.observe())

	r.Get("/health", s.health)
	r.Get("/recommend", s.recommend)
	r.Get("/explain", s.explain)
	r.Get("/product/{productID}", s.product)
	r.Get("/session_summary/{sessionID}", s.sessionSummary)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// requestID 沿用请求头中的 X-Request-ID，没有则生成，并写入 context 供日志使用。
func requestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		chiRequestID := chimiddleware.RequestID(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(chimiddleware.RequestIDHeader)
			if id == "" {
				id = logging.GenerateRequestID()
				r.Header.Set(chimiddleware.RequestIDHeader, id)
			}
			w.Header().Set(chimiddleware.RequestIDHeader, id)
			ctx := logging.ContextWithRequestID(r.Context(), id)
			chiRequestID.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// observe 记录访问日志与接口指标；endpoint 使用路由模板，避免商品 ID 造成高基数。
func (s *Server) observe() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			endpoint := r.URL.Path
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				endpoint = rc.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			d := time.Since(start)
			metrics.RecordAPIRequest(r.Method, endpoint, status, d)

			l := logging.Ctx(r.Context(), s.logger)
			l.Debug().
				Str("method", r.Method).
				Str("endpoint", endpoint).
				Int("status", status).
				Dur("duration", d).
				Msg("http request")
		})
	}
}
