package server

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/rushteam/shopsense/core"
	"github.com/rushteam/shopsense/engine"
	"github.com/rushteam/shopsense/logging"
)

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.svc.Health())
}

// recommend: GET /recommend?user_id=&k=&filter_category=&min_price=&max_price=&expr=
func (s *Server) recommend(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	userID := q.Get("user_id")
	if userID == "" {
		s.writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	k, err := optionalInt(q.Get("k"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	f, err := parseFilters(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := s.svc.Recommend(r.Context(), engine.Request{
		UserID:   userID,
		K:        k,
		Category: f.category,
		MinPrice: f.minPrice,
		MaxPrice: f.maxPrice,
		Expr:     q.Get("expr"),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// explain: GET /explain?user_id=&product_id=&filter_category=&min_price=&max_price=
func (s *Server) explain(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	userID, productID := q.Get("user_id"), q.Get("product_id")
	if userID == "" || productID == "" {
		s.writeError(w, http.StatusBadRequest, "user_id and product_id are required")
		return
	}
	f, err := parseFilters(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := s.svc.Explain(r.Context(), engine.ExplainRequest{
		UserID:    userID,
		ProductID: productID,
		Category:  f.category,
		MinPrice:  f.minPrice,
		MaxPrice:  f.maxPrice,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) product(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.Product(chi.URLParam(r, "productID"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, p)
}

func (s *Server) sessionSummary(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.svc.SessionSummary(r.Context(), chi.URLParam(r, "sessionID")))
}

type filters struct {
	category string
	minPrice *float64
	maxPrice *float64
}

// parseFilters 读取类目与价格参数。类目参数兼容 filter_category 与 category 两种写法。
func parseFilters(r *http.Request) (filters, error) {
	q := r.URL.Query()
	f := filters{category: strings.TrimSpace(q.Get("filter_category"))}
	if f.category == "" {
		f.category = strings.TrimSpace(q.Get("category"))
	}
	var err error
	if f.minPrice, err = optionalFloat("min_price", q.Get("min_price")); err != nil {
		return f, err
	}
	if f.maxPrice, err = optionalFloat("max_price", q.Get("max_price")); err != nil {
		return f, err
	}
	return f, nil
}

func optionalInt(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	k, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("k must be an integer, got %q", raw)
	}
	return k, nil
}

func optionalFloat(name, raw string) (*float64, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("%s must be a finite number, got %q", name, raw)
	}
	return &v, nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		s.logger.Debug().Err(err).Msg("failed to write JSON response")
	}
}

type errorBody struct {
	Detail string `json:"detail"`
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorBody{Detail: msg})
}

// writeDomainError NOT_FOUND → 404，INVALID_INPUT → 400，其余 → 500。
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case core.IsNotFound(err):
		s.writeError(w, http.StatusNotFound, err.Error())
	case core.IsInvalidInput(err):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, r.Context().Err()) && r.Context().Err() != nil:
		// 客户端已断开
	default:
		l := logging.Ctx(r.Context(), s.logger)
		l.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		s.writeError(w, http.StatusInternalServerError, "internal error")
	}
}
