// Package breaker 用 gobreaker 包装上游调用，并同步熔断状态到日志与指标。
package breaker

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/rushteam/shopsense/logging"
	"github.com/rushteam/shopsense/metrics"
)

// Settings 熔断参数。
type Settings struct {
	Name string

	// MaxRequests 半开状态允许的并发探测数
	MaxRequests uint32
	// Interval 关闭状态下清零计数的周期
	Interval time.Duration
	// Timeout 打开状态持续多久后进入半开
	Timeout time.Duration
	// MinRequests 统计窗口内至少多少次请求才评估失败率
	MinRequests uint32
	// FailureRatio 失败率达到该值时打开
	FailureRatio float64
}

// DefaultSettings 最少 5 次请求、失败率 ≥ 60% 时打开，30 秒后半开。
func DefaultSettings(name string) Settings {
	return Settings{
		Name:         name,
		MaxRequests:  3,
		Interval:     time.Minute,
		Timeout:      30 * time.Second,
		MinRequests:  5,
		FailureRatio: 0.6,
	}
}

// Breaker 是带观测的熔断器。
type Breaker[T any] struct {
	cb   *gobreaker.CircuitBreaker[T]
	name string
	log  zerolog.Logger
}

// New 创建熔断器。调用方主动取消（context.Canceled）不计为失败。
func New[T any](s Settings) *Breaker[T] {
	log := logging.Component("breaker").With().Str("breaker", s.Name).Logger()
	metrics.CircuitBreakerState.WithLabelValues(s.Name).Set(0)

	cb := gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < s.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= s.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	return &Breaker[T]{cb: cb, name: s.Name, log: log}
}

// Execute 通过熔断器执行 fn。熔断打开时不调用 fn，直接返回 gobreaker.ErrOpenState。
func (b *Breaker[T]) Execute(fn func() (T, error)) (T, error) {
	out, err := b.cb.Execute(fn)
	switch {
	case err == nil:
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
	case IsRejected(err):
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
	default:
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
	}
	return out, err
}

// State 返回当前状态。
func (b *Breaker[T]) State() gobreaker.State {
	return b.cb.State()
}

// IsRejected 判断错误是否为熔断拒绝（打开或半开并发超限）。
func IsRejected(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
