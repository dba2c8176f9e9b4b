package data

import (
	"context"
	"time"

	"moodmap-go/internal/conf"
	"moodmap-go/internal/metrics"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	gobreaker "github.com/sony/gobreaker/v2"
)

// newBreaker 失败率达到阈值且请求数足够时断开，Timeout 后半开试探。
func newBreaker(name string, c *conf.Data_Breaker, helper *log.Helper) *gobreaker.CircuitBreaker[[]byte] {
	var (
		maxRequests  uint32 = 3
		interval            = time.Minute
		timeout             = 30 * time.Second
		minRequests  uint32 = 10
		failureRatio        = 0.6
	)
	if c != nil {
		if c.MaxRequests > 0 {
			maxRequests = c.MaxRequests
		}
		if d := c.Interval.AsDuration(); d > 0 {
			interval = d
		}
		if d := c.Timeout.AsDuration(); d > 0 {
			timeout = d
		}
		if c.MinRequests > 0 {
			minRequests = c.MinRequests
		}
		if c.FailureRatio > 0 {
			failureRatio = c.FailureRatio
		}
	}

	metrics.BreakerState.WithLabelValues(name).Set(0)
	return gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        name,
		MaxRequests: maxRequests,
		Interval:    interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < minRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			if ratio >= failureRatio {
				helper.Warnf("circuit breaker %s opening: %d/%d failed", name, counts.TotalFailures, counts.Requests)
				return true
			}
			return false
		},
		// 调用方取消不计入失败
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			helper.Infof("circuit breaker %s: %s -> %s", name, stateToString(from), stateToString(to))
			metrics.BreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
