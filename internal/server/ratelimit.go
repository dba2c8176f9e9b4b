package server

import (
	"context"
	"math"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/middleware"
	"golang.org/x/time/rate"
)

// ErrRateLimited 超出服务端限流。
var ErrRateLimited = errors.New(429, "RATE_LIMIT", "rate limit exceeded")

// newLimiter 令牌桶，容量为两秒的配额。
func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		rps = 1
	}
	return rate.NewLimiter(rate.Limit(rps), int(math.Max(1, math.Ceil(rps*2))))
}

// limiterMiddleware 将限流应用到 HTTP 请求
func limiterMiddleware(l *rate.Limiter) middleware.Middleware {
	return func(next middleware.Handler) middleware.Handler {
		return func(ctx context.Context, req interface{}) (reply interface{}, err error) {
			if !l.Allow() {
				return nil, ErrRateLimited
			}
			return next(ctx, req)
		}
	}
}
