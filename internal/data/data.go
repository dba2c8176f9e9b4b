package data

import (
	"net/http"
	"time"

	"moodmap-go/internal/conf"

	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/store/go_cache/v4"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
	gocache "github.com/patrickmn/go-cache"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

// ProviderSet is data providers.
var ProviderSet = wire.NewSet(
	NewData,
	NewSearchRepo,
	NewSessionRepo,
	NewSessionRegistry,
)

// Data 外部依赖：地理编码 HTTP 客户端与进程内缓存。
type Data struct {
	conf    *conf.Data
	client  *http.Client
	cache   cache.CacheInterface[any]
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[[]byte]
}

// Cache 返回缓存客户端
func (d *Data) Cache() cache.CacheInterface[any] {
	return d.cache
}

// HTTPClient 返回地理编码客户端
func (d *Data) HTTPClient() *http.Client {
	return d.client
}

// NewData .
func NewData(c *conf.Data, logger log.Logger) (*Data, func(), error) {
	helper := log.NewHelper(logger)
	g := c.Geocoder

	goCache := gocache.New(g.CacheTTL.AsDuration(), 10*time.Minute)
	store := go_cache.NewGoCache(goCache)
	cacheManager := cache.New[any](store)

	limit := rate.Inf
	if g.RateLimit > 0 {
		limit = rate.Limit(g.RateLimit)
	}
	burst := g.Burst
	if burst < 1 {
		burst = 1
	}

	client := &http.Client{
		Timeout:   g.Timeout.AsDuration(),
		Transport: &slowHook{next: http.DefaultTransport, threshold: g.SlowThreshold.AsDuration()},
	}

	data := &Data{
		conf:    c,
		client:  client,
		cache:   cacheManager,
		limiter: rate.NewLimiter(limit, burst),
		breaker: newBreaker("geocoder", g.Breaker, helper),
	}
	cleanup := func() {
		helper.Info("closing the data resources")
		client.CloseIdleConnections()
		goCache.Flush()
	}
	return data, cleanup, nil
}

// GeocoderState 地理编码熔断器状态。
func (d *Data) GeocoderState() string {
	return stateToString(d.breaker.State())
}
