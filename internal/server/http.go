package server

import (
	v1 "moodmap-go/api/moodmap/v1"
	"moodmap-go/internal/conf"
	"moodmap-go/internal/service"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware"
	"github.com/go-kratos/kratos/v2/middleware/logging"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport/http"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 编码相关逻辑已拆分到 encoders.go

// NewHTTPServer new an HTTP server.
func NewHTTPServer(c *conf.Server, moodmap *service.MoodMapService, logger log.Logger) *http.Server {
	mws := []middleware.Middleware{
		recovery.Recovery(),
		logging.Server(logger),
	}
	if c.Http.RateLimit > 0 {
		mws = append(mws, limiterMiddleware(newLimiter(c.Http.RateLimit)))
	}
	var opts = []http.ServerOption{
		http.Middleware(mws...),
		http.ResponseEncoder(func(w http.ResponseWriter, r *http.Request, v any) error {
			if r != nil {
				switch r.URL.Query().Get("format") {
				case "geojson":
					return encodeGeoJSON(w, r, v)
				case "xml":
					return encodeXML(w, r, v)
				}
			}
			return http.DefaultResponseEncoder(w, r, v)
		}),
		http.RequestDecoder(http.DefaultRequestDecoder),
	}
	if c.Http.Network != "" {
		opts = append(opts, http.Network(c.Http.Network))
	}
	if c.Http.Addr != "" {
		opts = append(opts, http.Address(c.Http.Addr))
	}
	if c.Http.Timeout != nil {
		opts = append(opts, http.Timeout(c.Http.Timeout.AsDuration()))
	}
	srv := http.NewServer(opts...)
	v1.RegisterMoodMapServiceHTTPServer(srv, moodmap)
	srv.HandleFunc("/v1/stream", moodmap.ServeStream)
	srv.Handle("/metrics", promhttp.Handler())
	return srv
}
