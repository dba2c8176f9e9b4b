package data

import (
	"net/http"
	"time"

	"github.com/fatih/color"
)

// slowHook 记录耗时超过阈值的地理编码请求。
type slowHook struct {
	next      http.RoundTripper
	threshold time.Duration
}

func (h *slowHook) RoundTrip(req *http.Request) (*http.Response, error) {
	begin := time.Now()
	resp, err := h.next.RoundTrip(req)
	d := time.Since(begin)
	if h.threshold > 0 && d > h.threshold {
		color.Red("%v slow geocode: %s %s .took: %s\n", time.Now().Format(time.RFC3339), req.Method, req.URL.Redacted(), d)
	}
	return resp, err
}
