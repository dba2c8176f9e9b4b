package data

import (
	"io"
	"testing"
	"time"

	"moodmap-go/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
)

func testConf(baseURL string) *conf.Data {
	c := conf.Default().Data
	c.Geocoder.BaseURL = baseURL
	c.Geocoder.RateLimit = 0
	c.Geocoder.Timeout = conf.NewDuration(2 * time.Second)
	return c
}

func newTestData(t *testing.T, c *conf.Data) *Data {
	t.Helper()
	d, cleanup, err := NewData(c, log.NewStdLogger(io.Discard))
	if err != nil {
		t.Fatalf("NewData: %v", err)
	}
	t.Cleanup(cleanup)
	return d
}
