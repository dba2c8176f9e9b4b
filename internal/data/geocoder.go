package data

import (
	"context"
	"fmt"
	"io"
	"iter"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"moodmap-go/internal/biz"
	"moodmap-go/internal/conf"
	"moodmap-go/internal/metrics"
	"moodmap-go/pkg/geo"

	"github.com/eko/gocache/lib/v4/store"
	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
)

const (
	geocodeCachePrefix = "moodmap:geocode:"
	maxResponseBytes   = 4 << 20
	idPrecision        = 4
)

// statusError 非 2xx 响应。
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("geocoder returned HTTP %d", e.code)
}

// nominatimRecord /search?format=jsonv2 的单条记录，仅取用到的字段。
type nominatimRecord struct {
	PlaceID     json.RawMessage `json:"place_id"`
	Lat         json.RawMessage `json:"lat"`
	Lon         json.RawMessage `json:"lon"`
	DisplayName string          `json:"display_name"`
	Category    string          `json:"category"`
	Class       string          `json:"class"`
	Type        string          `json:"type"`
}

// NewSearchRepo 基于 Nominatim 兼容 HTTP 接口的检索仓库。
func NewSearchRepo(d *Data, logger log.Logger) biz.SearchRepo {
	return &searchRepo{data: d, conf: d.conf.Geocoder, log: log.NewHelper(logger)}
}

type searchRepo struct {
	data *Data
	conf *conf.Data_Geocoder
	log  *log.Helper
}

// SearchPlaces 首次遍历时才发起请求；序列只能遍历一次。
func (r *searchRepo) SearchPlaces(ctx context.Context, p biz.SearchParams) iter.Seq[biz.Place] {
	var used atomic.Bool
	return func(yield func(biz.Place) bool) {
		if !used.CompareAndSwap(false, true) {
			return
		}
		body, err := r.fetch(ctx, "/search", r.searchValues(p))
		if err != nil {
			if ctx.Err() == nil {
				r.log.WithContext(ctx).Warnw("msg", "geocoder search failed", "q", p.Q, "bounded", p.Bounded,
					"err", biz.ErrGeocoderTransport.WithCause(err))
			}
			return
		}
		for place := range r.decode(ctx, body, p.Q) {
			if !yield(place) {
				return
			}
		}
	}
}

// Geocode 手动定位，取最佳匹配。
func (r *searchRepo) Geocode(ctx context.Context, query string) (*biz.Place, error) {
	v := url.Values{}
	v.Set("q", query)
	v.Set("format", "jsonv2")
	v.Set("limit", "1")
	body, err := r.fetch(ctx, "/search", v)
	if err != nil {
		return nil, biz.ErrManualLookupTransport.WithCause(err)
	}
	for place := range r.decode(ctx, body, query) {
		return &place, nil
	}
	return nil, biz.ErrManualLookupNoMatch
}

func (r *searchRepo) searchValues(p biz.SearchParams) url.Values {
	limit := p.Limit
	if limit <= 0 {
		limit = r.conf.ResultLimit
	}
	v := url.Values{}
	v.Set("q", p.Q)
	v.Set("format", "jsonv2")
	v.Set("limit", strconv.Itoa(limit))
	v.Set("addressdetails", "1")
	v.Set("extratags", "1")
	if p.Bounded {
		v.Set("bounded", "1")
	} else {
		v.Set("bounded", "0")
	}
	if p.ViewBox != nil {
		v.Set("viewbox", p.ViewBox.ViewBox())
	}
	return v
}

// fetch 缓存 → 限流 → 熔断 → HTTP。
func (r *searchRepo) fetch(ctx context.Context, path string, q url.Values) ([]byte, error) {
	endpoint := strings.TrimRight(r.conf.BaseURL, "/") + path + "?" + q.Encode()
	key := geocodeCachePrefix + endpoint
	if v, err := r.data.cache.Get(ctx, key); err == nil {
		if b, ok := v.([]byte); ok {
			metrics.GeocoderRequests.WithLabelValues("cached").Inc()
			return b, nil
		}
	}

	if err := r.data.limiter.Wait(ctx); err != nil {
		metrics.GeocoderRequests.WithLabelValues("rejected").Inc()
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	begin := time.Now()
	body, err := r.data.breaker.Execute(func() ([]byte, error) {
		return r.do(ctx, endpoint)
	})
	metrics.GeocoderDuration.Observe(time.Since(begin).Seconds())
	if err != nil {
		var se *statusError
		switch {
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			metrics.GeocoderRequests.WithLabelValues("rejected").Inc()
		case errors.As(err, &se):
			metrics.GeocoderRequests.WithLabelValues("http_error").Inc()
		default:
			metrics.GeocoderRequests.WithLabelValues("transport_error").Inc()
		}
		return nil, err
	}
	metrics.GeocoderRequests.WithLabelValues("ok").Inc()

	if ttl := r.conf.CacheTTL.AsDuration(); ttl > 0 {
		if err := r.data.cache.Set(ctx, key, body, store.WithExpiration(ttl)); err != nil {
			r.log.WithContext(ctx).Debugf("geocode cache set failed: %v", err)
		}
	}
	return body, nil
}

func (r *searchRepo) do(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", r.conf.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := r.data.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocoder request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &statusError{code: resp.StatusCode}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read geocoder body: %w", err)
	}
	return body, nil
}

// decode 非数组响应视为零结果；坐标缺失或非数值的记录被丢弃。
func (r *searchRepo) decode(ctx context.Context, body []byte, term string) iter.Seq[biz.Place] {
	return func(yield func(biz.Place) bool) {
		var raws []json.RawMessage
		if err := json.Unmarshal(body, &raws); err != nil {
			r.log.WithContext(ctx).Debugf("geocoder response for %q is not an array: %v", term, err)
			return
		}
		for i, raw := range raws {
			place, err := toPlace(raw, term, i)
			if err != nil {
				metrics.MalformedRecords.Inc()
				r.log.WithContext(ctx).Debugw("msg", "dropping geocoder record", "q", term, "index", i, "err", err)
				continue
			}
			if !yield(place) {
				return
			}
		}
	}
}

func toPlace(raw json.RawMessage, term string, index int) (biz.Place, error) {
	var rec nominatimRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return biz.Place{}, biz.ErrMalformedRecord.WithCause(err)
	}
	lat, okLat := parseCoordinate(rec.Lat)
	lng, okLng := parseCoordinate(rec.Lon)
	if !okLat || !okLng {
		return biz.Place{}, biz.ErrMalformedRecord
	}
	pos := geo.Coordinate{Lat: lat, Lng: lng}

	name := strings.TrimSpace(strings.SplitN(rec.DisplayName, ",", 2)[0])
	if name == "" {
		name = fmt.Sprintf("%s %d", term, index+1)
	}
	id := strings.Trim(strings.TrimSpace(string(rec.PlaceID)), `"`)
	if id == "" || id == "null" {
		id = geo.RoundKey(pos, idPrecision)
	}
	category := rec.Category
	if category == "" {
		category = rec.Class
	}
	return biz.Place{
		ID:          id,
		Name:        name,
		Description: rec.DisplayName,
		Category:    category,
		Type:        rec.Type,
		Position:    pos,
	}, nil
}

// parseCoordinate 兼容字符串与数字两种编码。
func parseCoordinate(raw json.RawMessage) (float64, bool) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return 0, false
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return 0, false
		}
		s = strings.TrimSpace(str)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
