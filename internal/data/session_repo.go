package data

import (
	"context"
	"fmt"
	"time"

	"moodmap-go/internal/biz"
	"moodmap-go/pkg/geo"

	"github.com/eko/gocache/lib/v4/store"
	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/goccy/go-json"
)

const (
	lastLocationKey = "moodmap:lastLocation:"
	lastMoodKey     = "moodmap:lastMood:"
)

// NewSessionRepo 会话缓存，值以 JSON 编码存入进程内缓存并随会话 TTL 过期。
func NewSessionRepo(d *Data, logger log.Logger) biz.SessionStore {
	return &sessionRepo{data: d, ttl: d.conf.Session.TTL.AsDuration(), log: log.NewHelper(logger)}
}

type sessionRepo struct {
	data *Data
	ttl  time.Duration
	log  *log.Helper
}

func (r *sessionRepo) SaveLocation(ctx context.Context, sessionID string, reading geo.LocationReading) error {
	return r.set(ctx, lastLocationKey+sessionID, reading)
}

func (r *sessionRepo) LoadLocation(ctx context.Context, sessionID string) (*geo.LocationReading, error) {
	var reading geo.LocationReading
	ok, err := r.get(ctx, lastLocationKey+sessionID, &reading)
	if err != nil || !ok {
		return nil, err
	}
	return &reading, nil
}

func (r *sessionRepo) SaveSelection(ctx context.Context, sessionID string, s biz.Selection) error {
	return r.set(ctx, lastMoodKey+sessionID, s)
}

func (r *sessionRepo) LoadSelection(ctx context.Context, sessionID string) (*biz.Selection, error) {
	var s biz.Selection
	ok, err := r.get(ctx, lastMoodKey+sessionID, &s)
	if err != nil || !ok {
		return nil, err
	}
	return &s, nil
}

func (r *sessionRepo) Clear(ctx context.Context, sessionID string) error {
	for _, key := range []string{lastLocationKey + sessionID, lastMoodKey + sessionID} {
		if err := r.data.cache.Delete(ctx, key); err != nil && !errors.Is(err, store.NotFound{}) {
			return fmt.Errorf("delete %s: %w", key, err)
		}
	}
	return nil
}

func (r *sessionRepo) set(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	var opts []store.Option
	if r.ttl > 0 {
		opts = append(opts, store.WithExpiration(r.ttl))
	}
	return r.data.cache.Set(ctx, key, b, opts...)
}

// get 不存在时返回 false, nil；损坏的缓存值视为不存在。
func (r *sessionRepo) get(ctx context.Context, key string, dst any) (bool, error) {
	v, err := r.data.cache.Get(ctx, key)
	if err != nil {
		if errors.Is(err, store.NotFound{}) {
			return false, nil
		}
		return false, fmt.Errorf("get %s: %w", key, err)
	}
	b, ok := v.([]byte)
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(b, dst); err != nil {
		r.log.WithContext(ctx).Warnf("discarding corrupt cache value %s: %v", key, err)
		return false, nil
	}
	return true, nil
}
