package data

import (
	"time"

	"moodmap-go/internal/biz"
	"moodmap-go/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
	gocache "github.com/patrickmn/go-cache"
)

// NewSessionRegistry 存活会话表；会话闲置超过 TTL 或被删除时关闭。
func NewSessionRegistry(c *conf.Data, logger log.Logger) (biz.SessionRegistry, func()) {
	helper := log.NewHelper(logger)
	ttl := c.Session.TTL.AsDuration()
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	items := gocache.New(ttl, time.Minute)
	items.OnEvicted(func(id string, v any) {
		if s, ok := v.(*biz.Session); ok {
			helper.Infof("session %s evicted", id)
			s.Close()
		}
	})
	cleanup := func() {
		for id := range items.Items() {
			items.Delete(id)
		}
	}
	return &sessionRegistry{items: items, ttl: ttl}, cleanup
}

type sessionRegistry struct {
	items *gocache.Cache
	ttl   time.Duration
}

func (r *sessionRegistry) Put(s *biz.Session) {
	r.items.Set(s.ID(), s, r.ttl)
}

// Get 命中时续期。
func (r *sessionRegistry) Get(id string) (*biz.Session, bool) {
	v, ok := r.items.Get(id)
	if !ok {
		return nil, false
	}
	r.items.Set(id, v, r.ttl)
	return v.(*biz.Session), true
}

// Touch 仅续期仍存活的会话，已过期的不会被复活。
func (r *sessionRegistry) Touch(id string) {
	if v, ok := r.items.Get(id); ok {
		r.items.Set(id, v, r.ttl)
	}
}

func (r *sessionRegistry) Delete(id string) {
	r.items.Delete(id)
}

func (r *sessionRegistry) Count() int {
	return r.items.ItemCount()
}
