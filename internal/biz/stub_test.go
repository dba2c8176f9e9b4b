package biz

import (
	"context"
	"io"
	"iter"
	"sync"
	"time"

	"moodmap-go/internal/conf"
	"moodmap-go/pkg/geo"

	"github.com/go-kratos/kratos/v2/log"
)

var (
	testLogger = log.NewStdLogger(io.Discard)
	testNow    = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
)

// stubRepo 按 (关键词, bounded) 返回固定结果，记录调用顺序。
type stubRepo struct {
	mu        sync.Mutex
	results   map[string][]Place // key: term 或 term+"|city"
	all       []Place            // 未命中 results 时返回
	calls     []SearchParams
	block     chan struct{} // 非空时 SearchPlaces 等待关闭或 ctx 取消
	hangAfter int           // 大于 0 时，第 hangAfter 次之后的检索挂起直到 ctx 结束
	geocode   func(query string) (*Place, error)
}

func (s *stubRepo) SearchPlaces(ctx context.Context, p SearchParams) iter.Seq[Place] {
	return func(yield func(Place) bool) {
		s.mu.Lock()
		s.calls = append(s.calls, p)
		block := s.block
		hang := s.hangAfter > 0 && len(s.calls) > s.hangAfter
		key := p.Q
		if !p.Bounded {
			key += "|city"
		}
		out, ok := s.results[key]
		if !ok {
			out = s.all
		}
		out = append([]Place(nil), out...)
		s.mu.Unlock()

		if hang {
			<-ctx.Done()
			return
		}
		if block != nil {
			select {
			case <-block:
			case <-ctx.Done():
				return
			}
		}
		for _, pl := range out {
			if !yield(pl) {
				return
			}
		}
	}
}

func (s *stubRepo) Geocode(ctx context.Context, query string) (*Place, error) {
	if s.geocode != nil {
		return s.geocode(query)
	}
	return nil, ErrManualLookupNoMatch
}

func (s *stubRepo) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func (s *stubRepo) setBlock(ch chan struct{}) {
	s.mu.Lock()
	s.block = ch
	s.mu.Unlock()
}

// waitCalls 等待至少 n 次检索调用。
func (s *stubRepo) waitCalls(t interface{ Fatalf(string, ...any) }, n int) {
	deadline := time.Now().Add(2 * time.Second)
	for s.callCount() < n {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d search calls, got %d", n, s.callCount())
		}
		time.Sleep(time.Millisecond)
	}
}

func newTestRecommend(repo SearchRepo, c *conf.Recommend) *RecommendUsecase {
	return NewRecommendUsecase(NewSearchUsecase(repo, testLogger), c, testLogger)
}

func placeAt(id string, lat, lng float64) Place {
	return Place{ID: id, Name: id, Position: geo.Coordinate{Lat: lat, Lng: lng}}
}

func readingAt(lat, lng float64, acc *float64) geo.LocationReading {
	r, err := geo.NewLocationReading(lat, lng, acc, testNow)
	if err != nil {
		panic(err)
	}
	return r
}

func ptr(v float64) *float64 { return &v }

// memStore 进程内 SessionStore。
type memStore struct {
	mu        sync.Mutex
	locations map[string]geo.LocationReading
	selection map[string]Selection
}

func newMemStore() *memStore {
	return &memStore{locations: map[string]geo.LocationReading{}, selection: map[string]Selection{}}
}

func (m *memStore) SaveLocation(_ context.Context, id string, r geo.LocationReading) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locations[id] = r
	return nil
}

func (m *memStore) LoadLocation(_ context.Context, id string) (*geo.LocationReading, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.locations[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (m *memStore) SaveSelection(_ context.Context, id string, s Selection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.selection[id] = s
	return nil
}

func (m *memStore) LoadSelection(_ context.Context, id string) (*Selection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.selection[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *memStore) Clear(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locations, id)
	delete(m.selection, id)
	return nil
}

// memRegistry 进程内 SessionRegistry。
type memRegistry struct {
	mu      sync.Mutex
	items   map[string]*Session
	touches map[string]int
}

func newMemRegistry() *memRegistry {
	return &memRegistry{items: map[string]*Session{}, touches: map[string]int{}}
}

func (r *memRegistry) Put(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[s.ID()] = s
}

func (r *memRegistry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.items[id]
	return s, ok
}

func (r *memRegistry) Touch(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; ok {
		r.touches[id]++
	}
}

func (r *memRegistry) touched(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.touches[id]
}

func (r *memRegistry) Delete(id string) {
	r.mu.Lock()
	s, ok := r.items[id]
	delete(r.items, id)
	r.mu.Unlock()
	if ok {
		s.Close()
	}
}

func (r *memRegistry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}
