package biz

import (
	"context"
	"sync"
	"time"

	"moodmap-go/internal/conf"
	"moodmap-go/internal/metrics"
	"moodmap-go/pkg/geo"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// Selection 会话缓存的心情与对应检索半径。
type Selection struct {
	Mood     Mood    `json:"mood"`
	RadiusKm float64 `json:"radius_km"`
}

// SessionStore 会话级缓存，进程内、随会话过期，不做持久化。
type SessionStore interface {
	SaveLocation(ctx context.Context, sessionID string, r geo.LocationReading) error
	// LoadLocation 不存在时返回 nil, nil。
	LoadLocation(ctx context.Context, sessionID string) (*geo.LocationReading, error)
	SaveSelection(ctx context.Context, sessionID string, s Selection) error
	// LoadSelection 不存在时返回 nil, nil。
	LoadSelection(ctx context.Context, sessionID string) (*Selection, error)
	Clear(ctx context.Context, sessionID string) error
}

// SessionRegistry 存活会话表，闲置超过 TTL 过期；过期或删除时需调用 Session.Close。
type SessionRegistry interface {
	Put(s *Session)
	Get(id string) (*Session, bool)
	// Touch 延长存活会话的 TTL，会话不存在时不做任何事。
	Touch(id string)
	Delete(id string)
	Count() int
}

// EventType 推送事件类型。
type EventType string

const (
	EventResults EventType = "results"
	EventStatus  EventType = "status"
)

// Event 推送给订阅者的一条事件。
type Event struct {
	Type    EventType       `json:"type"`
	Results *ResultSet      `json:"results,omitempty"`
	Status  *LocationStatus `json:"status,omitempty"`
}

// SessionSnapshot 会话只读视图。
type SessionSnapshot struct {
	ID        string         `json:"id"`
	Mood      Mood           `json:"mood"`
	Location  LocationStatus `json:"location"`
	Results   *ResultSet     `json:"results,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Session 一个用户会话：当前心情、定位与最近一次发布的推荐结果。
type Session struct {
	id        string
	catalog   *MoodCatalog
	store     SessionStore
	pipeline  *Pipeline
	tracker   *LocationTracker
	source    *DeviceSource
	log       *log.Helper
	createdAt time.Time

	ctx    context.Context
	cancel context.CancelFunc
	touch  func()

	mu   sync.RWMutex
	mood Mood
	subs map[chan Event]struct{}

	closeOnce sync.Once
}

func (s *Session) ID() string {
	return s.id
}

// Mood 当前心情。
func (s *Session) Mood() Mood {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mood
}

// Touch 标记会话仍在使用，推迟过期。
func (s *Session) Touch() {
	if s.touch != nil {
		s.touch()
	}
}

// Done 会话关闭后返回的通道关闭。
func (s *Session) Done() <-chan struct{} {
	return s.ctx.Done()
}

// start 恢复缓存并开始订阅设备定位；有缓存读数时立即跑一个周期。
func (s *Session) start(ctx context.Context) {
	if sel, err := s.store.LoadSelection(ctx, s.id); err != nil {
		s.log.WithContext(ctx).Warnf("failed to read cached selection: %v", err)
	} else if sel != nil {
		s.mu.Lock()
		s.mood = s.catalog.Normalize(string(sel.Mood))
		s.mu.Unlock()
	}

	_, restored := s.tracker.Restore(ctx)
	if err := s.tracker.Start(s.ctx, func(geo.LocationReading) { s.recomputeAsync() }); err != nil {
		s.log.WithContext(ctx).Warnf("location watch not started: %v", err)
	}
	if restored {
		s.recomputeAsync()
	}
}

// SetMood 切换心情；心情有效变化且已有位置时重新计算。
func (s *Session) SetMood(ctx context.Context, mood string) (*ResultSet, error) {
	s.Touch()
	next := s.catalog.Normalize(mood)
	s.mu.Lock()
	changed := next != s.mood
	s.mood = next
	s.mu.Unlock()

	if !changed {
		if rs := s.pipeline.Current(); rs != nil {
			return rs, nil
		}
	}
	s.saveSelection(ctx, next, 0)
	return s.recompute(ctx)
}

// UpdateLocation 直接提交一个读数；读数未变化时返回当前结果。
func (s *Session) UpdateLocation(ctx context.Context, r geo.LocationReading) (*ResultSet, error) {
	s.Touch()
	if !r.Valid() {
		return nil, ErrInvalidCoordinate
	}
	if !s.tracker.Accept(ctx, r) {
		if rs := s.pipeline.Current(); rs != nil {
			return rs, nil
		}
	}
	return s.recompute(ctx)
}

// PushFix 设备推送的读数，进入订阅循环。
func (s *Session) PushFix(r geo.LocationReading) {
	s.Touch()
	s.source.Push(PositionUpdate{Reading: r})
}

// ReportFailure 设备推送的失败码。
func (s *Session) ReportFailure(code string) {
	s.Touch()
	s.source.Push(PositionUpdate{Err: DeviceError(code)})
}

// ResolveManual 手动定位后重新计算；失败时保留上次读数与结果。
func (s *Session) ResolveManual(ctx context.Context, query string) (*ResultSet, error) {
	s.Touch()
	if _, err := s.tracker.ResolveManual(ctx, query); err != nil {
		return nil, err
	}
	return s.recompute(ctx)
}

// Refresh 请求一次新的设备定位，等待设备通过 PushFix 回应。
func (s *Session) Refresh(ctx context.Context) (*ResultSet, error) {
	s.Touch()
	_, changed, err := s.tracker.Refresh(ctx)
	if err != nil {
		return nil, err
	}
	if !changed {
		if rs := s.pipeline.Current(); rs != nil {
			return rs, nil
		}
	}
	return s.recompute(ctx)
}

// Snapshot 当前状态。
func (s *Session) Snapshot() SessionSnapshot {
	return SessionSnapshot{
		ID:        s.id,
		Mood:      s.Mood(),
		Location:  s.tracker.Status(),
		Results:   s.pipeline.Current(),
		CreatedAt: s.createdAt,
	}
}

// Subscribe 订阅推送；返回的函数取消订阅。订阅者消费过慢时事件被丢弃。
func (s *Session) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 8)
	s.mu.Lock()
	if s.subs == nil {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	s.subs[ch] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if _, ok := s.subs[ch]; ok {
				delete(s.subs, ch)
				close(ch)
			}
		})
	}
}

// Close 结束会话：放弃进行中的周期并关闭所有订阅。
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		s.pipeline.Abandon()
		s.source.Close()
		s.mu.Lock()
		for ch := range s.subs {
			close(ch)
		}
		s.subs = nil
		s.mu.Unlock()
		metrics.ActiveSessions.Dec()
		s.log.Info("session closed")
	})
}

func (s *Session) broadcast(e Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for ch := range s.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// recompute 以当前读数与心情跑一个周期；尚无读数时返回 nil, nil。
func (s *Session) recompute(ctx context.Context) (*ResultSet, error) {
	reading, ok := s.tracker.Current()
	if !ok {
		return nil, nil
	}
	mood := s.Mood()
	rs, err := s.pipeline.Submit(ctx, CycleInput{Reading: reading, Profile: s.catalog.ProfileFor(string(mood))})
	if err != nil {
		return nil, err
	}
	s.saveSelection(ctx, mood, rs.RadiusKm)
	return rs, nil
}

func (s *Session) recomputeAsync() {
	go func() {
		if _, err := s.recompute(s.ctx); err != nil && s.ctx.Err() == nil {
			s.log.Debugf("background cycle ended: %v", err)
		}
	}()
}

func (s *Session) saveSelection(ctx context.Context, mood Mood, radiusKm float64) {
	if err := s.store.SaveSelection(ctx, s.id, Selection{Mood: mood, RadiusKm: radiusKm}); err != nil {
		s.log.WithContext(ctx).Warnf("failed to persist selection: %v", err)
	}
}

// SessionManager 创建、查找与结束会话。
type SessionManager struct {
	catalog   *MoodCatalog
	search    *SearchUsecase
	recommend *RecommendUsecase
	store     SessionStore
	registry  SessionRegistry
	timeout   time.Duration
	logger    log.Logger
	log       *log.Helper
}

func NewSessionManager(catalog *MoodCatalog, search *SearchUsecase, recommend *RecommendUsecase,
	store SessionStore, registry SessionRegistry, c *conf.Recommend, logger log.Logger) *SessionManager {
	return &SessionManager{
		catalog:   catalog,
		search:    search,
		recommend: recommend,
		store:     store,
		registry:  registry,
		timeout:   c.GetPositionTimeout(),
		logger:    logger,
		log:       log.NewHelper(logger),
	}
}

// Create 新建会话；id 为空时生成。已存在的 id 直接返回原会话。
func (m *SessionManager) Create(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		id = uuid.NewString()
	} else if s, ok := m.registry.Get(id); ok {
		return s, nil
	}

	logger := log.With(m.logger, "session", id)
	sctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s := &Session{
		id:        id,
		catalog:   m.catalog,
		store:     m.store,
		source:    NewDeviceSource(),
		log:       log.NewHelper(logger),
		createdAt: time.Now(),
		ctx:       sctx,
		cancel:    cancel,
		mood:      m.catalog.Default(),
		subs:      make(map[chan Event]struct{}),
	}
	s.touch = func() { m.registry.Touch(id) }
	s.pipeline = NewPipeline(m.recommend, logger, func(rs *ResultSet) {
		s.broadcast(Event{Type: EventResults, Results: rs})
	})
	s.tracker = NewLocationTracker(id, s.source, m.search, m.store, m.logger,
		WithPositionTimeout(m.timeout),
		WithRadius(m.recommend.SearchRadiusKm),
		WithStatusListener(func(st LocationStatus) {
			s.broadcast(Event{Type: EventStatus, Status: &st})
		}),
	)

	m.registry.Put(s)
	metrics.ActiveSessions.Inc()
	s.start(ctx)
	m.log.WithContext(ctx).Infof("session %s created", id)
	return s, nil
}

// Get 查找存活会话。
func (m *SessionManager) Get(id string) (*Session, error) {
	s, ok := m.registry.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// End 结束会话并清理缓存。
func (m *SessionManager) End(ctx context.Context, id string) error {
	s, ok := m.registry.Get(id)
	if !ok {
		return ErrSessionNotFound
	}
	m.registry.Delete(id)
	s.Close()
	if err := m.store.Clear(ctx, id); err != nil {
		m.log.WithContext(ctx).Warnf("failed to clear session cache: %v", err)
	}
	return nil
}

// Recommend 无会话的一次性推荐。
func (m *SessionManager) Recommend(ctx context.Context, r geo.LocationReading, mood string) (*ResultSet, error) {
	if !r.Valid() {
		return nil, ErrInvalidCoordinate
	}
	return m.recommend.Aggregate(ctx, CycleInput{Reading: r, Profile: m.catalog.ProfileFor(mood)})
}

// Catalog 心情目录。
func (m *SessionManager) Catalog() *MoodCatalog {
	return m.catalog
}

// Lookup 无会话的手动定位。
func (m *SessionManager) Lookup(ctx context.Context, query string) (*Place, error) {
	return m.search.Lookup(ctx, query)
}
