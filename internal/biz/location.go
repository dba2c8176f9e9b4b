package biz

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"moodmap-go/pkg/geo"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
)

// LocationState 定位状态机。
type LocationState string

const (
	StateAwaitingPermission  LocationState = "awaiting_permission"
	StateWatching            LocationState = "watching"
	StateRefining            LocationState = "refining"
	StateManualLookupPending LocationState = "manual_lookup_pending"
	StateManualResolved      LocationState = "manual_resolved"
	StateError               LocationState = "error"
)

// AccuracyTier 面向用户的精度档位，仅用于提示文案。
type AccuracyTier string

const (
	TierUnknown     AccuracyTier = "unknown"
	TierPrecise     AccuracyTier = "precise"
	TierApproximate AccuracyTier = "approximate"
	TierRough       AccuracyTier = "rough"
)

const (
	preciseMaxMeters     = 50
	approximateMaxMeters = 150
	quietNoteMaxMeters   = 75
)

// ClassifyAccuracy ≤50m precise，≤150m approximate，其余 rough。
func ClassifyAccuracy(accuracy *float64) AccuracyTier {
	switch {
	case accuracy == nil:
		return TierUnknown
	case *accuracy <= preciseMaxMeters:
		return TierPrecise
	case *accuracy <= approximateMaxMeters:
		return TierApproximate
	default:
		return TierRough
	}
}

// StatusText 读数对应的提示。
func StatusText(accuracy *float64) string {
	switch ClassifyAccuracy(accuracy) {
	case TierPrecise:
		return "Precise location locked (±50 m)."
	case TierApproximate:
		return fmt.Sprintf("Approximate location (±%d m).", int(math.Round(*accuracy)))
	case TierRough:
		return "Location is rough. Try retrying GPS or enter a city manually."
	default:
		return "Location found. Waiting for improved accuracy…"
	}
}

// DeviceError 将设备上报的失败码映射为错误，未知码视为无法读取 GPS。
func DeviceError(code string) error {
	switch strings.ToLower(strings.TrimSpace(code)) {
	case "1", "permission_denied", "denied":
		return ErrPermissionDenied
	case "2", "position_unavailable", "unavailable":
		return ErrPositionUnavailable
	case "3", "timeout":
		return ErrLocationTimeout
	case "unsupported":
		return ErrUnsupported
	default:
		return errors.New(503, ReasonUnavailable, "We could not read GPS. Enter a location manually.")
	}
}

// PositionUpdate 定位源推送的一次更新，Err 非空表示失败。
type PositionUpdate struct {
	Reading geo.LocationReading
	Err     error
}

// LocationSource 设备定位源。
type LocationSource interface {
	// CurrentPosition 单次定位，受 ctx 超时约束。
	CurrentPosition(ctx context.Context) (geo.LocationReading, error)
	// Watch 持续订阅，ctx 结束时关闭通道。
	Watch(ctx context.Context) (<-chan PositionUpdate, error)
}

// DeviceSource 由外部（websocket/HTTP）推送读数的定位源。
type DeviceSource struct {
	mu      sync.Mutex
	watches map[chan PositionUpdate]struct{}
	waiters []chan PositionUpdate
	closed  bool
}

func NewDeviceSource() *DeviceSource {
	return &DeviceSource{watches: make(map[chan PositionUpdate]struct{})}
}

// Push 分发给所有订阅者与等待中的单次定位；订阅者缓冲满时丢弃该更新。
func (s *DeviceSource) Push(u PositionUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	for ch := range s.watches {
		select {
		case ch <- u:
		default:
		}
	}
	for _, w := range s.waiters {
		w <- u
	}
	s.waiters = nil
}

func (s *DeviceSource) CurrentPosition(ctx context.Context) (geo.LocationReading, error) {
	w := make(chan PositionUpdate, 1)
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return geo.LocationReading{}, ErrUnsupported
	}
	s.waiters = append(s.waiters, w)
	s.mu.Unlock()

	select {
	case u := <-w:
		return u.Reading, u.Err
	case <-ctx.Done():
		s.dropWaiter(w)
		return geo.LocationReading{}, ErrLocationTimeout
	}
}

func (s *DeviceSource) dropWaiter(w chan PositionUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.waiters {
		if c == w {
			s.waiters = append(s.waiters[:i], s.waiters[i+1:]...)
			return
		}
	}
}

func (s *DeviceSource) Watch(ctx context.Context) (<-chan PositionUpdate, error) {
	ch := make(chan PositionUpdate, 16)
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrUnsupported
	}
	s.watches[ch] = struct{}{}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		if _, ok := s.watches[ch]; ok {
			delete(s.watches, ch)
			close(ch)
		}
		s.mu.Unlock()
	}()
	return ch, nil
}

// Close 关闭所有订阅。
func (s *DeviceSource) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for ch := range s.watches {
		delete(s.watches, ch)
		close(ch)
	}
	for _, w := range s.waiters {
		w <- PositionUpdate{Err: ErrUnsupported}
	}
	s.waiters = nil
}

// StaticSource 固定读数或固定错误，CLI 与测试使用。
type StaticSource struct {
	Reading geo.LocationReading
	Err     error
}

func (s StaticSource) CurrentPosition(ctx context.Context) (geo.LocationReading, error) {
	if err := ctx.Err(); err != nil {
		return geo.LocationReading{}, ErrLocationTimeout
	}
	return s.Reading, s.Err
}

func (s StaticSource) Watch(ctx context.Context) (<-chan PositionUpdate, error) {
	ch := make(chan PositionUpdate, 1)
	ch <- PositionUpdate{Reading: s.Reading, Err: s.Err}
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}

// LocationStatus 面向调用方的定位状态快照。
type LocationStatus struct {
	State     LocationState        `json:"state"`
	Tier      AccuracyTier         `json:"tier"`
	Message   string               `json:"message"`
	Note      string               `json:"note,omitempty"`
	Accuracy  *float64             `json:"accuracy,omitempty"`
	Reading   *geo.LocationReading `json:"reading,omitempty"`
	RadiusKm  float64              `json:"radius_km,omitempty"` // 当前读数对应的检索半径
	Error     string               `json:"error,omitempty"`     // 错误原因，可重试
	UpdatedAt time.Time            `json:"updated_at"`
}

// LocationTracker 管理单个会话的定位：持续订阅、单次刷新、手动定位与读数缓存。
type LocationTracker struct {
	sessionID string
	source    LocationSource
	search    *SearchUsecase
	store     SessionStore
	radius    func(*geo.LocationReading) float64
	timeout   time.Duration
	log       *log.Helper
	now       func() time.Time

	mu        sync.RWMutex
	state     LocationState
	watching  bool
	current   *geo.LocationReading
	message   string
	lastErr   error
	updatedAt time.Time
	onStatus  func(LocationStatus)
}

// TrackerOption 可选项。
type TrackerOption func(*LocationTracker)

// WithPositionTimeout 单次定位超时，默认 12s。
func WithPositionTimeout(d time.Duration) TrackerOption {
	return func(t *LocationTracker) {
		if d > 0 {
			t.timeout = d
		}
	}
}

// WithRadius 提示文案中使用的半径推导。
func WithRadius(fn func(*geo.LocationReading) float64) TrackerOption {
	return func(t *LocationTracker) { t.radius = fn }
}

// WithStatusListener 状态变化回调，必须非阻塞。
func WithStatusListener(fn func(LocationStatus)) TrackerOption {
	return func(t *LocationTracker) { t.onStatus = fn }
}

func NewLocationTracker(sessionID string, source LocationSource, search *SearchUsecase, store SessionStore, logger log.Logger, opts ...TrackerOption) *LocationTracker {
	t := &LocationTracker{
		sessionID: sessionID,
		source:    source,
		search:    search,
		store:     store,
		radius:    geo.DeriveSearchRadiusKm,
		timeout:   12 * time.Second,
		log:       log.NewHelper(log.With(logger, "session", sessionID)),
		now:       time.Now,
		state:     StateAwaitingPermission,
		message:   "Requesting location…",
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Restore 读取会话缓存中的上次读数作为初始值，首个新读数到达后即被替换。
func (t *LocationTracker) Restore(ctx context.Context) (geo.LocationReading, bool) {
	if t.store == nil {
		return geo.LocationReading{}, false
	}
	r, err := t.store.LoadLocation(ctx, t.sessionID)
	if err != nil {
		t.log.WithContext(ctx).Warnf("failed to read cached location: %v", err)
		return geo.LocationReading{}, false
	}
	if r == nil || !r.Valid() {
		return geo.LocationReading{}, false
	}
	t.mu.Lock()
	if t.current == nil {
		t.current = r
		t.message = StatusText(r.Accuracy)
		t.updatedAt = t.now()
	}
	t.mu.Unlock()
	t.emit()
	return *r, true
}

// Start 订阅定位源；每个发生变化的读数回调 onReading。ctx 结束即停止订阅。
func (t *LocationTracker) Start(ctx context.Context, onReading func(geo.LocationReading)) error {
	if t.source == nil {
		t.fail(ctx, ErrUnsupported)
		return ErrUnsupported
	}
	ch, err := t.source.Watch(ctx)
	if err != nil {
		t.fail(ctx, err)
		return err
	}
	t.mu.Lock()
	t.watching = true
	t.mu.Unlock()

	go func() {
		defer func() {
			t.mu.Lock()
			t.watching = false
			t.mu.Unlock()
		}()
		for u := range ch {
			if u.Err != nil {
				t.fail(ctx, u.Err)
				continue
			}
			if t.Accept(ctx, u.Reading) && onReading != nil {
				onReading(u.Reading)
			}
		}
	}()
	return nil
}

// Refresh 单次定位，成功时等同于 Accept。
func (t *LocationTracker) Refresh(ctx context.Context) (geo.LocationReading, bool, error) {
	if t.source == nil {
		t.fail(ctx, ErrUnsupported)
		return geo.LocationReading{}, false, ErrUnsupported
	}
	t.setState(StateRefining, "Requesting location…")
	cctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	r, err := t.source.CurrentPosition(cctx)
	if err != nil {
		t.fail(ctx, err)
		return geo.LocationReading{}, false, err
	}
	changed := t.Accept(ctx, r)
	return r, changed, nil
}

// Accept 仅当经纬度或精度变化时替换当前读数，并写入会话缓存。
func (t *LocationTracker) Accept(ctx context.Context, r geo.LocationReading) bool {
	if !r.Valid() {
		t.fail(ctx, ErrInvalidCoordinate)
		return false
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = t.now()
	}
	t.mu.Lock()
	t.updatedAt = t.now()
	t.state = StateWatching
	t.lastErr = nil
	t.message = StatusText(r.Accuracy)
	changed := t.current == nil || !t.current.SameFix(r)
	if changed {
		t.current = &r
	}
	t.mu.Unlock()

	if changed {
		t.persist(ctx, r)
	}
	t.emit()
	return changed
}

// ResolveManual 通过地理编码服务把自由文本解析为坐标（精度未知）。失败时保留上次读数。
func (t *LocationTracker) ResolveManual(ctx context.Context, query string) (geo.LocationReading, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		t.fail(ctx, ErrManualLookupEmpty)
		return geo.LocationReading{}, ErrManualLookupEmpty
	}
	t.setState(StateManualLookupPending, "Finding that spot…")
	p, err := t.search.Lookup(ctx, query)
	if err != nil {
		if !IsLocationError(err) {
			err = ErrManualLookupTransport.WithCause(err)
		}
		t.fail(ctx, err)
		return geo.LocationReading{}, err
	}
	r, err := geo.NewLocationReading(p.Position.Lat, p.Position.Lng, nil, t.now())
	if err != nil {
		err = ErrManualLookupNoMatch.WithCause(err)
		t.fail(ctx, err)
		return geo.LocationReading{}, err
	}

	t.mu.Lock()
	t.current = &r
	t.state = StateManualResolved
	t.message = "Manual location applied."
	t.lastErr = nil
	t.updatedAt = t.now()
	t.mu.Unlock()

	t.persist(ctx, r)
	t.emit()
	return r, nil
}

// Current 当前读数。
func (t *LocationTracker) Current() (geo.LocationReading, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.current == nil {
		return geo.LocationReading{}, false
	}
	return *t.current, true
}

// Status 状态快照。
func (t *LocationTracker) Status() LocationStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	st := LocationStatus{
		State:     t.state,
		Tier:      TierUnknown,
		Message:   t.message,
		UpdatedAt: t.updatedAt,
	}
	if t.lastErr != nil {
		if e := errors.FromError(t.lastErr); e != nil {
			st.Error = e.Reason
		}
	}
	if t.current != nil {
		r := *t.current
		st.Reading = &r
		st.Accuracy = r.Accuracy
		st.Tier = ClassifyAccuracy(r.Accuracy)
		st.RadiusKm = t.radius(&r)
		st.Note = t.noteLocked(r)
	}
	return st
}

// noteLocked 精度较差时附加说明，包含放宽后的检索半径。
func (t *LocationTracker) noteLocked(r geo.LocationReading) string {
	if r.Accuracy == nil {
		if t.state == StateManualResolved {
			return "Use the map controls to fine-tune this manual spot if needed."
		}
		return "Browser provided an approximate location via network lookup."
	}
	switch {
	case *r.Accuracy <= quietNoteMaxMeters:
		return ""
	case *r.Accuracy <= approximateMaxMeters:
		return "Location within roughly ±150 meters."
	default:
		return fmt.Sprintf("Location is approximate. We widened search to ~%d km. Retry GPS or enter a specific city for better results.",
			int(math.Round(t.radius(&r))))
	}
}

func (t *LocationTracker) setState(s LocationState, msg string) {
	t.mu.Lock()
	t.state = s
	t.message = msg
	t.updatedAt = t.now()
	t.mu.Unlock()
	t.emit()
}

// fail 记录错误并进入 Error 状态；已有读数保持不变。
func (t *LocationTracker) fail(ctx context.Context, err error) {
	msg := err.Error()
	if e := errors.FromError(err); e != nil {
		msg = e.Message
	}
	t.log.WithContext(ctx).Warnw("msg", "location failure", "err", err)
	t.mu.Lock()
	t.state = StateError
	t.lastErr = err
	t.message = msg
	t.updatedAt = t.now()
	t.mu.Unlock()
	t.emit()
}

func (t *LocationTracker) persist(ctx context.Context, r geo.LocationReading) {
	if t.store == nil {
		return
	}
	if err := t.store.SaveLocation(ctx, t.sessionID, r); err != nil {
		t.log.WithContext(ctx).Warnf("failed to persist location: %v", err)
	}
}

func (t *LocationTracker) emit() {
	if t.onStatus != nil {
		t.onStatus(t.Status())
	}
}
