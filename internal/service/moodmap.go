package service

import (
	"context"
	"time"

	v1 "moodmap-go/api/moodmap/v1"
	"moodmap-go/internal/biz"
	"moodmap-go/internal/data"
	"moodmap-go/pkg/geo"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
)

// Version 由构建时 -ldflags 注入。
var Version = "dev"

var serviceStartTime = time.Now()

// MoodMapService 实现 HTTP 入口，调用 biz 层。
type MoodMapService struct {
	log      *log.Helper
	sessions *biz.SessionManager
	data     *data.Data
	registry biz.SessionRegistry
}

func NewMoodMapService(logger log.Logger, sessions *biz.SessionManager, registry biz.SessionRegistry, data *data.Data) *MoodMapService {
	return &MoodMapService{log: log.NewHelper(logger), sessions: sessions, registry: registry, data: data}
}

func (s *MoodMapService) ListMoods(ctx context.Context, _ *v1.ListMoodsRequest) (*v1.ListMoodsReply, error) {
	catalog := s.sessions.Catalog()
	reply := &v1.ListMoodsReply{Default: string(catalog.Default())}
	for _, p := range catalog.Moods() {
		reply.Moods = append(reply.Moods, &v1.Mood{
			Name:        string(p.Mood),
			Keywords:    p.Keywords,
			Reason:      p.Reason,
			Description: p.Description,
		})
	}
	return reply, nil
}

func (s *MoodMapService) Recommend(ctx context.Context, req *v1.RecommendRequest) (*v1.ResultSet, error) {
	s.log.WithContext(ctx).Infof("Recommend lat=%f lng=%f mood=%s", req.Lat, req.Lng, req.Mood)
	reading, err := geo.NewLocationReading(req.Lat, req.Lng, req.Accuracy, time.Now())
	if err != nil {
		return nil, biz.ErrInvalidCoordinate.WithCause(err)
	}
	rs, err := s.sessions.Recommend(ctx, reading, req.Mood)
	if err != nil {
		return nil, err
	}
	return mapResultSet(rs), nil
}

func (s *MoodMapService) CreateSession(ctx context.Context, req *v1.CreateSessionRequest) (*v1.SessionReply, error) {
	sess, err := s.sessions.Create(ctx, req.SessionId)
	if err != nil {
		return nil, err
	}
	if req.Mood != "" {
		if _, err := sess.SetMood(ctx, req.Mood); err != nil && !errors.Is(err, biz.ErrCycleSuperseded) {
			return nil, err
		}
	}
	return mapSession(sess.Snapshot()), nil
}

func (s *MoodMapService) GetSession(ctx context.Context, req *v1.GetSessionRequest) (*v1.SessionReply, error) {
	sess, err := s.sessions.Get(req.Id)
	if err != nil {
		return nil, err
	}
	return mapSession(sess.Snapshot()), nil
}

// UpdateLocation 设备读数同步触发一个周期；失败码仅更新定位状态。
func (s *MoodMapService) UpdateLocation(ctx context.Context, req *v1.UpdateLocationRequest) (*v1.SessionReply, error) {
	sess, err := s.sessions.Get(req.Id)
	if err != nil {
		return nil, err
	}
	if req.Error != "" {
		sess.ReportFailure(req.Error)
		return mapSession(sess.Snapshot()), nil
	}
	ts := time.Now()
	if req.Timestamp > 0 {
		ts = time.UnixMilli(req.Timestamp)
	}
	reading, err := geo.NewLocationReading(req.Lat, req.Lng, req.Accuracy, ts)
	if err != nil {
		return nil, biz.ErrInvalidCoordinate.WithCause(err)
	}
	if _, err := sess.UpdateLocation(ctx, reading); err != nil && !errors.Is(err, biz.ErrCycleSuperseded) {
		return nil, err
	}
	return mapSession(sess.Snapshot()), nil
}

func (s *MoodMapService) UpdateMood(ctx context.Context, req *v1.UpdateMoodRequest) (*v1.SessionReply, error) {
	sess, err := s.sessions.Get(req.Id)
	if err != nil {
		return nil, err
	}
	if _, err := sess.SetMood(ctx, req.Mood); err != nil && !errors.Is(err, biz.ErrCycleSuperseded) {
		return nil, err
	}
	return mapSession(sess.Snapshot()), nil
}

func (s *MoodMapService) Lookup(ctx context.Context, req *v1.LookupRequest) (*v1.SessionReply, error) {
	sess, err := s.sessions.Get(req.Id)
	if err != nil {
		return nil, err
	}
	if _, err := sess.ResolveManual(ctx, req.Query); err != nil && !errors.Is(err, biz.ErrCycleSuperseded) {
		return nil, err
	}
	return mapSession(sess.Snapshot()), nil
}

// Refresh 等待设备经 websocket 或 PUT location 回应一次定位。
func (s *MoodMapService) Refresh(ctx context.Context, req *v1.RefreshRequest) (*v1.SessionReply, error) {
	sess, err := s.sessions.Get(req.Id)
	if err != nil {
		return nil, err
	}
	if _, err := sess.Refresh(ctx); err != nil && !errors.Is(err, biz.ErrCycleSuperseded) {
		return nil, err
	}
	return mapSession(sess.Snapshot()), nil
}

func (s *MoodMapService) EndSession(ctx context.Context, req *v1.EndSessionRequest) (*v1.EndSessionReply, error) {
	if err := s.sessions.End(ctx, req.Id); err != nil {
		return nil, err
	}
	return &v1.EndSessionReply{}, nil
}

func (s *MoodMapService) Status(ctx context.Context, _ *v1.StatusRequest) (*v1.StatusReply, error) {
	uptime := time.Since(serviceStartTime).Round(time.Second).String()
	geocoder := "unknown"
	if s.data != nil {
		geocoder = s.data.GeocoderState()
	}
	active := 0
	if s.registry != nil {
		active = s.registry.Count()
	}
	return &v1.StatusReply{Version: Version, Uptime: uptime, Geocoder: geocoder, ActiveSessions: active}, nil
}

func mapResultSet(rs *biz.ResultSet) *v1.ResultSet {
	if rs == nil {
		return nil
	}
	out := &v1.ResultSet{
		CycleId:     rs.CycleID,
		Mood:        string(rs.Mood),
		Reason:      rs.Reason,
		CenterLat:   rs.Center.Lat,
		CenterLng:   rs.Center.Lng,
		RadiusKm:    rs.RadiusKm,
		Fallback:    rs.Fallback,
		GeneratedAt: rs.GeneratedAt.UTC().Format(time.RFC3339),
		Places:      make([]*v1.Place, 0, len(rs.Places)),
		Stats: &v1.CycleStats{
			Keywords:   rs.Stats.Keywords,
			Queries:    rs.Stats.Queries,
			RawHits:    rs.Stats.RawHits,
			Duplicates: rs.Stats.Duplicates,
			OutOfRange: rs.Stats.OutOfRange,
		},
	}
	for _, p := range rs.Places {
		out.Places = append(out.Places, &v1.Place{
			Id:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Category:    p.Category,
			Type:        p.Type,
			Lat:         p.Position.Lat,
			Lng:         p.Position.Lng,
			DistanceKm:  p.DistanceKm,
			Reason:      p.Reason,
			IsFallback:  p.IsFallback,
		})
	}
	return out
}

func mapLocation(st biz.LocationStatus) *v1.LocationStatus {
	out := &v1.LocationStatus{
		State:    string(st.State),
		Tier:     string(st.Tier),
		Message:  st.Message,
		Note:     st.Note,
		Accuracy: st.Accuracy,
		Error:    st.Error,
	}
	if !st.UpdatedAt.IsZero() {
		out.UpdatedAt = st.UpdatedAt.UTC().Format(time.RFC3339)
	}
	if r := st.Reading; r != nil {
		lat, lng := r.Lat, r.Lng
		out.Lat, out.Lng = &lat, &lng
		out.RadiusKm = st.RadiusKm
	}
	return out
}

func mapSession(snap biz.SessionSnapshot) *v1.SessionReply {
	return &v1.SessionReply{
		Id:        snap.ID,
		Mood:      string(snap.Mood),
		Location:  mapLocation(snap.Location),
		Results:   mapResultSet(snap.Results),
		CreatedAt: snap.CreatedAt.UTC().Format(time.RFC3339),
	}
}
