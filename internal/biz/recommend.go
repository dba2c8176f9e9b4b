package biz

import (
	"context"
	"errors"
	"time"

	"moodmap-go/internal/conf"
	"moodmap-go/pkg/geo"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// CycleState 一个推荐周期的状态。
type CycleState int

const (
	CycleIdle CycleState = iota
	CycleSearching
	CycleFiltering
	CycleEmpty
	CycleFallback
	CycleDone
	CycleAbandoned
)

func (s CycleState) String() string {
	switch s {
	case CycleIdle:
		return "idle"
	case CycleSearching:
		return "searching"
	case CycleFiltering:
		return "filtering"
	case CycleEmpty:
		return "empty"
	case CycleFallback:
		return "fallback"
	case CycleDone:
		return "done"
	case CycleAbandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

// RecommendConfig 推荐链路常量。
type RecommendConfig struct {
	MaxResults       int              // K
	PrimaryRadiusKm  float64          // R1
	CityRadiusFactor float64          // R2 = R1 * factor
	FallbackCount    int              // 兜底地点数上限
	DedupePrecision  int              // 去重坐标小数位
	Radius           geo.RadiusPolicy // Rmax 策略
}

// DefaultRecommendConfig K=20, R1=6km, R2=30km。
func DefaultRecommendConfig() RecommendConfig {
	return RecommendConfig{
		MaxResults:       20,
		PrimaryRadiusKm:  6,
		CityRadiusFactor: 5,
		FallbackCount:    6,
		DedupePrecision:  4,
		Radius:           geo.DefaultRadiusPolicy(),
	}
}

// NewRecommendConfig 由配置文件构造，缺省项使用默认值。
func NewRecommendConfig(c *conf.Recommend) RecommendConfig {
	rc := DefaultRecommendConfig()
	if c == nil {
		return rc
	}
	if c.MaxResults > 0 {
		rc.MaxResults = c.MaxResults
	}
	if c.PrimaryRadiusKm > 0 {
		rc.PrimaryRadiusKm = c.PrimaryRadiusKm
	}
	if c.CityRadiusFactor >= 1 {
		rc.CityRadiusFactor = c.CityRadiusFactor
	}
	if c.FallbackCount > 0 {
		rc.FallbackCount = c.FallbackCount
	}
	if c.DedupePrecision > 0 {
		rc.DedupePrecision = c.DedupePrecision
	}
	if r := c.Radius; r != nil {
		rc.Radius = geo.RadiusPolicy{
			NoAccuracyKm:  r.NoAccuracyKm,
			BaseKm:        r.BaseKm,
			AccuracyScale: r.AccuracyScale,
			MinKm:         r.MinKm,
			MaxKm:         r.MaxKm,
		}
	}
	return rc
}

// CityRadiusKm R2。
func (c RecommendConfig) CityRadiusKm() float64 {
	return c.PrimaryRadiusKm * c.CityRadiusFactor
}

// CycleInput 一个周期的全部输入。
type CycleInput struct {
	Reading geo.LocationReading
	Profile MoodProfile
}

// CycleStats 周期统计，便于排查结果偏少的原因。
type CycleStats struct {
	Keywords   int `json:"keywords"`     // 实际检索过的关键词数
	Queries    int `json:"queries"`      // 请求次数
	RawHits    int `json:"raw_hits"`     // 原始结果
	Duplicates int `json:"duplicates"`   // 去重丢弃
	OutOfRange int `json:"out_of_range"` // 超出 Rmax 丢弃
}

// ResultSet 一个周期产出的完整结果，发布后只读。
type ResultSet struct {
	CycleID     string         `json:"cycle_id"`
	Mood        Mood           `json:"mood"`
	Reason      string         `json:"reason"`
	Center      geo.Coordinate `json:"center"`
	RadiusKm    float64        `json:"radius_km"` // 本周期的 Rmax
	Places      []Place        `json:"places"`
	Fallback    bool           `json:"fallback"`
	GeneratedAt time.Time      `json:"generated_at"`
	Stats       CycleStats     `json:"stats"`
}

// RecommendUsecase 聚合引擎：多关键词、两级半径检索后去重、按距离过滤、必要时生成兜底地点。
type RecommendUsecase struct {
	search *SearchUsecase
	cfg    RecommendConfig
	log    *log.Helper
	now    func() time.Time
}

func NewRecommendUsecase(search *SearchUsecase, c *conf.Recommend, logger log.Logger) *RecommendUsecase {
	return &RecommendUsecase{
		search: search,
		cfg:    NewRecommendConfig(c),
		log:    log.NewHelper(logger),
		now:    time.Now,
	}
}

// Config 当前常量。
func (uc *RecommendUsecase) Config() RecommendConfig {
	return uc.cfg
}

// SearchRadiusKm 读数对应的 Rmax。
func (uc *RecommendUsecase) SearchRadiusKm(r *geo.LocationReading) float64 {
	return uc.cfg.Radius.SearchRadiusKm(r)
}

// Aggregate 执行一个完整周期。关键词与两级检索严格串行，累计数达到 K 即停止。
// ctx 被取消（周期被取代或调用方放弃）时返回 context.Cause(ctx)，不产出任何结果；
// ctx 仅超时则停止检索，用已收集的结果继续过滤，必要时生成兜底地点。
func (uc *RecommendUsecase) Aggregate(ctx context.Context, in CycleInput) (*ResultSet, error) {
	state := CycleIdle
	cycleID := uuid.NewString()
	logger := uc.log.WithContext(ctx)
	moveTo := func(next CycleState) {
		logger.Debugw("msg", "cycle transition", "cycle", cycleID, "from", state.String(), "to", next.String())
		state = next
	}

	center := in.Reading.Coordinate
	k := uc.cfg.MaxResults
	rmax := uc.cfg.Radius.SearchRadiusKm(&in.Reading)
	var (
		stats     CycleStats
		collected []Place
	)
	// collect 返回 false 表示 ctx 已结束，不再发起检索
	collect := func(p SearchParams) bool {
		if ctx.Err() != nil {
			return false
		}
		stats.Queries++
		for place := range uc.search.Search(ctx, p) {
			collected = append(collected, place)
			stats.RawHits++
		}
		return ctx.Err() == nil
	}

	moveTo(CycleSearching)
	for _, term := range dedupeKeywords(in.Profile.Keywords) {
		stats.Keywords++
		if !collect(BuildQuery(term, center, uc.cfg.PrimaryRadiusKm, true)) || len(collected) >= k {
			break
		}
		if !collect(BuildQuery(term, center, uc.cfg.CityRadiusKm(), false)) || len(collected) >= k {
			break
		}
	}
	if err := abandoned(ctx); err != nil {
		moveTo(CycleAbandoned)
		return nil, err
	}
	if ctx.Err() != nil {
		logger.Warnw("msg", "cycle deadline reached, keeping partial results", "cycle", cycleID, "queries", stats.Queries, "raw_hits", stats.RawHits)
	}

	moveTo(CycleFiltering)
	unique := dedupePlaces(collected, uc.cfg.DedupePrecision)
	stats.Duplicates = len(collected) - len(unique)
	kept := filterByDistance(unique, center, rmax, in.Profile.Reason)
	stats.OutOfRange = len(unique) - len(kept)

	fallback := false
	if len(kept) == 0 {
		moveTo(CycleEmpty)
		moveTo(CycleFallback)
		kept = fallbackPlaces(center, in.Profile.Reason, min(uc.cfg.FallbackCount, k), uc.cfg.DedupePrecision)
		fallback = true
	}
	if len(kept) > k {
		kept = kept[:k]
	}
	if err := abandoned(ctx); err != nil {
		moveTo(CycleAbandoned)
		return nil, err
	}
	moveTo(CycleDone)

	logger.Infow("msg", "cycle complete",
		"cycle", cycleID,
		"mood", string(in.Profile.Mood),
		"places", len(kept),
		"fallback", fallback,
		"radius_km", rmax,
		"queries", stats.Queries,
		"raw_hits", stats.RawHits,
	)
	return &ResultSet{
		CycleID:     cycleID,
		Mood:        in.Profile.Mood,
		Reason:      in.Profile.Reason,
		Center:      center,
		RadiusKm:    rmax,
		Places:      kept,
		Fallback:    fallback,
		GeneratedAt: uc.now(),
		Stats:       stats,
	}, nil
}

// abandoned 周期是否必须放弃。超时不算放弃：超时的检索只是没有贡献结果。
func abandoned(ctx context.Context) error {
	err := ctx.Err()
	if err == nil || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return context.Cause(ctx)
}

// dedupePlaces 按取整坐标去重，保留首次出现者并保持顺序。
func dedupePlaces(places []Place, precision int) []Place {
	seen := make(map[string]struct{}, len(places))
	out := make([]Place, 0, len(places))
	for _, p := range places {
		key := geo.RoundKey(p.Position, precision)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}
	return out
}

// filterByDistance 丢弃距中心超过 maxKm 的地点，并补齐距离与推荐理由。
func filterByDistance(places []Place, center geo.Coordinate, maxKm float64, reason string) []Place {
	out := make([]Place, 0, len(places))
	for _, p := range places {
		d := geo.DistanceKm(center, p.Position)
		if d > maxKm {
			continue
		}
		p.DistanceKm = d
		if p.Reason == "" {
			p.Reason = reason
		}
		out = append(out, p)
	}
	return out
}

type fallbackOffset struct {
	label string
	dLat  float64
	dLng  float64
}

// 兜底地点围绕中心的固定偏移，最远约 1.1km。
var fallbackOffsets = []fallbackOffset{
	{"North Hangout", 0.01, 0},
	{"East Hangout", 0, 0.01},
	{"South Hangout", -0.01, 0},
	{"West Hangout", 0, -0.01},
	{"Lakeside Retreat", 0.006, -0.006},
	{"Sunset Deck", -0.006, 0.006},
	{"Garden Nook", 0.008, 0.004},
	{"River Bend", -0.004, -0.008},
	{"Central Spot", 0.004, 0.004},
	{"Skyline Lookout", -0.008, 0.002},
}

// fallbackPlaces 生成最多 count 个占位地点，全部标记 IsFallback。
func fallbackPlaces(center geo.Coordinate, reason string, count, precision int) []Place {
	count = max(0, min(count, len(fallbackOffsets)))
	out := make([]Place, 0, count)
	for _, o := range fallbackOffsets[:count] {
		pos := center.Offset(o.dLat, o.dLng)
		out = append(out, Place{
			ID:          "fallback-" + geo.RoundKey(pos, precision),
			Name:        o.label,
			Description: reason,
			Position:    pos,
			DistanceKm:  geo.DistanceKm(center, pos),
			Reason:      reason,
			IsFallback:  true,
		})
	}
	return out
}
