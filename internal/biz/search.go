package biz

import (
	"context"
	"iter"
	"strings"

	"moodmap-go/pkg/geo"

	"github.com/go-kratos/kratos/v2/log"
)

// Place 推荐结果中的一个地点，创建后不再修改。
type Place struct {
	ID          string         `json:"id"`          // provider place_id 或取整坐标
	Name        string         `json:"name"`        // 展示名
	Description string         `json:"description"` // provider 完整地址
	Category    string         `json:"category,omitempty"`
	Type        string         `json:"type,omitempty"`
	Position    geo.Coordinate `json:"position"`
	DistanceKm  float64        `json:"distance_km"`
	Reason      string         `json:"reason"`
	IsFallback  bool           `json:"is_fallback"`
}

// SearchParams 一次地理编码检索请求。
type SearchParams struct {
	Q       string           // 查询关键字
	Limit   int              // 返回条数上限，0 使用 provider 默认值
	Bounded bool             // 是否限制在视窗内
	ViewBox *geo.BoundingBox // 视窗（bounded=false 时仅作偏好）
	Bias    *geo.Coordinate  // 近邻偏好点
}

// SearchRepo 抽象地理编码服务的读路径。
type SearchRepo interface {
	// SearchPlaces 返回一次性的惰性序列；网络失败或非 2xx 时为空序列。
	SearchPlaces(ctx context.Context, p SearchParams) iter.Seq[Place]
	// Geocode 手动定位：返回最佳匹配坐标。
	Geocode(ctx context.Context, query string) (*Place, error)
}

// SearchUsecase 封装检索相关业务逻辑。
type SearchUsecase struct {
	repo SearchRepo  // 地理编码仓库
	log  *log.Helper // 日志
}

func NewSearchUsecase(repo SearchRepo, logger log.Logger) *SearchUsecase {
	return &SearchUsecase{repo: repo, log: log.NewHelper(logger)}
}

func (uc *SearchUsecase) Search(ctx context.Context, p SearchParams) iter.Seq[Place] {
	return uc.repo.SearchPlaces(ctx, p)
}

// Lookup 将自由文本解析为坐标，精度未知。
func (uc *SearchUsecase) Lookup(ctx context.Context, query string) (*Place, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrManualLookupEmpty
	}
	p, err := uc.repo.Geocode(ctx, query)
	if err != nil {
		uc.log.WithContext(ctx).Warnf("manual lookup %q failed: %v", query, err)
		return nil, err
	}
	return p, nil
}
