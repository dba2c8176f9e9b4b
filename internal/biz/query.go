package biz

import "moodmap-go/pkg/geo"

// BuildQuery 构造检索请求。bounded 时在 center 周围 radiusKm 的框内检索；
// 否则为全局检索，仅带 center 作为近邻偏好，radiusKm 决定偏好视窗大小。
func BuildQuery(term string, center geo.Coordinate, radiusKm float64, bounded bool) SearchParams {
	box := geo.BoundingBoxAround(center, radiusKm)
	bias := center
	return SearchParams{
		Q:       term,
		Bounded: bounded,
		ViewBox: &box,
		Bias:    &bias,
	}
}
