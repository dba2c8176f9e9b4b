package geo

import "math"

// RadiusPolicy 把定位精度映射为最大可接受距离（km）。
type RadiusPolicy struct {
	NoAccuracyKm  float64 `json:"no_accuracy_km"` // 无精度时的默认半径
	BaseKm        float64 `json:"base_km"`        // 精确定位时的基础半径
	AccuracyScale float64 `json:"accuracy_scale"` // 每公里精度误差扩展的半径
	MinKm         float64 `json:"min_km"`
	MaxKm         float64 `json:"max_km"`
}

// DefaultRadiusPolicy 默认策略：未知精度 35km，其余 clamp(20+3*误差km, 10, 80)。
func DefaultRadiusPolicy() RadiusPolicy {
	return RadiusPolicy{
		NoAccuracyKm:  35,
		BaseKm:        20,
		AccuracyScale: 3,
		MinKm:         10,
		MaxKm:         80,
	}
}

// SearchRadiusKm 随误差单调增大，并被限制在 [MinKm, MaxKm]。
func (p RadiusPolicy) SearchRadiusKm(r *LocationReading) float64 {
	if r == nil || r.Accuracy == nil {
		return p.clamp(p.NoAccuracyKm)
	}
	return p.clamp(p.BaseKm + p.AccuracyScale*(*r.Accuracy/1000))
}

func (p RadiusPolicy) clamp(km float64) float64 {
	if math.IsNaN(km) {
		return p.MaxKm
	}
	return math.Min(p.MaxKm, math.Max(p.MinKm, km))
}

// DeriveSearchRadiusKm 使用默认策略。
func DeriveSearchRadiusKm(r *LocationReading) float64 {
	return DefaultRadiusPolicy().SearchRadiusKm(r)
}
