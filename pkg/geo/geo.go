// Package geo 提供推荐链路用到的纯几何计算：球面距离、检索半径与边界框。
package geo

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/golang/geo/s2"
)

// EarthRadiusKm 地球平均半径（km）。
const EarthRadiusKm = 6371.0

// KmPerDegreeLat 每纬度约对应的公里数。
const KmPerDegreeLat = 111.0

// Coordinate 经纬度坐标，值类型，创建后不再修改。
type Coordinate struct {
	Lat float64 `json:"lat"` // 纬度 [-90,90]
	Lng float64 `json:"lng"` // 经度 [-180,180]
}

// Finite 两个分量均为有限数。
func (c Coordinate) Finite() bool {
	return !math.IsNaN(c.Lat) && !math.IsInf(c.Lat, 0) && !math.IsNaN(c.Lng) && !math.IsInf(c.Lng, 0)
}

// Valid 有限且落在合法经纬度范围内。
func (c Coordinate) Valid() bool {
	return c.Finite() && c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// Offset 按角度偏移返回新坐标。纬度截断到 [-90,90]，经度绕回 [-180,180]。
func (c Coordinate) Offset(dLat, dLng float64) Coordinate {
	return Coordinate{Lat: max(-90, min(90, c.Lat+dLat)), Lng: wrapLng(c.Lng + dLng)}
}

func wrapLng(lng float64) float64 {
	if lng >= -180 && lng <= 180 {
		return lng
	}
	lng = math.Mod(lng+180, 360)
	if lng < 0 {
		lng += 360
	}
	return lng - 180
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%.5f,%.5f", c.Lat, c.Lng)
}

// DistanceKm 使用 haversine 公式计算大圆距离；任一分量非有限时返回 +Inf。
func DistanceKm(a, b Coordinate) float64 {
	if !a.Finite() || !b.Finite() {
		return math.Inf(1)
	}
	// s2.LatLng.Distance 即 haversine 形式的角距离
	angle := s2.LatLngFromDegrees(a.Lat, a.Lng).Distance(s2.LatLngFromDegrees(b.Lat, b.Lng))
	return angle.Radians() * EarthRadiusKm
}

// RoundKey 将坐标按 precision 位小数取整后拼成去重 key。
func RoundKey(c Coordinate, precision int) string {
	return strconv.FormatFloat(c.Lat, 'f', precision, 64) + "," + strconv.FormatFloat(c.Lng, 'f', precision, 64)
}

// LocationReading 一次定位读数。
type LocationReading struct {
	Coordinate
	Accuracy  *float64  `json:"accuracy,omitempty"` // 精度（米），nil 表示未知
	Timestamp time.Time `json:"timestamp"`
}

// NewLocationReading 校验后构造读数；精度为负或非有限视为未知。
func NewLocationReading(lat, lng float64, accuracy *float64, ts time.Time) (LocationReading, error) {
	c := Coordinate{Lat: lat, Lng: lng}
	if !c.Valid() {
		return LocationReading{}, fmt.Errorf("invalid coordinate %v,%v", lat, lng)
	}
	var acc *float64
	if accuracy != nil && *accuracy >= 0 && !math.IsInf(*accuracy, 0) && !math.IsNaN(*accuracy) {
		v := *accuracy
		acc = &v
	}
	return LocationReading{Coordinate: c, Accuracy: acc, Timestamp: ts}, nil
}

// HasAccuracy 是否带精度。
func (r LocationReading) HasAccuracy() bool {
	return r.Accuracy != nil
}

// SameFix 经纬度与精度都相同。
func (r LocationReading) SameFix(o LocationReading) bool {
	if r.Lat != o.Lat || r.Lng != o.Lng {
		return false
	}
	if r.Accuracy == nil || o.Accuracy == nil {
		return r.Accuracy == nil && o.Accuracy == nil
	}
	return *r.Accuracy == *o.Accuracy
}
