package geo

import (
	"math"
	"strconv"
)

const (
	minPaddingDeg = 0.0005
	minLngFactor  = 0.01
)

// BoundingBox 视窗，顺序与 Nominatim viewbox 一致：west,north,east,south。
type BoundingBox struct {
	West  float64 `json:"west"`
	North float64 `json:"north"`
	East  float64 `json:"east"`
	South float64 `json:"south"`
}

// BoundingBoxAround 以 center 为中心、radiusKm 为半径构造边界框。
// 纬度按 111km/度换算，经度除以 cos(lat)；结果不跨极点且面积恒大于零。
func BoundingBoxAround(center Coordinate, radiusKm float64) BoundingBox {
	pad := radiusKm / KmPerDegreeLat
	if math.IsNaN(pad) || pad < minPaddingDeg {
		pad = minPaddingDeg
	}
	if pad > 90 {
		pad = 90
	}
	factor := math.Cos(center.Lat * math.Pi / 180)
	if factor < minLngFactor {
		factor = minLngFactor
	}
	lngPad := math.Min(pad/factor, 180)

	box := BoundingBox{
		North: math.Min(center.Lat+pad, 90),
		South: math.Max(center.Lat-pad, -90),
		East:  math.Min(center.Lng+lngPad, 180),
		West:  math.Max(center.Lng-lngPad, -180),
	}
	// 中心贴在极点或日界线上时保证仍有面积
	if box.North-box.South < minPaddingDeg {
		if box.North >= 90 {
			box.South = 90 - minPaddingDeg
		} else {
			box.North = -90 + minPaddingDeg
		}
	}
	if box.East-box.West < minPaddingDeg {
		if box.East >= 180 {
			box.West = 180 - minPaddingDeg
		} else {
			box.East = -180 + minPaddingDeg
		}
	}
	return box
}

// Contains 坐标是否落在框内（含边界）。
func (b BoundingBox) Contains(c Coordinate) bool {
	return c.Lat <= b.North && c.Lat >= b.South && c.Lng >= b.West && c.Lng <= b.East
}

// Area 以平方度计的面积，仅用于校验。
func (b BoundingBox) Area() float64 {
	return (b.North - b.South) * (b.East - b.West)
}

// ViewBox 序列化为 "west,north,east,south"。
func (b BoundingBox) ViewBox() string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }
	return f(b.West) + "," + f(b.North) + "," + f(b.East) + "," + f(b.South)
}
