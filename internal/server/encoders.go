package server

import (
	"encoding/xml"
	"fmt"
	"strings"

	v1 "moodmap-go/api/moodmap/v1"

	"github.com/go-kratos/kratos/v2/transport/http"
	"github.com/goccy/go-json"
	"github.com/peterstace/simplefeatures/geom"
)

// asResultSet 提取可按地图格式输出的结果集。
func asResultSet(val any) (*v1.ResultSet, bool) {
	switch t := val.(type) {
	case *v1.ResultSet:
		return t, t != nil
	case *v1.SessionReply:
		if t.Results == nil {
			return &v1.ResultSet{}, true
		}
		return t.Results, true
	default:
		return nil, false
	}
}

func placeFeature(p *v1.Place) geom.GeoJSONFeature {
	return geom.GeoJSONFeature{
		ID:       p.Id,
		Geometry: geom.NewPointXY(p.Lng, p.Lat).AsGeometry(),
		Properties: map[string]any{
			"name":        p.Name,
			"description": p.Description,
			"category":    p.Category,
			"type":        p.Type,
			"distance_km": p.DistanceKm,
			"reason":      p.Reason,
			"is_fallback": p.IsFallback,
		},
	}
}

func encodeGeoJSON(w http.ResponseWriter, r *http.Request, v any) error {
	rs, ok := asResultSet(v)
	if !ok {
		return http.DefaultResponseEncoder(w, r, v)
	}
	fc := geom.GeoJSONFeatureCollection{Features: make([]geom.GeoJSONFeature, 0, len(rs.Places))}
	for _, p := range rs.Places {
		if p != nil {
			fc.Features = append(fc.Features, placeFeature(p))
		}
	}
	b, err := json.Marshal(fc)
	if err != nil {
		return err
	}
	if cb := r.URL.Query().Get("json_callback"); cb != "" {
		w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
		if _, err := w.Write([]byte(cb + "(")); err != nil {
			return err
		}
		if _, err := w.Write(b); err != nil {
			return err
		}
		_, err := w.Write([]byte(")"))
		return err
	}
	w.Header().Set("Content-Type", "application/geo+json; charset=utf-8")
	_, err = w.Write(b)
	return err
}

// Minimal XML output (compact)
type xmlResults struct {
	XMLName  xml.Name   `xml:"recommendations"`
	CycleID  string     `xml:"cycle_id,attr,omitempty"`
	Mood     string     `xml:"mood,attr,omitempty"`
	Center   string     `xml:"center,attr,omitempty"`
	RadiusKm float64    `xml:"radius_km,attr"`
	Fallback bool       `xml:"fallback,attr"`
	Place    []xmlPlace `xml:"place"`
}

type xmlPlace struct {
	ID          string  `xml:"id,attr"`
	Name        string  `xml:"name,attr"`
	DisplayName string  `xml:"display_name,attr,omitempty"`
	Class       string  `xml:"class,attr,omitempty"`
	Type        string  `xml:"type,attr,omitempty"`
	Lat         float64 `xml:"lat,attr"`
	Lon         float64 `xml:"lon,attr"`
	DistanceKm  float64 `xml:"distance_km,attr"`
	Fallback    bool    `xml:"fallback,attr"`
	Reason      string  `xml:",chardata"`
}

func toXMLPlace(p *v1.Place) xmlPlace {
	return xmlPlace{
		ID:          p.Id,
		Name:        p.Name,
		DisplayName: p.Description,
		Class:       p.Category,
		Type:        p.Type,
		Lat:         p.Lat,
		Lon:         p.Lng,
		DistanceKm:  p.DistanceKm,
		Fallback:    p.IsFallback,
		Reason:      strings.TrimSpace(p.Reason),
	}
}

func encodeXML(w http.ResponseWriter, r *http.Request, v any) error {
	rs, ok := asResultSet(v)
	if !ok {
		return http.DefaultResponseEncoder(w, r, v)
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	xr := xmlResults{
		CycleID:  rs.CycleId,
		Mood:     rs.Mood,
		RadiusKm: rs.RadiusKm,
		Fallback: rs.Fallback,
	}
	if rs.CycleId != "" {
		xr.Center = fmt.Sprintf("%g,%g", rs.CenterLat, rs.CenterLng)
	}
	for _, p := range rs.Places {
		if p != nil {
			xr.Place = append(xr.Place, toXMLPlace(p))
		}
	}
	return enc.Encode(xr)
}
