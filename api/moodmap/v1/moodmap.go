// Package v1 MoodMap HTTP API 的请求与响应消息。
package v1

type ListMoodsRequest struct{}

type Mood struct {
	Name        string   `json:"name"`
	Keywords    []string `json:"keywords"`
	Reason      string   `json:"reason"`
	Description string   `json:"description"`
}

type ListMoodsReply struct {
	Default string  `json:"default"`
	Moods   []*Mood `json:"moods"`
}

type RecommendRequest struct {
	Lat      float64  `json:"lat"`
	Lng      float64  `json:"lng"`
	Accuracy *float64 `json:"accuracy"` // 米，缺省表示未知
	Mood     string   `json:"mood"`
}

type Place struct {
	Id          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Category    string  `json:"category,omitempty"`
	Type        string  `json:"type,omitempty"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	DistanceKm  float64 `json:"distance_km"`
	Reason      string  `json:"reason"`
	IsFallback  bool    `json:"is_fallback"`
}

type CycleStats struct {
	Keywords   int `json:"keywords"`
	Queries    int `json:"queries"`
	RawHits    int `json:"raw_hits"`
	Duplicates int `json:"duplicates"`
	OutOfRange int `json:"out_of_range"`
}

type ResultSet struct {
	CycleId     string      `json:"cycle_id"`
	Mood        string      `json:"mood"`
	Reason      string      `json:"reason"`
	CenterLat   float64     `json:"center_lat"`
	CenterLng   float64     `json:"center_lng"`
	RadiusKm    float64     `json:"radius_km"`
	Fallback    bool        `json:"fallback"`
	GeneratedAt string      `json:"generated_at"`
	Places      []*Place    `json:"places"`
	Stats       *CycleStats `json:"stats,omitempty"`
}

type LocationStatus struct {
	State     string   `json:"state"`
	Tier      string   `json:"tier"`
	Message   string   `json:"message"`
	Note      string   `json:"note,omitempty"`
	Lat       *float64 `json:"lat,omitempty"`
	Lng       *float64 `json:"lng,omitempty"`
	Accuracy  *float64 `json:"accuracy,omitempty"`
	RadiusKm  float64  `json:"radius_km,omitempty"`
	Error     string   `json:"error,omitempty"`
	UpdatedAt string   `json:"updated_at,omitempty"`
}

type CreateSessionRequest struct {
	SessionId string `json:"session_id"` // 可选，用于恢复缓存
	Mood      string `json:"mood"`
}

type GetSessionRequest struct {
	Id string `json:"id"`
}

type SessionReply struct {
	Id        string          `json:"id"`
	Mood      string          `json:"mood"`
	Location  *LocationStatus `json:"location"`
	Results   *ResultSet      `json:"results,omitempty"`
	CreatedAt string          `json:"created_at"`
}

// UpdateLocationRequest 设备读数或失败码（二选一）。
type UpdateLocationRequest struct {
	Id        string   `json:"id"`
	Lat       float64  `json:"lat"`
	Lng       float64  `json:"lng"`
	Accuracy  *float64 `json:"accuracy"`
	Timestamp int64    `json:"timestamp"` // 毫秒
	Error     string   `json:"error"`     // permission_denied / position_unavailable / timeout / unsupported
}

type UpdateMoodRequest struct {
	Id   string `json:"id"`
	Mood string `json:"mood"`
}

type LookupRequest struct {
	Id    string `json:"id"`
	Query string `json:"query"`
}

type RefreshRequest struct {
	Id string `json:"id"`
}

type EndSessionRequest struct {
	Id string `json:"id"`
}

type EndSessionReply struct{}

type StatusRequest struct{}

type StatusReply struct {
	Version        string `json:"version"`
	Uptime         string `json:"uptime"`
	Geocoder       string `json:"geocoder"` // 熔断器状态
	ActiveSessions int    `json:"active_sessions"`
}
