// Package conf 服务配置，从 configs/config.yaml 经 kratos config 加载。
package conf

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Duration 支持 "10s" 形式的字符串或纳秒数字。
type Duration struct {
	time.Duration
}

// NewDuration 构造。
func NewDuration(d time.Duration) *Duration {
	return &Duration{Duration: d}
}

// AsDuration 与 durationpb 保持同名，nil 安全。
func (d *Duration) AsDuration() time.Duration {
	if d == nil {
		return 0
	}
	return d.Duration
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case float64:
		d.Duration = time.Duration(t)
	case string:
		pd, err := time.ParseDuration(t)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", t, err)
		}
		d.Duration = pd
	default:
		return fmt.Errorf("invalid duration %v", v)
	}
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// Bootstrap 配置根。
type Bootstrap struct {
	Server    *Server    `json:"server" validate:"required"`
	Data      *Data      `json:"data" validate:"required"`
	Recommend *Recommend `json:"recommend" validate:"required"`
	Log       *Log       `json:"log"`
}

// Server 传输层配置。
type Server struct {
	Http *Server_HTTP `json:"http" validate:"required"`
}

type Server_HTTP struct {
	Network   string    `json:"network"`
	Addr      string    `json:"addr"`
	Timeout   *Duration `json:"timeout"`
	RateLimit float64   `json:"rate_limit" validate:"gte=0"` // 每秒请求数，0 不限流
}

// Data 外部依赖配置。
type Data struct {
	Geocoder *Data_Geocoder `json:"geocoder" validate:"required"`
	Session  *Data_Session  `json:"session" validate:"required"`
}

type Data_Geocoder struct {
	BaseURL       string        `json:"base_url" validate:"required,url"`
	UserAgent     string        `json:"user_agent" validate:"required"`
	ResultLimit   int           `json:"result_limit" validate:"gte=1,lte=50"`
	Timeout       *Duration     `json:"timeout"`
	RateLimit     float64       `json:"rate_limit" validate:"gte=0"` // Nominatim 使用策略：1 req/s
	Burst         int           `json:"burst" validate:"gte=0"`
	CacheTTL      *Duration     `json:"cache_ttl"`
	SlowThreshold *Duration     `json:"slow_threshold"`
	Breaker       *Data_Breaker `json:"breaker"`
}

type Data_Breaker struct {
	MaxRequests  uint32    `json:"max_requests"`
	Interval     *Duration `json:"interval"`
	Timeout      *Duration `json:"timeout"`
	MinRequests  uint32    `json:"min_requests"`
	FailureRatio float64   `json:"failure_ratio" validate:"gte=0,lte=1"`
}

type Data_Session struct {
	TTL *Duration `json:"ttl"`
}

// Recommend 推荐链路参数，全部可调。
type Recommend struct {
	MaxResults       int               `json:"max_results" validate:"gte=1,lte=100"`
	PrimaryRadiusKm  float64           `json:"primary_radius_km" validate:"gt=0"`
	CityRadiusFactor float64           `json:"city_radius_factor" validate:"gte=1"`
	FallbackCount    int               `json:"fallback_count" validate:"gte=1,lte=10"`
	DedupePrecision  int               `json:"dedupe_precision" validate:"gte=1,lte=8"`
	DefaultMood      string            `json:"default_mood"`
	Radius           *Recommend_Radius `json:"radius" validate:"required"`
	PositionTimeout  *Duration         `json:"position_timeout"`
}

type Recommend_Radius struct {
	NoAccuracyKm  float64 `json:"no_accuracy_km" validate:"gt=0"`
	BaseKm        float64 `json:"base_km" validate:"gt=0"`
	AccuracyScale float64 `json:"accuracy_scale" validate:"gte=0"`
	MinKm         float64 `json:"min_km" validate:"gte=2"`
	MaxKm         float64 `json:"max_km" validate:"gtefield=MinKm"`
}

// Log 日志配置。
type Log struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// Default 与 configs/config.yaml 一致的默认值，CLI 无配置文件时使用。
func Default() *Bootstrap {
	return &Bootstrap{
		Server: &Server{Http: &Server_HTTP{
			Network:   "tcp",
			Addr:      "0.0.0.0:8000",
			Timeout:   NewDuration(30 * time.Second),
			RateLimit: 20,
		}},
		Data: &Data{
			Geocoder: &Data_Geocoder{
				BaseURL:       "https://nominatim.openstreetmap.org",
				UserAgent:     "moodmap-go/1.0 (+https://github.com/rishab465/MoodMap)",
				ResultLimit:   20,
				Timeout:       NewDuration(10 * time.Second),
				RateLimit:     1,
				Burst:         1,
				CacheTTL:      NewDuration(5 * time.Minute),
				SlowThreshold: NewDuration(2 * time.Second),
				Breaker: &Data_Breaker{
					MaxRequests:  3,
					Interval:     NewDuration(time.Minute),
					Timeout:      NewDuration(30 * time.Second),
					MinRequests:  10,
					FailureRatio: 0.6,
				},
			},
			Session: &Data_Session{TTL: NewDuration(30 * time.Minute)},
		},
		Recommend: &Recommend{
			MaxResults:       20,
			PrimaryRadiusKm:  6,
			CityRadiusFactor: 5,
			FallbackCount:    6,
			DedupePrecision:  4,
			DefaultMood:      "Calm",
			Radius: &Recommend_Radius{
				NoAccuracyKm:  35,
				BaseKm:        20,
				AccuracyScale: 3,
				MinKm:         10,
				MaxKm:         80,
			},
			PositionTimeout: NewDuration(12 * time.Second),
		},
		Log: &Log{Level: "info", Format: "json"},
	}
}

var validate = validator.New()

// Validate 校验配置取值。
func (b *Bootstrap) Validate() error {
	if err := validate.Struct(b); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// GetPositionTimeout 单次定位超时，nil 安全。
func (x *Recommend) GetPositionTimeout() time.Duration {
	if x == nil {
		return 0
	}
	return x.PositionTimeout.AsDuration()
}
