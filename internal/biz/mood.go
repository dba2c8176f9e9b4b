package biz

import (
	"strings"

	"github.com/go-kratos/kratos/v2/log"
)

// Mood 封闭枚举。
type Mood string

const (
	MoodHappy Mood = "Happy"
	MoodSad   Mood = "Sad"
	MoodAngry Mood = "Angry"
	MoodCalm  Mood = "Calm"
)

// SupportedMoods 展示顺序。
var SupportedMoods = []Mood{MoodHappy, MoodSad, MoodAngry, MoodCalm}

// DefaultMood 未识别的心情统一归一到该值。
const DefaultMood = MoodCalm

// BaseKeywords 所有心情共用的兜底检索词，排在心情专属词之后。
var BaseKeywords = []string{"restaurant", "park", "cafe", "museum", "shopping"}

// MoodProfile 心情 -> 检索词与推荐理由。
type MoodProfile struct {
	Mood        Mood     `json:"mood"`
	Keywords    []string `json:"keywords"`    // 心情专属词在前，通用词在后
	Reason      string   `json:"reason"`      // 推荐理由
	Description string   `json:"description"` // 主题描述
}

type moodSeed struct {
	keywords    []string
	reason      string
	description string
}

var moodSeeds = map[Mood]moodSeed{
	MoodHappy: {
		keywords:    []string{"live music", "rooftop bar", "festival", "dessert cafe"},
		reason:      "Upbeat venues keep the celebration going.",
		description: "Energetic, optimistic, joyful",
	},
	MoodSad: {
		keywords:    []string{"cozy cafe", "bookstore", "tea lounge", "soothing spa"},
		reason:      "Warm lighting and calm playlists help reset the mood.",
		description: "Comforting, quiet, emotionally safe",
	},
	MoodAngry: {
		keywords:    []string{"boxing studio", "arcade bar", "escape room", "indoor climbing"},
		reason:      "High-energy experiences channel intensity in a grounded way.",
		description: "Powerful, grounded, controlled intensity",
	},
	MoodCalm: {
		keywords:    []string{"botanical garden", "meditation studio", "tea house", "nature walk"},
		reason:      "Soft nature-backed experiences keep things peaceful.",
		description: "Peaceful, natural, balanced",
	},
}

// NormalizeMood 去空白、忽略大小写匹配；无法识别时返回 fallback。
func NormalizeMood(candidate string, fallback Mood) Mood {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return fallback
	}
	for _, m := range SupportedMoods {
		if strings.EqualFold(string(m), trimmed) {
			return m
		}
	}
	return fallback
}

// MoodCatalog 进程级只读目录，构造后不再修改。
type MoodCatalog struct {
	profiles    map[Mood]MoodProfile
	defaultMood Mood
}

// NewMoodCatalog 构建目录；defaultMood 不在枚举内时退回 Calm。
func NewMoodCatalog(defaultMood string, logger log.Logger) *MoodCatalog {
	def := NormalizeMood(defaultMood, DefaultMood)
	if defaultMood != "" && !strings.EqualFold(strings.TrimSpace(defaultMood), string(def)) {
		log.NewHelper(logger).Warnf("unknown default mood %q, using %s", defaultMood, def)
	}
	profiles := make(map[Mood]MoodProfile, len(moodSeeds))
	for m, seed := range moodSeeds {
		profiles[m] = MoodProfile{
			Mood:        m,
			Keywords:    dedupeKeywords(append(append([]string{}, seed.keywords...), BaseKeywords...)),
			Reason:      seed.reason,
			Description: seed.description,
		}
	}
	return &MoodCatalog{profiles: profiles, defaultMood: def}
}

// Default 默认心情。
func (c *MoodCatalog) Default() Mood {
	return c.defaultMood
}

// Normalize 使用目录的默认心情归一化。
func (c *MoodCatalog) Normalize(candidate string) Mood {
	return NormalizeMood(candidate, c.defaultMood)
}

// ProfileFor 按心情取配置；未知心情返回默认配置。返回副本，调用方可随意修改。
func (c *MoodCatalog) ProfileFor(mood string) MoodProfile {
	p := c.profiles[c.Normalize(mood)]
	p.Keywords = append([]string(nil), p.Keywords...)
	return p
}

// Moods 按展示顺序返回全部配置。
func (c *MoodCatalog) Moods() []MoodProfile {
	out := make([]MoodProfile, 0, len(SupportedMoods))
	for _, m := range SupportedMoods {
		out = append(out, c.ProfileFor(string(m)))
	}
	return out
}

// dedupeKeywords 保序去重（忽略大小写与首尾空白）。
func dedupeKeywords(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, k := range in {
		k = strings.TrimSpace(k)
		key := strings.ToLower(k)
		if k == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, k)
	}
	return out
}
