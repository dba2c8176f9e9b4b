package biz

import (
	"moodmap-go/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
)

// ProviderSet is biz providers.
var ProviderSet = wire.NewSet(NewSearchUsecase, NewRecommendUsecase, NewMoodCatalogFromConfig, NewSessionManager)

// NewMoodCatalogFromConfig 以配置中的默认心情构造目录。
func NewMoodCatalogFromConfig(c *conf.Recommend, logger log.Logger) *MoodCatalog {
	return NewMoodCatalog(c.DefaultMood, logger)
}
