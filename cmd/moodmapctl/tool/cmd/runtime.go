package cmd

import (
	"os"

	"moodmap-go/internal/biz"
	"moodmap-go/internal/conf"
	"moodmap-go/internal/data"
	"moodmap-go/pkg/zlog"

	"github.com/go-kratos/kratos/v2/config"
	"github.com/go-kratos/kratos/v2/config/file"
	"github.com/go-kratos/kratos/v2/log"
)

// runtime 本地运行推荐链路所需的组件。
type runtime struct {
	conf      *conf.Bootstrap
	logger    log.Logger
	catalog   *biz.MoodCatalog
	search    *biz.SearchUsecase
	recommend *biz.RecommendUsecase
	cleanup   func()
}

func loadConfig() (*conf.Bootstrap, error) {
	bc := conf.Default()
	if cfgPath == "" {
		return bc, nil
	}
	c := config.New(config.WithSource(file.NewSource(cfgPath)))
	defer c.Close()
	if err := c.Load(); err != nil {
		return nil, err
	}
	if err := c.Scan(bc); err != nil {
		return nil, err
	}
	return bc, bc.Validate()
}

func newRuntime() (*runtime, error) {
	bc, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := zlog.NewLogger(zlog.WithLevel(logLevel), zlog.WithFormat("console"), zlog.WithOutput(os.Stderr))
	d, cleanup, err := data.NewData(bc.Data, logger)
	if err != nil {
		return nil, err
	}
	search := biz.NewSearchUsecase(data.NewSearchRepo(d, logger), logger)
	return &runtime{
		conf:      bc,
		logger:    logger,
		catalog:   biz.NewMoodCatalogFromConfig(bc.Recommend, logger),
		search:    search,
		recommend: biz.NewRecommendUsecase(search, bc.Recommend, logger),
		cleanup:   cleanup,
	}, nil
}
