package biz

import (
	"context"
	"sync"

	"moodmap-go/internal/metrics"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
)

// ErrCycleSuperseded 周期在发布前被新的位置或心情变更取代。
var ErrCycleSuperseded = errors.New(409, "CYCLE_SUPERSEDED", "a newer location or mood change replaced this cycle")

// Pipeline 单个会话的推荐周期调度：同一时刻只有最新周期有效。
// 新周期开始时以 ErrCycleSuperseded 为原因取消旧周期的 ctx，并在发布前核对代数，迟到的结果一律丢弃。
type Pipeline struct {
	uc  *RecommendUsecase
	log *log.Helper

	mu        sync.RWMutex
	gen       uint64
	cancel    context.CancelCauseFunc
	current   *ResultSet
	onPublish func(*ResultSet)
}

// NewPipeline onPublish 在持锁状态下调用，必须非阻塞。
func NewPipeline(uc *RecommendUsecase, logger log.Logger, onPublish func(*ResultSet)) *Pipeline {
	return &Pipeline{uc: uc, log: log.NewHelper(logger), onPublish: onPublish}
}

// Submit 启动新周期并等待其完成；被取代时返回 ErrCycleSuperseded。
func (p *Pipeline) Submit(ctx context.Context, in CycleInput) (*ResultSet, error) {
	p.mu.Lock()
	p.gen++
	gen := p.gen
	if p.cancel != nil {
		p.cancel(ErrCycleSuperseded)
	}
	cctx, cancel := context.WithCancelCause(ctx)
	p.cancel = cancel
	p.mu.Unlock()
	defer cancel(nil)

	rs, err := p.uc.Aggregate(cctx, in)

	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.gen {
		metrics.Cycles.WithLabelValues("abandoned").Inc()
		p.log.WithContext(ctx).Debugf("cycle generation %d superseded by %d", gen, p.gen)
		return nil, ErrCycleSuperseded
	}
	p.cancel = nil
	if err != nil {
		metrics.Cycles.WithLabelValues("abandoned").Inc()
		return nil, err
	}
	p.current = rs
	if rs.Fallback {
		metrics.Cycles.WithLabelValues("fallback").Inc()
	} else {
		metrics.Cycles.WithLabelValues("published").Inc()
	}
	metrics.CyclePlaces.Observe(float64(len(rs.Places)))
	if p.onPublish != nil {
		p.onPublish(rs)
	}
	return rs, nil
}

// Current 最近一次发布的结果，只读。
func (p *Pipeline) Current() *ResultSet {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// Abandon 放弃进行中的周期（会话结束时调用）。
func (p *Pipeline) Abandon() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gen++
	if p.cancel != nil {
		p.cancel(ErrCycleSuperseded)
		p.cancel = nil
	}
}
