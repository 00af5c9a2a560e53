// Package pool runs bounded fan-out work, such as embedding batches, on
// ants goroutine pools.
package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kart-io/logger"
	"github.com/panjf2000/ants/v2"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
)

// Submit 与 NewPool 返回的错误。
var (
	ErrPoolClosed        = errors.New("worker pool is released")
	ErrInvalidPoolConfig = errors.New("worker pool capacity must be positive")
	ErrPoolOverload      = errors.New("worker pool is saturated")
)

// Config 池配置。
type Config struct {
	// Capacity 最大并发 goroutine 数。
	Capacity int
	// ExpiryDuration 空闲 worker 的回收间隔。
	ExpiryDuration time.Duration
	// Nonblocking 为 true 时池满立即返回 ErrPoolOverload，否则阻塞等待。
	Nonblocking bool
}

// WorkerPoolConfig 固定并发数的阻塞池。
func WorkerPoolConfig(workers int) *Config {
	return &Config{Capacity: workers, ExpiryDuration: 30 * time.Second}
}

// Stats 任务计数快照。
type Stats struct {
	Submitted int64
	Completed int64
	Panicked  int64
	Rejected  int64
}

// Pool 命名的 ants 池。
type Pool struct {
	name string
	ants *ants.Pool

	submitted, completed, panicked, rejected atomic.Int64

	mu       sync.Mutex
	released bool
}

// NewPool 创建池，config 为 nil 或容量不为正时返回 ErrInvalidPoolConfig。
func NewPool(name string, config *Config) (*Pool, error) {
	if config == nil || config.Capacity <= 0 {
		return nil, ErrInvalidPoolConfig
	}

	p := &Pool{name: name}
	ap, err := ants.NewPool(config.Capacity,
		ants.WithExpiryDuration(config.ExpiryDuration),
		ants.WithNonblocking(config.Nonblocking),
		ants.WithPanicHandler(func(v any) {
			p.panicked.Add(1)
			logger.Errorw("worker panic recovered", "pool", name, "panic", v)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("create pool %s: %w", name, err)
	}
	p.ants = ap
	logger.Debugw("worker pool created", "pool", name, "capacity", config.Capacity)
	return p, nil
}

func (p *Pool) Name() string { return p.name }
func (p *Pool) Cap() int     { return p.ants.Cap() }

// Submit 提交一个任务；阻塞池在满载时等待空闲 worker。
func (p *Pool) Submit(task func()) error {
	p.mu.Lock()
	released := p.released
	p.mu.Unlock()
	if released {
		return ErrPoolClosed
	}

	p.submitted.Add(1)
	err := p.ants.Submit(func() {
		task()
		p.completed.Add(1)
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ants.ErrPoolOverload):
		p.rejected.Add(1)
		return ErrPoolOverload
	case errors.Is(err, ants.ErrPoolClosed):
		return ErrPoolClosed
	default:
		return err
	}
}

// Each 对 [0, n) 的每个下标在池中执行 fn，等待全部结束后返回聚合错误。
// ctx 结束后尚未开始的下标被跳过，聚合错误中包含 ctx.Err()。
func (p *Pool) Each(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	fail := func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}

	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			fail(err)
			break
		}
		wg.Add(1)
		err := p.Submit(func() {
			defer wg.Done()
			if err := ctx.Err(); err != nil {
				fail(err)
				return
			}
			if err := fn(ctx, i); err != nil {
				fail(err)
			}
		})
		if err != nil {
			wg.Done()
			fail(err)
			break
		}
	}
	wg.Wait()

	// 多个任务可能同时观察到取消，只保留一次
	return utilerrors.NewAggregate(dedupe(errs))
}

func dedupe(errs []error) []error {
	out := errs[:0]
	var sawCtx bool
	for _, err := range errs {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			if sawCtx {
				continue
			}
			sawCtx = true
		}
		out = append(out, err)
	}
	return out
}

// Release 关闭池，可重复调用。
func (p *Pool) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.released {
		return
	}
	p.released = true
	p.ants.Release()
	logger.Debugw("worker pool released", "pool", p.name, "completed", p.completed.Load(), "panicked", p.panicked.Load())
}

// Stats 返回任务计数快照。
func (p *Pool) Stats() Stats {
	return Stats{
		Submitted: p.submitted.Load(),
		Completed: p.completed.Load(),
		Panicked:  p.panicked.Load(),
		Rejected:  p.rejected.Load(),
	}
}
