// Package resilience 为模型供应商调用加上熔断与退避重试。
//
// 聊天查询链路不重试：一次失败直接返回给用户并计入熔断器；
// 离线索引链路按配置次数指数退避重试，避免单个批次的偶发 5xx 中断整次索引。
package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/catalog-chat/pkg/utils/httpclient"
)

// ErrBreakerOpen 熔断期间直接拒绝调用。
var ErrBreakerOpen = errors.New("upstream breaker is open")

// Policy 描述一个供应商的调用策略。
type Policy struct {
	// Attempts 总调用次数，1 表示不重试。
	Attempts int
	// Backoff 第一次重试前的等待，之后每次翻倍。
	Backoff time.Duration
	// MaxBackoff 等待上限。
	MaxBackoff time.Duration
	// Threshold 连续失败多少次后熔断。
	Threshold int
	// Cooldown 熔断持续时间，过后放行一次探测调用。
	Cooldown time.Duration
}

// QueryPolicy 聊天查询链路使用的策略。
func QueryPolicy() Policy {
	return Policy{Attempts: 1, Threshold: 5, Cooldown: time.Minute}
}

// IndexPolicy 索引链路使用的策略，retries 为失败后的额外重试次数。
func IndexPolicy(retries int) Policy {
	if retries < 0 {
		retries = 0
	}
	return Policy{
		Attempts:   retries + 1,
		Backoff:    500 * time.Millisecond,
		MaxBackoff: 10 * time.Second,
		Threshold:  5,
		Cooldown:   time.Minute,
	}
}

type breakerState uint8

const (
	closed breakerState = iota
	open
	probing
)

func (s breakerState) String() string {
	switch s {
	case open:
		return "open"
	case probing:
		return "probing"
	default:
		return "closed"
	}
}

// Breaker 连续失败计数熔断器。
// 熔断冷却结束后只放行一个探测调用，探测成功即恢复，失败则重新计时。
type Breaker struct {
	name      string
	threshold int
	cooldown  time.Duration
	now       func() time.Time

	mu       sync.Mutex
	state    breakerState
	failures int
	openedAt time.Time
}

// NewBreaker 创建熔断器，threshold 小于 1 时按 1 处理。
func NewBreaker(name string, threshold int, cooldown time.Duration) *Breaker {
	if threshold < 1 {
		threshold = 1
	}
	return &Breaker{name: name, threshold: threshold, cooldown: cooldown, now: time.Now}
}

func (b *Breaker) acquire() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case closed:
		return nil
	case open:
		if b.now().Sub(b.openedAt) < b.cooldown {
			return ErrBreakerOpen
		}
		b.state = probing
		logger.Infow("breaker probing upstream", "upstream", b.name)
		return nil
	default:
		// 已有探测调用在途
		return ErrBreakerOpen
	}
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// 调用方取消不说明上游有问题，探测名额还回去
	if errors.Is(err, context.Canceled) {
		if b.state == probing {
			b.state = open
			b.openedAt = time.Time{}
		}
		return
	}

	if err == nil {
		if b.state != closed {
			logger.Infow("breaker closed", "upstream", b.name)
		}
		b.state = closed
		b.failures = 0
		return
	}

	b.failures++
	if b.state == probing || b.failures >= b.threshold {
		if b.state != open {
			logger.Warnw("breaker opened",
				"upstream", b.name,
				"failures", b.failures,
				"error", err.Error(),
			)
		}
		b.state = open
		b.openedAt = b.now()
	}
}

// Do 在熔断器保护下执行 fn。
func (b *Breaker) Do(fn func() error) error {
	if err := b.acquire(); err != nil {
		return err
	}
	err := fn()
	b.record(err)
	return err
}

// Open 熔断器当前是否拒绝调用。
func (b *Breaker) Open() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state != closed
}

// Snapshot 用于健康检查输出。
func (b *Breaker) Snapshot() map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return map[string]any{
		"upstream": b.name,
		"state":    b.state.String(),
		"failures": b.failures,
	}
}

// Retry 按策略重试 fn，不可重试的错误立即返回。
// 只调用一次时原样返回错误，多次失败后包装上尝试次数。
func Retry(ctx context.Context, p Policy, fn func() error) error {
	attempts := max(p.Attempts, 1)
	delay := p.Backoff

	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if attempts == 1 {
			return err
		}
		if !Retryable(err) {
			return err
		}
		if attempt >= attempts {
			logger.Warnw("upstream retries exhausted", "attempts", attempt, "error", err.Error())
			return fmt.Errorf("after %d attempts: %w", attempt, err)
		}

		logger.Debugw("retrying upstream call", "attempt", attempt, "delay", delay, "error", err.Error())
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
		if p.MaxBackoff > 0 && delay > p.MaxBackoff {
			delay = p.MaxBackoff
		}
	}
}

// Retryable 网络错误、408、429 与 5xx 可以重试。
// 熔断、上下文结束与其余 4xx 不重试。
func Retryable(err error) bool {
	if err == nil ||
		errors.Is(err, ErrBreakerOpen) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var statusErr *httpclient.StatusError
	if errors.As(err, &statusErr) {
		code := statusErr.StatusCode
		return code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || code >= 500
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
