package biz

import (
	"time"

	"github.com/kart-io/catalog-chat/pkg/llm"
)

// Recorder 接收问答链路的耗时与结果，用于指标统计。
type Recorder interface {
	RecordRetrieval(duration time.Duration, results int, err error)
	RecordGeneration(duration time.Duration, usage *llm.TokenUsage, err error)
	RecordQuery(duration time.Duration, err error)
}

type nopRecorder struct{}

func (nopRecorder) RecordRetrieval(time.Duration, int, error)              {}
func (nopRecorder) RecordGeneration(time.Duration, *llm.TokenUsage, error) {}
func (nopRecorder) RecordQuery(time.Duration, error)                       {}
