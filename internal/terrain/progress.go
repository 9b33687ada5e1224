package terrain

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// ErrCancelled is returned when a long operation observes cancellation.
var ErrCancelled = errors.New("operation cancelled")

// Progress receives status from long operations and exposes a cancellation
// flag they poll between units of work.
type Progress interface {
	SetStatus(status string)
	SetRange(total int)
	SetValue(done int)
	Cancelled() bool
}

type nopProgress struct{}

func (nopProgress) SetStatus(string) {}
func (nopProgress) SetRange(int)     {}
func (nopProgress) SetValue(int)     {}
func (nopProgress) Cancelled() bool  { return false }

// NopProgress returns a Progress that ignores updates and never cancels.
func NopProgress() Progress { return nopProgress{} }

// ContextProgress reports status to a logger and cancels with its context.
type ContextProgress struct {
	ctx      context.Context
	log      *zap.Logger
	total    int
	lastStep int
}

// NewContextProgress returns a Progress bound to ctx.
func NewContextProgress(ctx context.Context, log *zap.Logger) *ContextProgress {
	return &ContextProgress{ctx: ctx, log: log}
}

// SetStatus logs the current phase.
func (p *ContextProgress) SetStatus(status string) {
	p.log.Info(status)
}

// SetRange sets the number of work units in the current phase.
func (p *ContextProgress) SetRange(total int) {
	p.total = total
	p.lastStep = -1
}

// SetValue logs progress in ten percent steps.
func (p *ContextProgress) SetValue(done int) {
	if p.total <= 0 {
		return
	}
	step := done * 10 / p.total
	if step == p.lastStep {
		return
	}
	p.lastStep = step
	p.log.Debug("progress", zap.Int("done", done), zap.Int("total", p.total))
}

// Cancelled reports whether the context is done.
func (p *ContextProgress) Cancelled() bool {
	return p.ctx.Err() != nil
}
