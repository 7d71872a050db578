package services

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/cloneforge/cloneforge-engine/pkg/apperrors"
)

// Orchestrator guards system capacity and deduplicates identical work.
// At most maxActive executions run concurrently; a request that would
// exceed the cap is rejected immediately, never queued. Requests carrying
// a key identical to an in-flight execution join it and share its result.
type Orchestrator struct {
	mu        sync.Mutex
	inflight  map[string]*inflightCall
	active    int
	maxActive int
	logger    *zap.Logger
}

// inflightCall is the shared handle for one admitted execution. The done
// channel closes exactly once, after result and err are set.
type inflightCall struct {
	done   chan struct{}
	result any
	err    error
}

// NewOrchestrator creates an orchestrator admitting up to maxConcurrent
// concurrent executions.
func NewOrchestrator(maxConcurrent int, logger *zap.Logger) *Orchestrator {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Orchestrator{
		inflight:  make(map[string]*inflightCall),
		maxActive: maxConcurrent,
		logger:    logger.Named("orchestrator"),
	}
}

// Run executes work under admission control. The first caller for a key
// executes the work; concurrent callers with the same key block until it
// settles and receive the identical result. The in-flight handle is removed
// when the work settles, success or not, so later calls execute fresh.
func (o *Orchestrator) Run(ctx context.Context, key string, work func(context.Context) (any, error)) (any, error) {
	o.mu.Lock()
	println("RUN o=", o, "key=", key, "len=", len(o.inflight))
	if call, ok := o.inflight[key]; ok {
		println("JOIN branch", key)
		o.mu.Unlock()
		o.logger.Debug("joining in-flight analysis", zap.String("key", key))
		select {
		case <-call.done:
			return call.result, call.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if o.active >= o.maxActive {
		o.mu.Unlock()
		o.logger.Warn("analysis rejected at capacity",
			zap.String("key", key),
			zap.Int("max_concurrent", o.maxActive))
		return nil, apperrors.New(apperrors.CodeRateLimited,
			"too many analyses in progress, try again shortly")
	}

	call := &inflightCall{done: make(chan struct{})}
	o.inflight[key] = call
	o.active++
	println("INSERTED o=", o, "len=", len(o.inflight))
	o.mu.Unlock()

	println("LEADER executes", key)
	result, err := work(ctx)

	o.mu.Lock()
	delete(o.inflight, key)
	o.active--
	o.mu.Unlock()

	call.result = result
	call.err = err
	close(call.done)

	return result, err
}

// Active returns the number of currently admitted executions.
func (o *Orchestrator) Active() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active
}

// InFlight reports whether an execution for key is currently running.
func (o *Orchestrator) InFlight(key string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.inflight[key]
	println("INFLIGHT o=", o, "len=", len(o.inflight), "ok=", ok)
	return ok
}
