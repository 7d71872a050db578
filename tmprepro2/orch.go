package tmprepro2

import (
	"context"
	"errors"
	"sync"
	"syscall"
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
func NewOrchestrator(maxConcurrent int, logger any) *Orchestrator {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Orchestrator{
		inflight:  make(map[string]*inflightCall),
		maxActive: maxConcurrent,
	}
}

// Run executes work under admission control. The first caller for a key
// executes the work; concurrent callers with the same key block until it
// settles and receive the identical result. The in-flight handle is removed
// when the work settles, success or not, so later calls execute fresh.
func (o *Orchestrator) Run(ctx context.Context, key string, work func(context.Context) (any, error)) (any, error) {
	o.mu.Lock()
	println("tid", syscall.Gettid(), "Run entry: hmap=", o.inflight, "len=", len(o.inflight))
	for k, v := range o.inflight {
		println("  existing key:", k, "equal?", k == key, "val=", v)
	}
	if call, ok := o.inflight[key]; ok {
		o.mu.Unlock()
		<-call.done
		return call.result, call.err
	}

	if o.active >= o.maxActive {
		o.mu.Unlock()
		return nil, errors.New("too many")
	}

	call := &inflightCall{done: make(chan struct{})}
	o.inflight[key] = call
	println("tid", syscall.Gettid(), "after insert: hmap=", o.inflight, "len=", len(o.inflight))
	o.active++
	o.mu.Unlock()

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
	return ok
}
