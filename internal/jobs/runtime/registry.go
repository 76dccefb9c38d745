package runtime

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Handler runs one job type. A returned error fails the job at stage "run".
type Handler interface {
	Type() string
	Run(ctx *Context) error
}

// ErrNoHandler is recorded on jobs whose type has no registered Handler.
var ErrNoHandler = errors.New("no handler registered")

type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: map[string]Handler{}}
}

// Register adds h under h.Type(). Each job type may be registered once.
func (r *Registry) Register(h Handler) error {
	if h == nil || h.Type() == "" {
		return errors.New("runtime: handler must be non-nil with a job type")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.handlers[h.Type()]; taken {
		return fmt.Errorf("runtime: job_type=%s already registered", h.Type())
	}
	r.handlers[h.Type()] = h
	return nil
}

func (r *Registry) Get(jobType string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[jobType]
	return h, ok
}

// Types lists registered job types in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	types := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	r.mu.RUnlock()
	sort.Strings(types)
	return types
}

// Run executes the handler for jc.Job once. A missing handler fails the job at "dispatch", a
// panic at "panic" and a returned error at "run". The returned value is the failure recorded,
// or nil when the handler returned normally.
func (r *Registry) Run(jc *Context) (failure error) {
	h, ok := r.Get(jc.Job.JobType)
	if !ok {
		failure = fmt.Errorf("%w for job_type=%s", ErrNoHandler, jc.Job.JobType)
		jc.Fail("dispatch", failure)
		return failure
	}
	defer func() {
		if v := recover(); v != nil {
			failure = fmt.Errorf("panic: %v", v)
			jc.Fail("panic", failure)
		}
	}()
	if err := h.Run(jc); err != nil {
		jc.Fail("run", err)
		return err
	}
	return nil
}
