package pixelize

import (
	"sort"
	"sync"

	"pixelize/internal/logger"
)

// TargetPool tracks the transient targets a stage holds and forwards
// allocation to the host. Every Acquire must be paired with exactly one
// Release of the same id.
type TargetPool struct {
	alloc   Allocator
	log     *logger.Logger
	metrics *Metrics

	mu   sync.Mutex
	live map[TargetID]TargetDesc
}

// PoolOption configures a TargetPool.
type PoolOption func(*TargetPool)

// WithPoolLogger sets the logger used for host free errors.
func WithPoolLogger(l *logger.Logger) PoolOption {
	return func(p *TargetPool) { p.log = l }
}

// WithPoolMetrics reports the live target count to m.
func WithPoolMetrics(m *Metrics) PoolOption {
	return func(p *TargetPool) { p.metrics = m }
}

// NewTargetPool creates a pool backed by alloc.
func NewTargetPool(alloc Allocator, opts ...PoolOption) *TargetPool {
	p := &TargetPool{
		alloc: alloc,
		live:  make(map[TargetID]TargetDesc),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Acquire allocates a target with the given descriptor. It panics with a
// *PreconditionViolation if id is already live, and returns a
// *ResourceAcquisitionError if the host refuses the allocation.
func (p *TargetPool) Acquire(id TargetID, desc TargetDesc) (TransientTarget, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.live[id]; ok {
		violate("acquire", id, "target is already live")
	}
	if desc.Width <= 0 || desc.Height <= 0 {
		return TransientTarget{}, &ResourceAcquisitionError{ID: id, Desc: desc, Err: &ConfigurationError{
			Field: "target_size", Value: desc.String(), Reason: "must be positive",
		}}
	}

	if err := p.alloc.Allocate(id, desc); err != nil {
		return TransientTarget{}, &ResourceAcquisitionError{ID: id, Desc: desc, Err: err}
	}

	p.live[id] = desc
	p.metrics.live(len(p.live))
	p.log.Debugf("acquired %s (%s)", id, desc)

	return TransientTarget{ID: id, Desc: desc}, nil
}

// Release returns a live target to the host. It panics with a
// *PreconditionViolation if id is not live. A host error while freeing is
// logged; the id is no longer live either way.
func (p *TargetPool) Release(id TargetID) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.live[id]; !ok {
		violate("release", id, "target is not live")
	}
	delete(p.live, id)
	p.metrics.live(len(p.live))

	if err := p.alloc.Free(id); err != nil {
		p.log.Errorf("free %s: %v", id, err)
		return
	}
	p.log.Debugf("released %s", id)
}

// Live returns the number of targets currently held.
func (p *TargetPool) Live() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.live)
}

// IsLive reports whether id is currently held.
func (p *TargetPool) IsLive(id TargetID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.live[id]
	return ok
}

// LiveIDs returns the held ids in sorted order.
func (p *TargetPool) LiveIDs() []TargetID {
	p.mu.Lock()
	defer p.mu.Unlock()

	ids := make([]TargetID, 0, len(p.live))
	for id := range p.live {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
