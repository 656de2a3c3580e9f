package storage

import (
	"context"
	"fmt"
)

// Pool bounds concurrent storage operations independently of sql.DB's own
// connection pool, so a burst of coordination calls degrades to queuing
// rather than SQLITE_BUSY errors under the WAL single-writer constraint.
// Grounded on internal/mcp/connection_limiter.go's TryAcquire/Release
// slot-counting pattern, generalized from a per-agent cap to a single
// global semaphore sized to the configured max concurrency.
type Pool struct {
	slots chan struct{}
	max   int
}

func NewPool(maxConcurrent int) *Pool {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Pool{
		slots: make(chan struct{}, maxConcurrent),
		max:   maxConcurrent,
	}
}

// Acquire blocks until a slot is free or ctx is done.
func (p *Pool) Acquire(ctx context.Context) error {
	select {
	case p.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("acquiring storage pool slot: %w", ctx.Err())
	}
}

func (p *Pool) Release() {
	select {
	case <-p.slots:
	default:
	}
}

// InUse reports the number of slots currently held.
func (p *Pool) InUse() int {
	return len(p.slots)
}

func (p *Pool) Capacity() int {
	return p.max
}

// Do runs fn holding one pool slot.
func (p *Pool) Do(ctx context.Context, fn func() error) error {
	if err := p.Acquire(ctx); err != nil {
		return err
	}
	defer p.Release()
	return fn()
}
