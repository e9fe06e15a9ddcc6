// Package mem defines the allocator contract consumed by the kernel core and
// a budget-limited pool implementation of it.
package mem

import (
	"sync"

	"threados/kernel"
)

var (
	errOutOfMemory = &kernel.Error{Module: "mem", Message: "out of memory", Errno: kernel.ENOMEM}
	errZeroSize    = &kernel.Error{Module: "mem", Message: "allocation size must be greater than zero", Errno: kernel.EINVAL}
	errBadFree     = &kernel.Error{Module: "mem", Message: "attempt to free a block that is not allocated"}
)

// Allocator is implemented by the kernel's dynamic memory allocator. The
// kernel obtains thread stacks, process regions and message buffers through
// it.
type Allocator interface {
	// Alloc reserves a zeroed block of the requested size.
	Alloc(size Size) ([]byte, *kernel.Error)

	// Free releases a block previously returned by Alloc.
	Free(block []byte) *kernel.Error
}

// Pool is an Allocator that hands out blocks from a fixed memory budget.
// Freeing a block returns its size to the budget. Pool is safe for
// concurrent use.
type Pool struct {
	mu sync.Mutex

	limit Size
	inUse Size
	live  map[*byte]Size
}

// NewPool returns a pool allocator with the given budget.
func NewPool(limit Size) *Pool {
	return &Pool{
		limit: limit,
		live:  make(map[*byte]Size),
	}
}

// Alloc reserves a block of size bytes or fails with an out of memory error
// if the budget is exhausted.
func (p *Pool) Alloc(size Size) ([]byte, *kernel.Error) {
	if size == 0 {
		return nil, errZeroSize
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.inUse+size > p.limit {
		return nil, errOutOfMemory
	}

	block := make([]byte, size)
	p.live[&block[0]] = size
	p.inUse += size
	return block, nil
}

// Free returns block to the pool. Freeing a block twice or freeing a block
// that was not obtained from this pool fails.
func (p *Pool) Free(block []byte) *kernel.Error {
	if len(block) == 0 {
		return errBadFree
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	key := &block[:1][0]
	size, ok := p.live[key]
	if !ok {
		return errBadFree
	}

	delete(p.live, key)
	p.inUse -= size
	return nil
}

// InUse returns the number of bytes currently allocated.
func (p *Pool) InUse() Size {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inUse
}

// Limit returns the pool budget.
func (p *Pool) Limit() Size {
	return p.limit
}

// Region describes a memory region owned by a process.
type Region struct {
	Data []byte
}

// Size returns the region length in bytes.
func (r Region) Size() Size {
	return Size(len(r.Data))
}
