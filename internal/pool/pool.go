// Package pool implements the fixed-size worker pool the CPU dispatch
// engine schedules work items on.
package pool

import (
	"container/heap"
	"errors"
	"fmt"
	"sync"
)

// Item is one unit of work. thread identifies the worker running it, so
// primitives can index per-thread scratch.
type Item func(thread int) error

type pendingItem struct {
	run    Item
	weight int64
	seq    int // submission order, breaks weight ties FIFO
}

// itemHeap orders pending work heaviest-first. Within the same weight,
// earlier submissions run first.
type itemHeap []*pendingItem

func (h itemHeap) Len() int { return len(h) }

func (h itemHeap) Less(i, j int) bool {
	if h[i].weight != h[j].weight {
		return h[i].weight > h[j].weight
	}
	return h[i].seq < h[j].seq
}

func (h itemHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *itemHeap) Push(x any) { *h = append(*h, x.(*pendingItem)) }

func (h *itemHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return it
}

// Pool is a fixed-size worker pool. Submitted items are drained
// opportunistically, heaviest pending item first; Join blocks until every
// submitted item has run exactly once.
//
// A Pool is shared infrastructure: it is injected into dispatch engines,
// not owned by them, and survives across batches until Close.
type Pool struct {
	mu          sync.Mutex
	hasWork     *sync.Cond // signalled when pending gains an item or the pool closes
	idle        *sync.Cond // signalled when outstanding drops to zero
	pending     itemHeap
	outstanding int
	seq         int
	errs        []error
	closed      bool
	workers     int
	wg          sync.WaitGroup
}

// New starts a pool with the given number of worker goroutines.
func New(workers int) *Pool {
	if workers < 1 {
		panic(fmt.Sprintf("pool: worker count must be >= 1, got %d", workers))
	}
	p := &Pool{workers: workers}
	p.hasWork = sync.NewCond(&p.mu)
	p.idle = sync.NewCond(&p.mu)
	p.wg.Add(workers)
	for t := 0; t < workers; t++ {
		go p.work(t)
	}
	return p
}

// Workers returns the fixed worker count.
func (p *Pool) Workers() int {
	return p.workers
}

// Submit queues one work item with a scheduling weight hint. Heavier items
// are preferred when a worker picks its next item.
func (p *Pool) Submit(item Item, weight int64) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		panic("pool: submit after Close")
	}
	heap.Push(&p.pending, &pendingItem{run: item, weight: weight, seq: p.seq})
	p.seq++
	p.outstanding++
	p.mu.Unlock()
	p.hasWork.Signal()
}

// Join blocks until all items submitted so far have completed and returns
// the combined error of any failed items. The per-batch error slate is
// cleared on return.
func (p *Pool) Join() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for p.outstanding > 0 {
		p.idle.Wait()
	}
	err := errors.Join(p.errs...)
	p.errs = nil
	return err
}

// Close stops the workers. Pending items still run; Close does not wait
// for them (call Join first).
func (p *Pool) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.hasWork.Broadcast()
	p.wg.Wait()
}

func (p *Pool) work(thread int) {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		for len(p.pending) == 0 && !p.closed {
			p.hasWork.Wait()
		}
		if len(p.pending) == 0 && p.closed {
			p.mu.Unlock()
			return
		}
		it := heap.Pop(&p.pending).(*pendingItem)
		p.mu.Unlock()

		p.runItem(it, thread)
	}
}

// runItem executes one item and records its completion. The accounting
// runs on every exit, including a panicking item, so Join never waits for
// an item that already unwound; the panic lands on the error slate.
func (p *Pool) runItem(it *pendingItem, thread int) {
	var err error
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pool: work item panicked: %v", r)
		}
		p.mu.Lock()
		if err != nil {
			p.errs = append(p.errs, err)
		}
		p.outstanding--
		done := p.outstanding == 0
		p.mu.Unlock()
		if done {
			p.idle.Broadcast()
		}
	}()
	err = it.run(thread)
}
