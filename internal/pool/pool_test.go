package pool

import (
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

func TestEveryItemRunsExactlyOnce(t *testing.T) {
	p := New(4)
	defer p.Close()

	const n = 200
	var runs [n]atomic.Int32
	for i := 0; i < n; i++ {
		i := i
		p.Submit(func(thread int) error {
			runs[i].Add(1)
			return nil
		}, int64(i))
	}
	if err := p.Join(); err != nil {
		t.Fatalf("Join: %v", err)
	}
	for i := range runs {
		if got := runs[i].Load(); got != 1 {
			t.Errorf("item %d ran %d times, want 1", i, got)
		}
	}
}

func TestJoinReturnsItemErrors(t *testing.T) {
	p := New(2)
	defer p.Close()

	boom := errors.New("boom")
	p.Submit(func(int) error { return nil }, 1)
	p.Submit(func(int) error { return boom }, 1)
	if err := p.Join(); !errors.Is(err, boom) {
		t.Errorf("Join = %v, want wrapped %v", err, boom)
	}

	// The error slate is per join: the next batch starts clean.
	p.Submit(func(int) error { return nil }, 1)
	if err := p.Join(); err != nil {
		t.Errorf("second Join = %v, want nil", err)
	}
}

func TestPendingQueueDrainsHeaviestFirst(t *testing.T) {
	p := New(1)
	defer p.Close()

	// Occupy the single worker so the remaining submissions pile up in
	// the pending queue, then observe drain order.
	gate := make(chan struct{})
	p.Submit(func(int) error {
		<-gate
		return nil
	}, 1<<40)

	var mu sync.Mutex
	var order []int64
	for _, w := range []int64{10, 1000, 50} {
		w := w
		p.Submit(func(int) error {
			mu.Lock()
			order = append(order, w)
			mu.Unlock()
			return nil
		}, w)
	}

	close(gate)
	if err := p.Join(); err != nil {
		t.Fatalf("Join: %v", err)
	}

	want := []int64{1000, 50, 10}
	for i, w := range want {
		if order[i] != w {
			t.Fatalf("drain order = %v, want %v", order, want)
		}
	}
}

func TestPanickingItemDoesNotStrandJoin(t *testing.T) {
	p := New(2)
	defer p.Close()

	p.Submit(func(int) error { panic("kaboom") }, 1)
	p.Submit(func(int) error { return nil }, 1)

	err := p.Join()
	if err == nil {
		t.Fatal("Join should surface the panic as an error")
	}
	if got := err.Error(); !strings.Contains(got, "kaboom") {
		t.Errorf("Join error = %q, want the panic value in it", got)
	}

	// The pool keeps working afterwards.
	ran := false
	p.Submit(func(int) error { ran = true; return nil }, 1)
	if err := p.Join(); err != nil {
		t.Fatalf("Join after panic = %v, want nil", err)
	}
	if !ran {
		t.Error("item submitted after a panic never ran")
	}
}

func TestJoinWithNothingSubmitted(t *testing.T) {
	p := New(2)
	defer p.Close()
	if err := p.Join(); err != nil {
		t.Errorf("Join on idle pool = %v, want nil", err)
	}
}
