package sync

import (
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSpinlock(t *testing.T) {
	var yields uint32
	defer func(origYieldFn func()) { yieldFn = origYieldFn }(yieldFn)
	yieldFn = func() {
		atomic.AddUint32(&yields, 1)
		runtime.Gosched()
	}

	var (
		sl         Spinlock
		wg         sync.WaitGroup
		numWorkers = 10
		counter    int
	)

	sl.Acquire()

	if sl.TryToAcquire() != false {
		t.Error("expected TryToAcquire to return false when lock is held")
	}

	if !sl.Held() {
		t.Error("expected Held to return true while the lock is held")
	}

	wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go func(worker int) {
			sl.Acquire()
			counter++
			sl.Release()
			wg.Done()
		}(i)
	}

	<-time.After(100 * time.Millisecond)
	sl.Release()
	wg.Wait()

	if counter != numWorkers {
		t.Fatalf("expected counter to be %d; got %d", numWorkers, counter)
	}

	if atomic.LoadUint32(&yields) == 0 {
		t.Fatal("expected contended Acquire calls to yield")
	}

	if sl.Held() {
		t.Fatal("expected lock to be free")
	}
}

func TestSpinlockReleasedByAnotherTask(t *testing.T) {
	var sl Spinlock
	sl.Acquire()

	done := make(chan struct{})
	go func() {
		sl.Release()
		close(done)
	}()
	<-done

	if !sl.TryToAcquire() {
		t.Fatal("expected lock released by another task to be acquirable")
	}
}
