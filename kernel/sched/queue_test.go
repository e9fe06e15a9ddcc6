package sched

import (
	"testing"

	"threados/kernel/kfmt"
)

func newQueueThreads(count int) []*Thread {
	tab := &table{limit: count}
	threads := make([]*Thread, count)
	for i := range threads {
		threads[i] = &Thread{id: ThreadID(i + 1), tab: tab}
		tab.insert(threads[i])
	}
	return threads
}

func queueIDs(q *Queue) []ThreadID {
	var ids []ThreadID
	for t := q.First(); t != nil; t = q.resolve(t.next) {
		ids = append(ids, t.id)
	}
	return ids
}

func assertQueue(t *testing.T, q *Queue, exp ...ThreadID) {
	t.Helper()

	got := queueIDs(q)
	if len(got) != len(exp) || q.Len() != len(exp) {
		t.Fatalf("expected queue %v (len %d); got %v (len %d)", exp, len(exp), got, q.Len())
	}
	for i := range exp {
		if got[i] != exp[i] {
			t.Fatalf("expected queue %v; got %v", exp, got)
		}
	}
}

func TestQueueFIFO(t *testing.T) {
	var (
		threads = newQueueThreads(5)
		q       Queue
	)

	if q.First() != nil || q.Last() != nil || q.PopFirst() != nil {
		t.Fatal("expected zero value queue to be empty")
	}

	q.Append(threads[0])
	q.Append(threads[1])
	q.Prepend(threads[2])
	q.Append(threads[3])
	assertQueue(t, &q, 3, 1, 2, 4)

	if got := q.First(); got != threads[2] {
		t.Fatalf("expected First() to return thread 3; got %d", got.id)
	}

	if got := q.Last(); got != threads[3] {
		t.Fatalf("expected Last() to return thread 4; got %d", got.id)
	}

	if got := q.Find(func(t *Thread) bool { return t.id%2 == 0 }); got != threads[1] {
		t.Fatal("expected Find to return the first matching thread")
	}

	if !q.Remove(threads[0]) {
		t.Fatal("expected Remove to succeed")
	}
	assertQueue(t, &q, 3, 2, 4)

	if q.Remove(threads[0]) || q.Remove(threads[4]) {
		t.Fatal("expected Remove of an unlinked thread to fail")
	}

	if got := q.RemoveAt(2); got != threads[3] {
		t.Fatal("expected RemoveAt(2) to return the tail")
	}

	if got := q.RemoveAt(5); got != nil {
		t.Fatal("expected RemoveAt with an out of range index to return nil")
	}
	assertQueue(t, &q, 3, 2)

	if got := q.PopFirst(); got != threads[2] {
		t.Fatal("expected PopFirst to return the head")
	}
	assertQueue(t, &q, 2)

	q.PopFirst()
	assertQueue(t, &q)

	// Threads can be linked again once removed.
	q.Append(threads[4])
	q.Append(threads[0])
	assertQueue(t, &q, 5, 1)
}

func TestQueueSorted(t *testing.T) {
	var (
		threads = newQueueThreads(5)
		q       = Queue{less: wakeAtLess}
	)

	for i, wakeAt := range []uint64{30, 10, 20, 10, 20} {
		threads[i].wakeAt = wakeAt
	}

	q.Insert(threads[0])
	q.Insert(threads[1])
	q.Insert(threads[2])
	q.Insert(threads[3])
	assertQueue(t, &q, 2, 4, 3, 1)

	// insertFront places a thread ahead of its equals.
	q.insertFront(threads[4])
	assertQueue(t, &q, 2, 4, 5, 3, 1)
}

func TestQueueEDFOrder(t *testing.T) {
	var (
		threads = newQueueThreads(4)
		q       = Queue{less: edfLess}
	)

	threads[0].policy = Plain{}
	threads[1].policy, threads[1].deadline = EDF{Period: 1}, 50
	threads[2].policy = RoundRobin{}
	threads[3].policy, threads[3].deadline = EDF{Period: 1}, 20

	for _, th := range threads {
		q.Insert(th)
	}

	assertQueue(t, &q, 4, 2, 1, 3)
}

func TestQueueDoubleLinkIsFatal(t *testing.T) {
	defer func() {
		panicFn = kfmt.Panic
	}()

	var fatalErr interface{}
	panicFn = func(e interface{}) {
		fatalErr = e
	}

	var (
		threads = newQueueThreads(1)
		q1, q2  Queue
	)

	q1.Append(threads[0])
	q2.Append(threads[0])

	if fatalErr != errAlreadyQueued {
		t.Fatalf("expected errAlreadyQueued; got %v", fatalErr)
	}

	assertQueue(t, &q1, 1)
	assertQueue(t, &q2)
}

func TestTableSlotReuse(t *testing.T) {
	tab := &table{limit: 2}

	a, b, c := &Thread{}, &Thread{}, &Thread{}
	if !tab.insert(a) || !tab.insert(b) {
		t.Fatal("expected inserts to succeed")
	}

	if tab.insert(c) {
		t.Fatal("expected insert into a full table to fail")
	}

	tab.remove(a)
	if !tab.insert(c) {
		t.Fatal("expected insert to reuse a released slot")
	}

	if c.slot != a.slot {
		t.Fatalf("expected slot %d to be reused; got %d", a.slot, c.slot)
	}
}
