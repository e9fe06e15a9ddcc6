package sched

// slotRef links a thread to its queue neighbours. It stores the neighbour's
// table slot plus one so that the zero value means "no thread".
type slotRef int32

const noSlot = slotRef(0)

// table is the slab of thread descriptors owned by a Scheduler. Queue links
// are slab indices rather than pointers.
type table struct {
	slots []*Thread
	free  []int32
	limit int
}

func (tab *table) at(ref slotRef) *Thread {
	if ref == noSlot {
		return nil
	}
	return tab.slots[ref-1]
}

// insert stores t in a free slot. It returns false if the table is full.
func (tab *table) insert(t *Thread) bool {
	if n := len(tab.free); n != 0 {
		t.slot = tab.free[n-1]
		tab.free = tab.free[:n-1]
		tab.slots[t.slot] = t
		return true
	}

	if len(tab.slots) >= tab.limit {
		return false
	}

	t.slot = int32(len(tab.slots))
	tab.slots = append(tab.slots, t)
	return true
}

func (tab *table) remove(t *Thread) {
	tab.slots[t.slot] = nil
	tab.free = append(tab.free, t.slot)
}

// LessFn reports whether a must be ordered before b in a sorted queue.
type LessFn func(a, b *Thread) bool

// Queue is an ordered list of threads. It serves both as a scheduler ready
// queue and as the wait list of blocking primitives. A thread can be linked
// into at most one queue at a time.
//
// The zero value is an empty FIFO queue. All Queue methods must be invoked
// with interrupts disabled.
type Queue struct {
	tab        *table
	head, tail slotRef
	len        int
	less       LessFn
}

// Len returns the number of queued threads.
func (q *Queue) Len() int { return q.len }

// First returns the thread at the head of the queue or nil.
func (q *Queue) First() *Thread { return q.resolve(q.head) }

// Last returns the thread at the tail of the queue or nil.
func (q *Queue) Last() *Thread { return q.resolve(q.tail) }

// Append links t at the tail of the queue.
func (q *Queue) Append(t *Thread) {
	q.linkBefore(t, nil)
}

// Prepend links t at the head of the queue.
func (q *Queue) Prepend(t *Thread) {
	q.linkBefore(t, q.First())
}

// Insert links t in sorted order, after any threads that compare equal to
// it. Queues without an ordering function behave like Append.
func (q *Queue) Insert(t *Thread) {
	if q.less == nil {
		q.Append(t)
		return
	}

	q.linkBefore(t, q.Find(func(cur *Thread) bool { return q.less(t, cur) }))
}

// insertFront links t in sorted order, ahead of any threads that compare
// equal to it.
func (q *Queue) insertFront(t *Thread) {
	if q.less == nil {
		q.Prepend(t)
		return
	}

	q.linkBefore(t, q.Find(func(cur *Thread) bool { return !q.less(cur, t) }))
}

// Find returns the first queued thread for which match returns true.
func (q *Queue) Find(match func(*Thread) bool) *Thread {
	for cur := q.First(); cur != nil; cur = q.resolve(cur.next) {
		if match(cur) {
			return cur
		}
	}
	return nil
}

// Contains returns true if t is linked into this queue.
func (q *Queue) Contains(t *Thread) bool {
	return t != nil && t.queue == q
}

// Remove unlinks t from the queue. It returns false if t is not queued here.
func (q *Queue) Remove(t *Thread) bool {
	if !q.Contains(t) {
		return false
	}

	if prev := q.tab.at(t.prev); prev != nil {
		prev.next = t.next
	} else {
		q.head = t.next
	}

	if next := q.tab.at(t.next); next != nil {
		next.prev = t.prev
	} else {
		q.tail = t.prev
	}

	t.prev, t.next, t.queue = noSlot, noSlot, nil
	q.len--
	return true
}

// RemoveAt unlinks and returns the thread at position index, or nil if the
// index is out of range.
func (q *Queue) RemoveAt(index int) *Thread {
	if index < 0 || index >= q.len {
		return nil
	}

	cur := q.First()
	for ; index > 0; index-- {
		cur = q.resolve(cur.next)
	}

	q.Remove(cur)
	return cur
}

// PopFirst unlinks and returns the head of the queue or nil if the queue is
// empty.
func (q *Queue) PopFirst() *Thread {
	t := q.First()
	if t != nil {
		q.Remove(t)
	}
	return t
}

func (q *Queue) resolve(ref slotRef) *Thread {
	if q.tab == nil {
		return nil
	}
	return q.tab.at(ref)
}

// linkBefore links t in front of at, or at the tail if at is nil.
func (q *Queue) linkBefore(t *Thread, at *Thread) {
	if t.queue != nil {
		panicFn(errAlreadyQueued)
		return
	}

	if q.tab == nil {
		q.tab = t.tab
	}

	self := slotRef(t.slot + 1)
	t.queue = q

	if at == nil {
		t.prev, t.next = q.tail, noSlot
		if tail := q.tab.at(q.tail); tail != nil {
			tail.next = self
		} else {
			q.head = self
		}
		q.tail = self
	} else {
		t.prev, t.next = at.prev, slotRef(at.slot+1)
		if prev := q.tab.at(at.prev); prev != nil {
			prev.next = self
		} else {
			q.head = self
		}
		at.prev = self
	}

	q.len++
}
