package ksync

import (
	"threados/kernel"
	"threados/kernel/kobj"
	"threados/kernel/mem"
	"threados/kernel/sched"
)

// message is a queued message. Its payload is owned by the queue until it is
// copied into a receiver's buffer.
type message struct {
	prio uint
	data []byte
	size int
}

// recvRequest describes a receiver blocked on an empty queue.
type recvRequest struct {
	buf  []byte
	n    int
	prio uint
}

// MsgQueue is a bounded queue of messages sorted by descending priority.
// Messages of equal priority are delivered in the order they were sent.
type MsgQueue struct {
	kobj.Header

	s       *sched.Scheduler
	alloc   mem.Allocator
	maxMsg  int
	msgSize int

	msgs      []*message
	senders   sched.Queue
	receivers sched.Queue
}

// NewMsgQueue returns a queue holding up to maxMsg messages of up to msgSize
// bytes each. Message payloads are allocated from alloc.
func NewMsgQueue(s *sched.Scheduler, alloc mem.Allocator, maxMsg, msgSize int) (*MsgQueue, *kernel.Error) {
	if maxMsg < 1 || msgSize < 1 {
		return nil, errInvalidValue
	}

	q := &MsgQueue{
		s:       s,
		alloc:   alloc,
		maxMsg:  maxMsg,
		msgSize: msgSize,
		msgs:    make([]*message, 0, maxMsg),
	}
	q.Init(kobj.KindMsgQueue)
	s.InitQueue(&q.senders, nil)
	s.InitQueue(&q.receivers, nil)
	return q, nil
}

// MaxMsg returns the queue capacity.
func (q *MsgQueue) MaxMsg() int { return q.maxMsg }

// MsgSize returns the maximum message size.
func (q *MsgQueue) MsgSize() int { return q.msgSize }

// Len returns the number of queued messages.
func (q *MsgQueue) Len() int {
	prev := q.s.DisableInterrupts()
	n := len(q.msgs)
	q.s.RestoreInterrupts(prev)
	return n
}

// Send queues a copy of data with the given priority, blocking while the
// queue is full.
func (q *MsgQueue) Send(data []byte, prio uint) *kernel.Error {
	return q.send(data, prio, true)
}

// TrySend queues a copy of data or fails with EAGAIN if the queue is full.
func (q *MsgQueue) TrySend(data []byte, prio uint) *kernel.Error {
	return q.send(data, prio, false)
}

func (q *MsgQueue) send(data []byte, prio uint, block bool) *kernel.Error {
	if len(data) > q.msgSize {
		return errMsgSize
	}

	prev := q.s.DisableInterrupts()
	defer q.s.RestoreInterrupts(prev)

	if err := q.CheckLive(); err != nil {
		return err
	}

	// A waiting receiver implies an empty queue; hand the message over.
	if r := q.receivers.First(); r != nil {
		req := r.WaitInfo().(*recvRequest)
		req.n, req.prio = copy(req.buf, data), prio
		q.s.Wake(r, int64(req.n))
		return nil
	}

	full := len(q.msgs) >= q.maxMsg
	if full && (!block || q.s.Idle()) {
		return errWouldBlock
	}

	msg, err := q.newMessage(data, prio)
	if err != nil {
		return err
	}

	if !full {
		q.insert(msg)
		return nil
	}

	// The receiver that frees a slot queues msg before waking us up.
	cur := q.s.Current()
	cur.SetWaitInfo(msg)
	q.s.Block(&q.senders)
	cur.SetWaitInfo(nil)
	return nil
}

// Receive copies the highest priority message into buf, blocking while the
// queue is empty. It returns the message length and priority. buf must be
// able to hold messages of MsgSize bytes.
func (q *MsgQueue) Receive(buf []byte) (int, uint, *kernel.Error) {
	return q.receive(buf, true)
}

// TryReceive behaves like Receive but fails with EAGAIN if the queue is
// empty.
func (q *MsgQueue) TryReceive(buf []byte) (int, uint, *kernel.Error) {
	return q.receive(buf, false)
}

func (q *MsgQueue) receive(buf []byte, block bool) (int, uint, *kernel.Error) {
	if len(buf) < q.msgSize {
		return 0, 0, errBufSize
	}

	prev := q.s.DisableInterrupts()
	defer q.s.RestoreInterrupts(prev)

	if err := q.CheckLive(); err != nil {
		return 0, 0, err
	}

	if len(q.msgs) == 0 {
		if !block || q.s.Idle() {
			return 0, 0, errWouldBlock
		}

		// The next sender copies its message into buf before waking us.
		cur := q.s.Current()
		req := &recvRequest{buf: buf}
		cur.SetWaitInfo(req)
		q.s.Block(&q.receivers)
		cur.SetWaitInfo(nil)
		return req.n, req.prio, nil
	}

	msg := q.msgs[0]
	copy(q.msgs, q.msgs[1:])
	q.msgs[len(q.msgs)-1] = nil
	q.msgs = q.msgs[:len(q.msgs)-1]

	n := copy(buf, msg.data[:msg.size])
	q.freeMessage(msg)

	if s := q.senders.First(); s != nil {
		q.insert(s.WaitInfo().(*message))
		q.s.Wake(s, 0)
	}

	return n, msg.prio, nil
}

// insert links msg after all queued messages of equal or higher priority.
func (q *MsgQueue) insert(msg *message) {
	at := len(q.msgs)
	for i, queued := range q.msgs {
		if queued.prio < msg.prio {
			at = i
			break
		}
	}

	q.msgs = append(q.msgs, nil)
	copy(q.msgs[at+1:], q.msgs[at:])
	q.msgs[at] = msg
}

func (q *MsgQueue) newMessage(data []byte, prio uint) (*message, *kernel.Error) {
	msg := &message{prio: prio, size: len(data)}
	if len(data) == 0 {
		return msg, nil
	}

	buf, err := q.alloc.Alloc(mem.Size(len(data)))
	if err != nil {
		return nil, err
	}

	msg.data = buf
	copy(msg.data, data)
	return msg, nil
}

func (q *MsgQueue) freeMessage(msg *message) {
	if msg.data != nil {
		q.alloc.Free(msg.data)
		msg.data = nil
	}
}

// Destroy implements kobj.Object. Queued messages are discarded.
func (q *MsgQueue) Destroy() *kernel.Error {
	prev := q.s.DisableInterrupts()
	defer q.s.RestoreInterrupts(prev)

	if q.senders.Len() != 0 || q.receivers.Len() != 0 {
		return errBusy
	}

	for _, msg := range q.msgs {
		q.freeMessage(msg)
	}
	q.msgs = q.msgs[:0]
	return nil
}
