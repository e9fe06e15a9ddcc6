package ksync

import (
	"strings"
	"testing"

	"threados/kernel"
	"threados/kernel/kobj"
	"threados/kernel/mem"
)

func TestMsgQueueValidation(t *testing.T) {
	s, _ := newTestScheduler(t)
	pool := mem.NewPool(mem.Kb)

	for _, spec := range [][2]int{{0, 8}, {8, 0}, {-1, -1}} {
		if _, err := NewMsgQueue(s, pool, spec[0], spec[1]); err != errInvalidValue {
			t.Errorf("expected errInvalidValue for maxMsg=%d, msgSize=%d; got %v", spec[0], spec[1], err)
		}
	}

	q, err := NewMsgQueue(s, pool, 2, 4)
	if err != nil {
		t.Fatal(err)
	}

	if err = q.TrySend([]byte("too long"), 0); err != errMsgSize {
		t.Fatalf("expected errMsgSize; got %v", err)
	}

	if _, _, err = q.TryReceive(make([]byte, 2)); err != errBufSize {
		t.Fatalf("expected errBufSize; got %v", err)
	}

	if _, _, err = q.TryReceive(make([]byte, 4)); err != errWouldBlock {
		t.Fatalf("expected errWouldBlock on empty queue; got %v", err)
	}

	q.TrySend([]byte("a"), 0)
	q.TrySend([]byte("b"), 0)
	if err = q.TrySend([]byte("c"), 0); err != errWouldBlock {
		t.Fatalf("expected errWouldBlock on full queue; got %v", err)
	}

	// The idle context cannot block on a full queue either.
	if err = q.Send([]byte("c"), 0); err != errWouldBlock {
		t.Fatalf("expected errWouldBlock; got %v", err)
	}

	if q.MaxMsg() != 2 || q.MsgSize() != 4 || q.Len() != 2 {
		t.Fatalf("unexpected queue geometry: maxMsg=%d, msgSize=%d, len=%d", q.MaxMsg(), q.MsgSize(), q.Len())
	}

	// Destroying a queue discards its messages.
	if err = kobj.Release(q); err != nil {
		t.Fatal(err)
	}

	if pool.InUse() != 0 {
		t.Fatalf("expected queued payloads to be freed; %d bytes in use", pool.InUse())
	}

	if err = q.TrySend([]byte("x"), 0); err == nil || err.Errno != kernel.EBADF {
		t.Fatalf("expected EBADF after destroy; got %v", err)
	}
}

func TestMsgQueuePriorityOrder(t *testing.T) {
	var (
		s, _ = newTestScheduler(t)
		pool = mem.NewPool(mem.Kb)
	)

	q, _ := NewMsgQueue(s, pool, 8, 16)

	msgs := []struct {
		data string
		prio uint
	}{
		{"a", 1}, {"b", 3}, {"c", 1}, {"d", 3}, {"e", 2}, {"", 2},
	}
	for _, msg := range msgs {
		if err := q.TrySend([]byte(msg.data), msg.prio); err != nil {
			t.Fatal(err)
		}
	}

	var (
		got   []string
		prios []uint
		buf   = make([]byte, 16)
	)
	for q.Len() != 0 {
		n, prio, err := q.TryReceive(buf)
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, string(buf[:n]))
		prios = append(prios, prio)
	}

	if exp := "b,d,e,,a,c"; strings.Join(got, ",") != exp {
		t.Fatalf("expected receive order %q; got %q", exp, strings.Join(got, ","))
	}

	for i, exp := range []uint{3, 3, 2, 2, 1, 1} {
		if prios[i] != exp {
			t.Fatalf("expected message %d to have priority %d; got %d", i, exp, prios[i])
		}
	}

	if pool.InUse() != 0 {
		t.Fatalf("expected received payloads to be freed; %d bytes in use", pool.InUse())
	}
}

func TestMsgQueueSendBlocksWhenFull(t *testing.T) {
	var (
		s, _       = newTestScheduler(t)
		pool       = mem.NewPool(mem.Kb)
		q, _       = NewMsgQueue(s, pool, 2, 8)
		trace      []string
		destroyErr *kernel.Error
	)

	spawn(t, s, nil, 5, func() {
		for _, msg := range []string{"m1", "m2", "m3"} {
			trace = append(trace, "send "+msg)
			q.Send([]byte(msg), 0)
		}
		trace = append(trace, "sent")
	})

	spawn(t, s, nil, 1, func() {
		destroyErr = q.Destroy()

		buf := make([]byte, 8)
		for i := 0; i < 3; i++ {
			n, _, _ := q.Receive(buf)
			trace = append(trace, "recv "+string(buf[:n]))
		}
	})

	run(t, s)

	exp := "send m1,send m2,send m3,sent,recv m1,recv m2,recv m3"
	if got := strings.Join(trace, ","); got != exp {
		t.Fatalf("expected trace %q; got %q", exp, got)
	}

	if destroyErr != errBusy {
		t.Fatalf("expected destroy with a blocked sender to fail with errBusy; got %v", destroyErr)
	}

	if pool.InUse() != 0 {
		t.Fatalf("expected all payloads to be freed; %d bytes in use", pool.InUse())
	}
}

func TestMsgQueueReceiverBlocksWhenEmpty(t *testing.T) {
	var (
		s, _  = newTestScheduler(t)
		pool  = mem.NewPool(mem.Kb)
		q, _  = NewMsgQueue(s, pool, 2, 8)
		got   string
		prio  uint
		trace []string
	)

	spawn(t, s, nil, 5, func() {
		buf := make([]byte, 8)
		trace = append(trace, "receive")
		n, p, _ := q.Receive(buf)
		got, prio = string(buf[:n]), p
		trace = append(trace, "received")
	})

	spawn(t, s, nil, 1, func() {
		trace = append(trace, "send")
		q.Send([]byte("hello"), 7)
		trace = append(trace, "sent")
	})

	run(t, s)

	if exp := "receive,send,received,sent"; strings.Join(trace, ",") != exp {
		t.Fatalf("expected trace %q; got %q", exp, strings.Join(trace, ","))
	}

	if got != "hello" || prio != 7 {
		t.Fatalf("expected to receive %q with priority 7; got %q with priority %d", "hello", got, prio)
	}

	if q.Len() != 0 || pool.InUse() != 0 {
		t.Fatal("expected message to be handed over without being queued")
	}
}
