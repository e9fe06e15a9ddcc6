package ksync

import (
	"testing"

	"threados/kernel/irq"
	"threados/kernel/mem"
	"threados/kernel/sched"
	"threados/kernel/timer"
)

func newTestScheduler(t *testing.T) (*sched.Scheduler, *timer.ManualClock) {
	t.Helper()

	irqs := irq.NewController()
	clk := timer.NewManualClock(irqs)
	s, err := sched.New(sched.DefaultConfig(), clk, irqs, mem.NewPool(4*mem.Mb))
	if err != nil {
		t.Fatal(err)
	}
	return s, clk
}

func spawn(t *testing.T, s *sched.Scheduler, policy sched.Policy, prio int, entry func()) *sched.Thread {
	t.Helper()

	th, err := s.Create(func(uintptr) uintptr {
		entry()
		return 0
	}, 0, policy, prio, nil)
	if err != nil {
		t.Fatal(err)
	}
	return th
}

func run(t *testing.T, s *sched.Scheduler) {
	t.Helper()

	if err := s.Run(); err != nil {
		t.Fatal(err)
	}
}
