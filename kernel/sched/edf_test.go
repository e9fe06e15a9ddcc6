package sched

import (
	"strings"
	"testing"

	"threados/kernel"
)

func TestEDFOrdering(t *testing.T) {
	s, _, _ := newTestScheduler(t, DefaultConfig())
	band := s.Config().EDFBand

	var trace []string
	record := func(name string) func() uintptr {
		return func() uintptr {
			trace = append(trace, name)
			return 0
		}
	}

	mustCreate(t, s, EDF{Deadline: 10, Period: 10}, band, record("A"))
	mustCreate(t, s, EDF{Deadline: 5, Period: 10}, band, record("B"))
	mustCreate(t, s, nil, band, record("P"))
	mustCreate(t, s, nil, band-1, record("L"))

	mustRun(t, s)

	if exp, got := "B,A,P,L", strings.Join(trace, ","); got != exp {
		t.Fatalf("expected execution order %q; got %q", exp, got)
	}
}

func TestEDFEarlierDeadlinePreempts(t *testing.T) {
	s, _, _ := newTestScheduler(t, DefaultConfig())
	band := s.Config().EDFBand

	var trace []string
	mustCreate(t, s, EDF{Deadline: 20, Period: 20}, band, func() uintptr {
		trace = append(trace, "A1")
		mustCreate(t, s, EDF{Deadline: 30, Period: 30}, band, func() uintptr {
			trace = append(trace, "C")
			return 0
		})
		mustCreate(t, s, EDF{Deadline: 5, Period: 10}, band, func() uintptr {
			trace = append(trace, "B")
			return 0
		})
		trace = append(trace, "A2")
		return 0
	})

	mustRun(t, s)

	if exp, got := "A1,B,A2,C", strings.Join(trace, ","); got != exp {
		t.Fatalf("expected execution order %q; got %q", exp, got)
	}
}

func TestWaitPeriod(t *testing.T) {
	specs := []struct {
		descr       string
		miss        MissPolicy
		work        uint64
		expMissed   bool
		expNow      uint64
		expDeadline uint64
	}{
		{"deadline met", MissTerminate, 3, false, 10, 20},
		{"work ends at the deadline", MissTerminate, 10, false, 10, 20},
		{"miss and continue", MissContinue, 15, true, 15, 25},
		{"miss and skip", MissSkip, 25, true, 30, 40},
	}

	for _, spec := range specs {
		spec := spec
		t.Run(spec.descr, func(t *testing.T) {
			s, clk, _ := newTestScheduler(t, DefaultConfig())

			var (
				done        bool
				missed      bool
				waitErr     *kernel.Error
				now         uint64
				deadline    uint64
				nextNow     uint64
				nextMissed  bool
				nextWaitErr *kernel.Error
			)

			mustCreate(t, s, EDF{Period: 10, Miss: spec.miss}, s.Config().EDFBand, func() uintptr {
				clk.Advance(spec.work)

				missed, waitErr = s.WaitPeriod()
				now, deadline = clk.Now(), s.Current().Deadline()

				// The following cycle finishes in time.
				nextMissed, nextWaitErr = s.WaitPeriod()
				nextNow = clk.Now()

				done = true
				return 0
			})
			mustCreate(t, s, nil, 0, ticker(s, clk, &done))

			mustRun(t, s)

			if waitErr != nil || nextWaitErr != nil {
				t.Fatalf("unexpected errors: %v, %v", waitErr, nextWaitErr)
			}

			if missed != spec.expMissed {
				t.Errorf("expected missed to be %t; got %t", spec.expMissed, missed)
			}

			if now != spec.expNow {
				t.Errorf("expected WaitPeriod to return at tick %d; got %d", spec.expNow, now)
			}

			if deadline != spec.expDeadline {
				t.Errorf("expected new deadline %d; got %d", spec.expDeadline, deadline)
			}

			if nextMissed || nextNow != spec.expDeadline {
				t.Errorf("expected next cycle to end at tick %d without a miss; got tick %d (missed: %t)", spec.expDeadline, nextNow, nextMissed)
			}

			expMisses := uint64(0)
			if spec.expMissed {
				expMisses = 1
			}
			if got := s.Stats().DeadlineMisses; got != expMisses {
				t.Errorf("expected %d deadline misses; got %d", expMisses, got)
			}
		})
	}
}

func TestWaitPeriodMissTerminate(t *testing.T) {
	s, clk, _ := newTestScheduler(t, DefaultConfig())

	var reached bool
	th := mustCreate(t, s, EDF{Period: 10, Miss: MissTerminate}, s.Config().EDFBand, func() uintptr {
		clk.Advance(15)
		s.WaitPeriod()
		reached = true
		return 0
	})

	mustRun(t, s)

	if reached {
		t.Fatal("expected thread to be terminated when missing its deadline")
	}

	retval, err := s.Join(th.ID())
	if err != nil {
		t.Fatal(err)
	}

	if retval != ExitDeadlineMiss {
		t.Fatalf("expected exit value ExitDeadlineMiss; got %d", retval)
	}

	if got := s.Stats().DeadlineMisses; got != 1 {
		t.Fatalf("expected 1 deadline miss; got %d", got)
	}
}

func TestWaitPeriodRequiresEDF(t *testing.T) {
	s, _, _ := newTestScheduler(t, DefaultConfig())

	var waitErr *kernel.Error
	mustCreate(t, s, RoundRobin{}, 3, func() uintptr {
		_, waitErr = s.WaitPeriod()
		return 0
	})

	mustRun(t, s)

	if waitErr != errNotEDF {
		t.Fatalf("expected errNotEDF; got %v", waitErr)
	}
}

func TestWaitPeriodYieldsToEarlierDeadline(t *testing.T) {
	specs := []struct {
		descr       string
		miss        MissPolicy
		work        uint64
		expDeadline uint64
	}{
		{"work ends at the deadline", MissTerminate, 10, 30},
		{"miss and continue", MissContinue, 12, 32},
	}

	for _, spec := range specs {
		spec := spec
		t.Run(spec.descr, func(t *testing.T) {
			s, clk, _ := newTestScheduler(t, DefaultConfig())
			band := s.Config().EDFBand

			var (
				trace    []string
				deadline uint64
			)

			mustCreate(t, s, EDF{Deadline: 10, Period: 20, Miss: spec.miss}, band, func() uintptr {
				mustCreate(t, s, EDF{Deadline: 15, Period: 20}, band, func() uintptr {
					trace = append(trace, "B")
					return 0
				})

				clk.Advance(spec.work)
				s.WaitPeriod()
				deadline = s.Current().Deadline()
				trace = append(trace, "A")
				return 0
			})

			mustRun(t, s)

			if exp, got := "B,A", strings.Join(trace, ","); got != exp {
				t.Fatalf("expected execution order %q; got %q", exp, got)
			}

			if deadline != spec.expDeadline {
				t.Fatalf("expected new deadline %d; got %d", spec.expDeadline, deadline)
			}
		})
	}
}
