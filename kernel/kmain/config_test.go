package kmain

import (
	"testing"
	"time"

	"threados/kernel"
	"threados/kernel/mem"
	"threados/kernel/sched"
)

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := ParseConfig(map[string]string{})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Sched != sched.DefaultConfig() {
		t.Errorf("expected default scheduler config; got %+v", cfg.Sched)
	}

	if cfg.TickPeriod != 10*time.Millisecond {
		t.Errorf("expected 10ms ticks; got %v", cfg.TickPeriod)
	}

	if cfg.MemLimit != 4*mem.Mb {
		t.Errorf("expected 4Mb allocator budget; got %d", cfg.MemLimit)
	}

	if cfg.Limits.MaxMsg != 10 || cfg.Limits.MsgSize != 256 {
		t.Errorf("expected queue limits 10x256; got %dx%d", cfg.Limits.MaxMsg, cfg.Limits.MsgSize)
	}

	if cfg.Init != "init" || cfg.Quiet {
		t.Errorf("expected to run init with logging enabled; got %q, quiet=%t", cfg.Init, cfg.Quiet)
	}
}

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig(ParseCmdLine("prio_levels=8 rr_quantum=2 tick_ms=1 stack_kb=16 max_threads=32 mem_kb=1024 mq_maxmsg=4 mq_msgsize=64 init=shell quiet"))
	if err != nil {
		t.Fatal(err)
	}

	exp := Config{
		Sched: sched.Config{
			PrioLevels: 8,
			EDFBand:    7,
			Quantum:    2,
			StackSize:  16 * mem.Kb,
			MaxThreads: 32,
		},
		TickPeriod: time.Millisecond,
		MemLimit:   mem.Mb,
		Init:       "shell",
		Quiet:      true,
	}
	exp.Limits.MaxMsg = 4
	exp.Limits.MsgSize = 64

	if cfg != exp {
		t.Fatalf("expected config %+v; got %+v", exp, cfg)
	}

	t.Run("explicit EDF band", func(t *testing.T) {
		cfg, err := ParseConfig(map[string]string{"prio_levels": "8", "edf_band": "0"})
		if err != nil {
			t.Fatal(err)
		}

		if cfg.Sched.EDFBand != 0 {
			t.Fatalf("expected EDF band 0; got %d", cfg.Sched.EDFBand)
		}
	})

	t.Run("quiet off", func(t *testing.T) {
		cfg, _ := ParseConfig(map[string]string{"quiet": "off"})
		if cfg.Quiet {
			t.Fatal("expected quiet=off to keep logging enabled")
		}
	})
}

func TestParseConfigInvalidValues(t *testing.T) {
	specs := []map[string]string{
		{"prio_levels": "lots"},
		{"prio_levels": "0"},
		{"edf_band": "-1"},
		{"rr_quantum": "0"},
		{"tick_ms": "1.5"},
		{"stack_kb": ""},
		{"max_threads": "-4"},
		{"mem_kb": "0x10"},
		{"mq_maxmsg": "0"},
		{"mq_msgsize": "none"},
	}

	for specIndex, spec := range specs {
		if _, err := ParseConfig(spec); err != errInvalidValue {
			t.Errorf("[spec %d] expected errInvalidValue; got %v", specIndex, err)
		} else if err.Errno != kernel.EINVAL {
			t.Errorf("[spec %d] expected EINVAL; got %s", specIndex, err.Errno)
		}
	}
}
