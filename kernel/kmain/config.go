package kmain

import (
	"strconv"
	"time"

	"threados/kernel"
	"threados/kernel/kfmt"
	"threados/kernel/mem"
	"threados/kernel/sched"
	"threados/kernel/syscall"
)

var errInvalidValue = &kernel.Error{Module: "kmain", Message: "invalid boot parameter value", Errno: kernel.EINVAL}

// Config collects the boot parameters of the kernel.
type Config struct {
	Sched sched.Config

	// TickPeriod is the duration of a timer tick.
	TickPeriod time.Duration

	// MemLimit is the budget of the kernel allocator that backs thread
	// stacks, process regions and message payloads.
	MemLimit mem.Size

	// Limits caps message queue geometry requested by user threads.
	Limits syscall.Limits

	// Init is the name of the first program to run.
	Init string

	// Quiet discards the kernel log.
	Quiet bool
}

// DefaultConfig returns the configuration used for keys missing from the
// boot command line.
func DefaultConfig() Config {
	return Config{
		Sched:      sched.DefaultConfig(),
		TickPeriod: 10 * time.Millisecond,
		MemLimit:   4 * mem.Mb,
		Limits:     syscall.Limits{MaxMsg: 10, MsgSize: 256},
		Init:       "init",
	}
}

// ParseConfig builds a Config from the key-value pairs of the boot command
// line. Unknown keys are ignored. Unless edf_band is given, the EDF band is
// the highest priority level.
func ParseConfig(kv map[string]string) (Config, *kernel.Error) {
	var (
		cfg = DefaultConfig()
		n   int
		err *kernel.Error
	)

	for _, key := range []string{"prio_levels", "edf_band", "rr_quantum", "tick_ms", "stack_kb", "max_threads", "mem_kb", "mq_maxmsg", "mq_msgsize"} {
		val, ok := kv[key]
		if !ok {
			continue
		}

		lowest := 1
		if key == "edf_band" {
			lowest = 0
		}

		if n, err = parseNumber(key, val, lowest); err != nil {
			return cfg, err
		}

		switch key {
		case "prio_levels":
			cfg.Sched.PrioLevels = n
		case "edf_band":
			cfg.Sched.EDFBand = n
		case "rr_quantum":
			cfg.Sched.Quantum = uint64(n)
		case "tick_ms":
			cfg.TickPeriod = time.Duration(n) * time.Millisecond
		case "stack_kb":
			cfg.Sched.StackSize = mem.Size(n) * mem.Kb
		case "max_threads":
			cfg.Sched.MaxThreads = n
		case "mem_kb":
			cfg.MemLimit = mem.Size(n) * mem.Kb
		case "mq_maxmsg":
			cfg.Limits.MaxMsg = n
		case "mq_msgsize":
			cfg.Limits.MsgSize = n
		}
	}

	if _, ok := kv["edf_band"]; !ok {
		cfg.Sched.EDFBand = cfg.Sched.PrioLevels - 1
	}

	if name := kv["init"]; name != "" {
		cfg.Init = name
	}

	if val, ok := kv["quiet"]; ok {
		cfg.Quiet = val != "off" && val != "false" && val != "0"
	}

	return cfg, nil
}

// parseNumber parses a decimal value that is at least lowest.
func parseNumber(key, val string, lowest int) (int, *kernel.Error) {
	n, err := strconv.Atoi(val)
	if err != nil || n < lowest {
		kfmt.Fprintf(log, "invalid value '%s' for boot parameter %s\n", val, key)
		return 0, errInvalidValue
	}
	return n, nil
}
