package main

import (
	"os"
	"strings"

	"threados/kernel"
	"threados/kernel/kfmt"
	"threados/kernel/kmain"
	"threados/kernel/kobj"
	"threados/kernel/mem"
	"threados/kernel/proc"
	"threados/kernel/sched"
	"threados/kernel/syscall"
)

const initWorkers = 4

func init() {
	proc.RegisterProgram(&proc.ProgramInfo{
		Name: "init",
		Load: loadInit,
	})
}

func loadInit() (*proc.Image, *kernel.Error) {
	return &proc.Image{
		Entry:    initMain,
		Priority: 2,
		MemSize:  16 * mem.Kb,
	}, nil
}

// initMain starts a round-robin worker per slot, collects one report from
// each worker over a message queue and waits for them to exit.
func initMain(uintptr) uintptr {
	u := kmain.Active().Usys()

	q, errno := u.MqCreate(initWorkers, 8)
	if errno != 0 {
		kfmt.Printf("init: unable to create report queue: %s\n", errno)
		return 1
	}

	var workers [initWorkers]sched.ThreadID
	for i := range workers {
		if workers[i], errno = u.ThreadCreate(worker(u, q), uintptr(i), sched.RoundRobin{}, 1); errno != 0 {
			kfmt.Printf("init: unable to start worker %d: %s\n", i, errno)
			return 1
		}
	}

	buf := make([]byte, 8)
	for range workers {
		n, prio, errno := u.MqReceive(q, buf)
		if errno != 0 {
			kfmt.Printf("init: receive failed: %s\n", errno)
			return 1
		}
		kfmt.Printf("init: worker %d reported '%s'\n", prio, buf[:n])
	}

	for i, id := range workers {
		if _, errno = u.ThreadJoin(id); errno != 0 {
			kfmt.Printf("init: unable to join worker %d: %s\n", i, errno)
		}
	}

	u.Close(q)
	return 0
}

func worker(u *syscall.Usys, q kobj.Handle) func(uintptr) uintptr {
	return func(slot uintptr) uintptr {
		for i := 0; i < 3; i++ {
			u.ThreadYield()
		}
		u.MqSend(q, []byte("done"), uint(slot))
		return 0
	}
}

// main is the boot trampoline. The kernel command line is taken from the
// program arguments.
func main() {
	kmain.Kmain(strings.Join(os.Args[1:], " "), os.Stdout)
}
