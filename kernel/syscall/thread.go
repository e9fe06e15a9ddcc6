package syscall

import (
	"threados/kernel"
	"threados/kernel/sched"
)

func sysThreadCreate(c *call) (int64, *kernel.Error) {
	params, ok := c.params.(*ThreadCreateParams)
	if !ok || params == nil {
		return 0, errFault
	}
	if c.proc == nil {
		return 0, errNoProcess
	}

	policy := params.Policy
	if policy == nil {
		policy = sched.Plain{}
	}

	t, err := c.proc.CreateThread(params.Entry, params.Arg, policy, params.Priority)
	if err != nil {
		return 0, err
	}
	return int64(t.ID()), nil
}

func sysThreadExit(c *call) (int64, *kernel.Error) {
	var status uintptr
	if c.params != nil {
		params, ok := c.params.(*ExitParams)
		if !ok || params == nil {
			return 0, errFault
		}
		status = params.Status
	}

	c.d.s.Exit(status)
	return 0, nil
}

func sysThreadJoin(c *call) (int64, *kernel.Error) {
	params, ok := c.params.(*ThreadParams)
	if !ok || params == nil {
		return 0, errFault
	}

	var (
		retval uintptr
		err    *kernel.Error
	)
	if c.proc != nil {
		retval, err = c.proc.Join(params.ID)
	} else {
		retval, err = c.d.s.Join(params.ID)
	}
	if err != nil {
		return 0, err
	}

	params.RetVal = retval
	return 0, nil
}

func sysThreadDetach(c *call) (int64, *kernel.Error) {
	params, ok := c.params.(*ThreadParams)
	if !ok || params == nil {
		return 0, errFault
	}

	if c.proc != nil {
		return 0, c.proc.Detach(params.ID)
	}
	return 0, c.d.s.Detach(params.ID)
}

func sysThreadSelf(c *call) (int64, *kernel.Error) {
	return int64(c.thread.ID()), nil
}

func sysThreadYield(c *call) (int64, *kernel.Error) {
	c.d.s.Yield()
	return 0, nil
}

func sysThreadSleep(c *call) (int64, *kernel.Error) {
	params, ok := c.params.(*SleepParams)
	if !ok || params == nil {
		return 0, errFault
	}
	return 0, c.d.s.Sleep(params.Ticks)
}

// sysThreadWaitPeriod reports a missed deadline as ETIMEDOUT once the miss
// policy has been applied.
func sysThreadWaitPeriod(c *call) (int64, *kernel.Error) {
	missed, err := c.d.s.WaitPeriod()
	switch {
	case err != nil:
		return 0, err
	case missed:
		return 0, errDeadlineMissed
	}
	return 0, nil
}

func sysThreadSetPriority(c *call) (int64, *kernel.Error) {
	params, ok := c.params.(*PriorityParams)
	if !ok || params == nil {
		return 0, errFault
	}

	if c.proc != nil && !c.proc.Member(c.d.s.Lookup(params.ID)) {
		return 0, errNoSuchThread
	}
	return 0, c.d.s.SetPriority(params.ID, params.Priority)
}

func sysProcessExit(c *call) (int64, *kernel.Error) {
	var status uintptr
	if c.params != nil {
		params, ok := c.params.(*ExitParams)
		if !ok || params == nil {
			return 0, errFault
		}
		status = params.Status
	}

	if c.proc == nil {
		return 0, errNoProcess
	}
	return 0, c.proc.Exit(status)
}
