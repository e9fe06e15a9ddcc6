package syscall

import (
	"threados/kernel"
	"threados/kernel/kfmt"
	"threados/kernel/kobj"
	"threados/kernel/ksync"
)

// lookup resolves h in the handle table of the calling process.
func (c *call) lookup(h kobj.Handle) (kobj.Object, *kernel.Error) {
	if c.proc == nil {
		return nil, errNoProcess
	}
	return c.proc.Object(h)
}

// install stores a freshly created object in the handle table of the calling
// process. The object is destroyed if no handle can be allocated.
func (c *call) install(obj kobj.Object) (int64, *kernel.Error) {
	h, err := c.proc.AddObject(obj)
	if err != nil {
		if derr := obj.Destroy(); derr != nil {
			kfmt.Fprintf(log, "unable to destroy orphaned %s: %s\n", obj.Hdr().Kind(), derr.Message)
		}
		return 0, err
	}
	return int64(h), nil
}

func (c *call) handleParams() (*HandleParams, *kernel.Error) {
	params, ok := c.params.(*HandleParams)
	if !ok || params == nil {
		return nil, errFault
	}
	return params, nil
}

func (c *call) mutex(h kobj.Handle) (*ksync.Mutex, *kernel.Error) {
	obj, err := c.lookup(h)
	if err != nil {
		return nil, err
	}
	m, ok := obj.(*ksync.Mutex)
	if !ok {
		return nil, errBadHandle
	}
	return m, nil
}

func (c *call) cond(h kobj.Handle) (*ksync.Cond, *kernel.Error) {
	obj, err := c.lookup(h)
	if err != nil {
		return nil, err
	}
	cv, ok := obj.(*ksync.Cond)
	if !ok {
		return nil, errBadHandle
	}
	return cv, nil
}

func (c *call) semaphore(h kobj.Handle) (*ksync.Semaphore, *kernel.Error) {
	obj, err := c.lookup(h)
	if err != nil {
		return nil, err
	}
	sem, ok := obj.(*ksync.Semaphore)
	if !ok {
		return nil, errBadHandle
	}
	return sem, nil
}

func (c *call) msgQueue(h kobj.Handle) (*ksync.MsgQueue, *kernel.Error) {
	obj, err := c.lookup(h)
	if err != nil {
		return nil, err
	}
	q, ok := obj.(*ksync.MsgQueue)
	if !ok {
		return nil, errBadHandle
	}
	return q, nil
}

func sysMutexCreate(c *call) (int64, *kernel.Error) {
	if c.proc == nil {
		return 0, errNoProcess
	}
	return c.install(ksync.NewMutex(c.d.s))
}

func sysMutexLock(c *call) (int64, *kernel.Error) {
	params, err := c.handleParams()
	if err != nil {
		return 0, err
	}
	m, err := c.mutex(params.Handle)
	if err != nil {
		return 0, err
	}
	return 0, m.Lock()
}

func sysMutexTryLock(c *call) (int64, *kernel.Error) {
	params, err := c.handleParams()
	if err != nil {
		return 0, err
	}
	m, err := c.mutex(params.Handle)
	if err != nil {
		return 0, err
	}
	return 0, m.TryLock()
}

func sysMutexUnlock(c *call) (int64, *kernel.Error) {
	params, err := c.handleParams()
	if err != nil {
		return 0, err
	}
	m, err := c.mutex(params.Handle)
	if err != nil {
		return 0, err
	}
	return 0, m.Unlock()
}

func sysCondCreate(c *call) (int64, *kernel.Error) {
	if c.proc == nil {
		return 0, errNoProcess
	}
	return c.install(ksync.NewCond(c.d.s))
}

func sysCondWait(c *call) (int64, *kernel.Error) {
	params, ok := c.params.(*CondWaitParams)
	if !ok || params == nil {
		return 0, errFault
	}
	cv, err := c.cond(params.Cond)
	if err != nil {
		return 0, err
	}
	m, err := c.mutex(params.Mutex)
	if err != nil {
		return 0, err
	}
	return 0, cv.Wait(m)
}

func sysCondSignal(c *call) (int64, *kernel.Error) {
	params, err := c.handleParams()
	if err != nil {
		return 0, err
	}
	cv, err := c.cond(params.Handle)
	if err != nil {
		return 0, err
	}
	return 0, cv.Signal()
}

func sysCondBroadcast(c *call) (int64, *kernel.Error) {
	params, err := c.handleParams()
	if err != nil {
		return 0, err
	}
	cv, err := c.cond(params.Handle)
	if err != nil {
		return 0, err
	}
	return 0, cv.Broadcast()
}

func sysSemCreate(c *call) (int64, *kernel.Error) {
	params, ok := c.params.(*SemCreateParams)
	if !ok || params == nil {
		return 0, errFault
	}
	if c.proc == nil {
		return 0, errNoProcess
	}

	sem, err := ksync.NewSemaphore(c.d.s, params.Initial)
	if err != nil {
		return 0, err
	}
	return c.install(sem)
}

func sysSemWait(c *call) (int64, *kernel.Error) {
	params, err := c.handleParams()
	if err != nil {
		return 0, err
	}
	sem, err := c.semaphore(params.Handle)
	if err != nil {
		return 0, err
	}
	return 0, sem.Wait()
}

func sysSemTryWait(c *call) (int64, *kernel.Error) {
	params, err := c.handleParams()
	if err != nil {
		return 0, err
	}
	sem, err := c.semaphore(params.Handle)
	if err != nil {
		return 0, err
	}
	return 0, sem.TryWait()
}

func sysSemPost(c *call) (int64, *kernel.Error) {
	params, err := c.handleParams()
	if err != nil {
		return 0, err
	}
	sem, err := c.semaphore(params.Handle)
	if err != nil {
		return 0, err
	}
	return 0, sem.Post()
}

func sysMqCreate(c *call) (int64, *kernel.Error) {
	params, ok := c.params.(*MqCreateParams)
	if !ok || params == nil {
		return 0, errFault
	}
	if c.proc == nil {
		return 0, errNoProcess
	}

	limits := c.d.limits
	if (limits.MaxMsg > 0 && params.MaxMsg > limits.MaxMsg) ||
		(limits.MsgSize > 0 && params.MsgSize > limits.MsgSize) {
		return 0, errMqLimits
	}

	q, err := ksync.NewMsgQueue(c.d.s, c.d.m.Allocator(), params.MaxMsg, params.MsgSize)
	if err != nil {
		return 0, err
	}
	return c.install(q)
}

func sysMqSend(c *call) (int64, *kernel.Error) {
	return mqSend(c, true)
}

func sysMqTrySend(c *call) (int64, *kernel.Error) {
	return mqSend(c, false)
}

func mqSend(c *call, block bool) (int64, *kernel.Error) {
	params, ok := c.params.(*MqSendParams)
	if !ok || params == nil {
		return 0, errFault
	}
	q, err := c.msgQueue(params.Handle)
	if err != nil {
		return 0, err
	}

	if block {
		return 0, q.Send(params.Data, params.Prio)
	}
	return 0, q.TrySend(params.Data, params.Prio)
}

func sysMqReceive(c *call) (int64, *kernel.Error) {
	return mqReceive(c, true)
}

func sysMqTryReceive(c *call) (int64, *kernel.Error) {
	return mqReceive(c, false)
}

// mqReceive returns the length of the received message and stores its
// priority in the parameter block.
func mqReceive(c *call, block bool) (int64, *kernel.Error) {
	params, ok := c.params.(*MqReceiveParams)
	if !ok || params == nil {
		return 0, errFault
	}
	q, err := c.msgQueue(params.Handle)
	if err != nil {
		return 0, err
	}

	var (
		n    int
		prio uint
	)
	if block {
		n, prio, err = q.Receive(params.Buf)
	} else {
		n, prio, err = q.TryReceive(params.Buf)
	}
	if err != nil {
		return 0, err
	}

	params.Prio = prio
	return int64(n), nil
}

func sysHandleClose(c *call) (int64, *kernel.Error) {
	params, err := c.handleParams()
	if err != nil {
		return 0, err
	}
	if c.proc == nil {
		return 0, errNoProcess
	}
	return 0, c.proc.CloseHandle(params.Handle)
}

func sysHandleDup(c *call) (int64, *kernel.Error) {
	params, err := c.handleParams()
	if err != nil {
		return 0, err
	}
	if c.proc == nil {
		return 0, errNoProcess
	}

	h, err := c.proc.DupHandle(params.Handle)
	if err != nil {
		return 0, err
	}
	return int64(h), nil
}
