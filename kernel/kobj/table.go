package kobj

import "threados/kernel"

// Handle is an index into a handle table.
type Handle int32

var (
	errBadHandle = &kernel.Error{Module: "kobj", Message: "bad handle", Errno: kernel.EBADF}
	errNilObject = &kernel.Error{Module: "kobj", Message: "cannot insert a nil object", Errno: kernel.EINVAL}
)

// Table maps handles to kernel objects. New objects are assigned the lowest
// free handle.
type Table struct {
	objects []Object
	count   int
}

// Insert stores obj and returns its handle. The reference held by the
// caller is transferred to the table.
func (t *Table) Insert(obj Object) (Handle, *kernel.Error) {
	if obj == nil {
		return -1, errNilObject
	}

	for i, slot := range t.objects {
		if slot == nil {
			t.objects[i] = obj
			t.count++
			return Handle(i), nil
		}
	}

	t.objects = append(t.objects, obj)
	t.count++
	return Handle(len(t.objects) - 1), nil
}

// Get returns the object referenced by h.
func (t *Table) Get(h Handle) (Object, *kernel.Error) {
	if h < 0 || int(h) >= len(t.objects) || t.objects[h] == nil {
		return nil, errBadHandle
	}
	return t.objects[h], nil
}

// Remove unlinks h from the table and returns the object it referenced.
// The object reference is not released.
func (t *Table) Remove(h Handle) (Object, *kernel.Error) {
	obj, err := t.Get(h)
	if err != nil {
		return nil, err
	}

	t.objects[h] = nil
	t.count--
	return obj, nil
}

// Dup creates a new handle that refers to the same object as h and takes
// an additional reference to the object.
func (t *Table) Dup(h Handle) (Handle, *kernel.Error) {
	obj, err := t.Get(h)
	if err != nil {
		return -1, err
	}

	if err = obj.Hdr().Acquire(); err != nil {
		return -1, err
	}

	return t.Insert(obj)
}

// Close releases the object referenced by h and removes the handle. If the
// object cannot be released, the handle remains valid.
func (t *Table) Close(h Handle) *kernel.Error {
	obj, err := t.Get(h)
	if err != nil {
		return err
	}

	if err = Release(obj); err != nil {
		return err
	}

	t.Remove(h)
	return nil
}

// Len returns the number of open handles.
func (t *Table) Len() int { return t.count }

// Each invokes fn for each open handle in ascending handle order.
func (t *Table) Each(fn func(Handle, Object)) {
	for i, obj := range t.objects {
		if obj != nil {
			fn(Handle(i), obj)
		}
	}
}
