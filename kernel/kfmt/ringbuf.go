package kfmt

import "io"

// ringBufferSize defines the capacity of the early output buffer. It can hold
// the contents of a standard 80*25 text console.
const ringBufferSize = 2048

// ringBuffer keeps the most recent ringBufferSize bytes written to it; older
// bytes are overwritten once the buffer is full.
type ringBuffer struct {
	buffer      [ringBufferSize]byte
	start, used int
}

// Write appends p to the buffer, discarding the oldest data if required.
func (rb *ringBuffer) Write(p []byte) (int, error) {
	for _, b := range p {
		rb.buffer[(rb.start+rb.used)%ringBufferSize] = b
		if rb.used < ringBufferSize {
			rb.used++
			continue
		}
		rb.start = (rb.start + 1) % ringBufferSize
	}

	return len(p), nil
}

// Read drains up to len(p) bytes from the buffer. It returns io.EOF once the
// buffer is empty.
func (rb *ringBuffer) Read(p []byte) (int, error) {
	if rb.used == 0 {
		return 0, io.EOF
	}

	n := 0
	for n < len(p) && rb.used > 0 {
		end := rb.start + rb.used
		if end > ringBufferSize {
			end = ringBufferSize
		}

		copied := copy(p[n:], rb.buffer[rb.start:end])
		n += copied
		rb.used -= copied
		rb.start = (rb.start + copied) % ringBufferSize
	}

	return n, nil
}
