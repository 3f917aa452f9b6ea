// Package mempool recycles the scratch buffers of the detection and
// recognition hot paths: input tensors and connected-component masks.
package mempool

import "sync"

const classStep = 1024

// sizeClass rounds n up to a multiple of 1024 so nearby sizes share a pool.
func sizeClass(n int) int {
	if n <= classStep {
		return classStep
	}
	return (n + classStep - 1) / classStep * classStep
}

// Pool hands out slices of T grouped by size class. The zero value is ready
// to use.
type Pool[T any] struct {
	classes sync.Map // size class -> *sync.Pool
}

func (p *Pool[T]) class(cls int) *sync.Pool {
	v, _ := p.classes.LoadOrStore(cls, &sync.Pool{New: func() any {
		buf := make([]T, cls)
		return &buf
	}})
	return v.(*sync.Pool)
}

// Get returns a slice of length n. Its contents are whatever the previous
// user left behind.
func (p *Pool[T]) Get(n int) []T {
	if n < 0 {
		n = 0
	}
	cls := sizeClass(n)
	bp := p.class(cls).Get().(*[]T)
	buf := *bp
	if cap(buf) < cls {
		buf = make([]T, cls)
	}
	return buf[:n]
}

// Put returns buf to its pool. Nil slices are ignored.
func (p *Pool[T]) Put(buf []T) {
	if buf == nil {
		return
	}
	// Slices that did not come from Get may fall between classes; file them
	// under the largest class they can fully serve.
	c := cap(buf)
	cls := c / classStep * classStep
	if cls == 0 {
		return
	}
	buf = buf[:c]
	p.class(cls).Put(&buf)
}

var (
	float32s Pool[float32]
	bools    Pool[bool]
)

// GetFloat32 returns a float32 buffer of length n from the shared pool.
func GetFloat32(n int) []float32 { return float32s.Get(n) }

// PutFloat32 hands buf back to the shared pool.
func PutFloat32(buf []float32) { float32s.Put(buf) }

// GetBool returns a zeroed bool buffer of length n from the shared pool.
func GetBool(n int) []bool {
	buf := bools.Get(n)
	clear(buf)
	return buf
}

// PutBool hands buf back to the shared pool.
func PutBool(buf []bool) { bools.Put(buf) }
