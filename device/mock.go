package device

import (
	"fmt"
	"sync"
)

// Mock is an in-memory register file.  Unwritten registers read as zero.
type Mock struct {
	sync.Mutex
	regs  map[uint32]int64
	fails map[uint32]int
	reads int
}

// NewMock creates an empty register file
func NewMock() *Mock {
	return &Mock{
		regs:  make(map[uint32]int64),
		fails: make(map[uint32]int),
	}
}

// Set stores a value without it counting as a write, as if the hardware had changed it
func (m *Mock) Set(addr uint32, value int64) {
	m.Lock()
	defer m.Unlock()
	m.regs[addr] = value
}

// Get returns the stored value of addr
func (m *Mock) Get(addr uint32) int64 {
	m.Lock()
	defer m.Unlock()
	return m.regs[addr]
}

// Fail makes the next n reads of addr fail with ErrTransient
func (m *Mock) Fail(addr uint32, n int) {
	m.Lock()
	defer m.Unlock()
	m.fails[addr] = n
}

// Reads is the number of read attempts so far, failed ones included
func (m *Mock) Reads() int {
	m.Lock()
	defer m.Unlock()
	return m.reads
}

// ReadRegister implements Reader
func (m *Mock) ReadRegister(addr uint32) (int64, error) {
	m.Lock()
	defer m.Unlock()
	m.reads++
	if m.fails[addr] > 0 {
		m.fails[addr]--
		return 0, fmt.Errorf("%w: read of %#x timed out", ErrTransient, addr)
	}
	return m.regs[addr], nil
}

// WriteRegister implements Writer
func (m *Mock) WriteRegister(addr uint32, value int64) error {
	m.Lock()
	defer m.Unlock()
	m.regs[addr] = value
	return nil
}
