// Package transport adapts byte-oriented links to framing.Transport: a
// MemoryTransport for tests and simulation, and a SerialTransport backed by
// the adapted serial package for a real radio link.
package transport

import (
	"runtime"
	"sync"

	"github.com/fh-aachen/deos/framing"
)

// MemoryTransport is an in-memory loopback-style Transport: writes to one
// end land in the other end's RX ring. Two MemoryTransports sharing a pair
// of rings stand in for two radio nodes talking to each other in tests.
type MemoryTransport struct {
	mu      sync.Mutex
	rx      []byte
	peer    *MemoryTransport
	yielded chan struct{}
}

// NewMemoryTransportPair returns two transports wired so that a write on
// one appears on the other's RX side.
func NewMemoryTransportPair() (*MemoryTransport, *MemoryTransport) {
	a := &MemoryTransport{yielded: make(chan struct{}, 1)}
	b := &MemoryTransport{yielded: make(chan struct{}, 1)}
	a.peer = b
	b.peer = a
	return a, b
}

func (m *MemoryTransport) Init() error { return nil }

func (m *MemoryTransport) TxWrite(data []byte) error {
	m.peer.mu.Lock()
	m.peer.rx = append(m.peer.rx, data...)
	m.peer.mu.Unlock()
	select {
	case m.peer.yielded <- struct{}{}:
	default:
	}
	return nil
}

func (m *MemoryTransport) RxCount() (uint16, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return uint16(len(m.rx)), nil
}

func (m *MemoryTransport) RxRead(buf []byte) (int, framing.Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.rx) < len(buf) {
		return 0, framing.StatusNoData
	}
	n := copy(buf, m.rx)
	m.rx = m.rx[n:]
	return n, framing.StatusOK
}

// Yield gives other goroutines a chance to run; in tests it is usually
// driven from inside a kernel process, so it just does a plain scheduling
// point rather than a real sleep.
func (m *MemoryTransport) Yield() {
	select {
	case <-m.yielded:
	default:
	}
	runtime.Gosched()
}

// InjectGarbage appends raw bytes directly to the RX ring without going
// through a peer's TxWrite, for exercising checksum/framing-error paths.
func (m *MemoryTransport) InjectGarbage(data []byte) {
	m.mu.Lock()
	m.rx = append(m.rx, data...)
	m.mu.Unlock()
}
