package transport

import (
	"runtime"
	"sync"
	"time"

	"github.com/fh-aachen/deos/framing"
	serial "github.com/fh-aachen/deos"
)

// pumpReadSize is how much the background reader pulls from the port per
// call; the radio link never sends anything close to this in one frame.
const pumpReadSize = 256

// SerialTransport adapts a serial.Port opened over RadioLink into a
// framing.Transport. A background goroutine continuously drains the port
// into an in-memory ring so RxCount/RxRead never block on the kernel's
// single cooperative goroutine.
type SerialTransport struct {
	port *serial.Port

	mu  sync.Mutex
	buf []byte

	closeOnce sync.Once
	done      chan struct{}
}

// NewSerialTransport wraps an already-open radio link port. Callers
// typically obtain port via serial.RadioLink.
func NewSerialTransport(port *serial.Port) *SerialTransport {
	return &SerialTransport{
		port: port,
		done: make(chan struct{}),
	}
}

func (s *SerialTransport) Init() error {
	go s.pump()
	return nil
}

func (s *SerialTransport) pump() {
	chunk := make([]byte, pumpReadSize)
	for {
		select {
		case <-s.done:
			return
		default:
		}
		n, err := s.port.Read(chunk)
		if n > 0 {
			s.mu.Lock()
			s.buf = append(s.buf, chunk[:n]...)
			s.mu.Unlock()
		}
		if err != nil {
			time.Sleep(time.Millisecond)
		}
	}
}

func (s *SerialTransport) TxWrite(data []byte) error {
	_, err := s.port.Write(data)
	return err
}

func (s *SerialTransport) RxCount() (uint16, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return uint16(len(s.buf)), nil
}

func (s *SerialTransport) RxRead(buf []byte) (int, framing.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.buf) < len(buf) {
		return 0, framing.StatusNoData
	}
	n := copy(buf, s.buf)
	s.buf = s.buf[n:]
	return n, framing.StatusOK
}

// Yield cedes the processor briefly; the kernel process driving the
// receive worker calls this while waiting for more bytes to arrive from
// the pump goroutine.
func (s *SerialTransport) Yield() {
	runtime.Gosched()
}

// Close stops the pump goroutine and closes the underlying port.
func (s *SerialTransport) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return s.port.Close()
}
