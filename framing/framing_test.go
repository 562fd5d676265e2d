package framing

import (
	"bytes"
	"testing"
)

// fakeTransport is a minimal in-process Transport: writes to one side land
// directly in the other side's RX buffer, with no real concurrency.
type fakeTransport struct {
	rx   []byte
	peer *fakeTransport
}

func newFakeTransportPair() (*fakeTransport, *fakeTransport) {
	a := &fakeTransport{}
	b := &fakeTransport{}
	a.peer, b.peer = b, a
	return a, b
}

func (f *fakeTransport) Init() error { return nil }

func (f *fakeTransport) TxWrite(data []byte) error {
	f.peer.rx = append(f.peer.rx, data...)
	return nil
}

func (f *fakeTransport) RxCount() (uint16, error) {
	return uint16(len(f.rx)), nil
}

func (f *fakeTransport) RxRead(buf []byte) (int, Status) {
	if len(f.rx) < len(buf) {
		return 0, StatusNoData
	}
	n := copy(buf, f.rx)
	f.rx = f.rx[n:]
	return n, StatusOK
}

func (f *fakeTransport) Yield() {}

// fakeClock advances on every call so a receive timeout loop that never
// sees enough bytes converges instead of spinning forever.
type fakeClock struct {
	t uint32
}

func (c *fakeClock) NowMs() uint32 {
	c.t += 100
	return c.t
}

func TestEncodeMatchesLiteralByteSequence(t *testing.T) {
	inner := BuildLcdPrint([]byte("OK"))
	frame, err := Encode(NewAddress(1, 0), Broadcast, inner)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := []byte{0x46, 0x52, 0x08, 0xFF, 0x04, 0x12, 0x02, 0x4F, 0x4B, 0xF3}
	if !bytes.Equal(frame, want) {
		t.Fatalf("encode mismatch:\n got  % X\n want % X", frame, want)
	}
}

func TestEncodeRejectsOversizedInner(t *testing.T) {
	inner := make([]byte, MaxInnerLength+1)
	if _, err := Encode(NewAddress(1, 0), Broadcast, inner); err != ErrPayloadTooLarge {
		t.Fatalf("expected ErrPayloadTooLarge, got %v", err)
	}
}

func TestReceiverDeliversFrameToHandler(t *testing.T) {
	a, b := newFakeTransportPair()
	self := NewAddress(1, 0)
	dest := NewAddress(2, 3)

	sender := &Sender{Transport: a, Self: self}
	var gotEnable bool
	var called bool
	receiver := &Receiver{
		Transport: b,
		Clock:     &fakeClock{},
		Self:      dest,
		Handlers: Handlers{
			SetLed: func(enable bool) {
				called = true
				gotEnable = enable
			},
		},
	}

	if err := sender.SendSetLed(dest, true); err != nil {
		t.Fatalf("send: %v", err)
	}
	receiver.Worker()

	if !called {
		t.Fatalf("expected SetLed handler to be invoked")
	}
	if !gotEnable {
		t.Fatalf("expected enable=true")
	}
}

func TestReceiverAcceptsBroadcast(t *testing.T) {
	a, b := newFakeTransportPair()
	self := NewAddress(1, 0)

	sender := &Sender{Transport: a, Self: self}
	var called bool
	receiver := &Receiver{
		Transport: b,
		Clock:     &fakeClock{},
		Self:      NewAddress(9, 9),
		Handlers: Handlers{
			ToggleLed: func() { called = true },
		},
	}

	if err := sender.SendToggleLed(Broadcast); err != nil {
		t.Fatalf("send: %v", err)
	}
	receiver.Worker()

	if !called {
		t.Fatalf("expected a broadcast frame to be delivered regardless of Self")
	}
}

func TestReceiverDropsFrameAddressedElsewhere(t *testing.T) {
	a, b := newFakeTransportPair()
	sender := &Sender{Transport: a, Self: NewAddress(1, 0)}
	var called bool
	receiver := &Receiver{
		Transport: b,
		Clock:     &fakeClock{},
		Self:      NewAddress(5, 5),
		Handlers: Handlers{
			ToggleLed: func() { called = true },
		},
	}

	if err := sender.SendToggleLed(NewAddress(6, 6)); err != nil {
		t.Fatalf("send: %v", err)
	}
	receiver.Worker()

	if called {
		t.Fatalf("frame addressed to a different node must not be delivered")
	}
}

func TestReceiverDropsOnChecksumMismatch(t *testing.T) {
	a, b := newFakeTransportPair()
	sender := &Sender{Transport: a, Self: NewAddress(1, 0)}
	var called bool
	receiver := &Receiver{
		Transport: b,
		Clock:     &fakeClock{},
		Self:      NewAddress(1, 0),
		Handlers: Handlers{
			ToggleLed: func() { called = true },
		},
	}

	if err := sender.SendToggleLed(NewAddress(1, 0)); err != nil {
		t.Fatalf("send: %v", err)
	}
	// Flip every bit of the already-transmitted command byte, invalidating the
	// trailing checksum without touching the start flag or header.
	b.rx[5] ^= 0xFF
	receiver.Worker()

	if called {
		t.Fatalf("a frame with a mismatched checksum must be silently dropped")
	}
}

func TestReceiverTimesOutOnIncompleteFrame(t *testing.T) {
	_, b := newFakeTransportPair()
	receiver := &Receiver{
		Transport: b,
		Clock:     &fakeClock{},
		Self:      NewAddress(1, 0),
	}
	b.rx = []byte{0x46} // only the first start-flag byte ever arrives
	receiver.Worker()  // must return instead of spinning forever
}

func TestProcessFrameLcdPrintEmptyText(t *testing.T) {
	var got []byte
	called := false
	h := Handlers{LcdPrint: func(text []byte) {
		called = true
		got = text
	}}
	inner := BuildLcdPrint(nil)
	ProcessFrame(inner, h)
	if !called {
		t.Fatalf("expected LcdPrint handler to fire for an empty string")
	}
	if len(got) != 0 {
		t.Fatalf("expected empty text, got %q", got)
	}
}

func TestProcessFrameLcdPrintRejectsOverlongLength(t *testing.T) {
	called := false
	h := Handlers{LcdPrint: func(text []byte) { called = true }}
	inner := []byte{byte(LcdPrint), 33}
	inner = append(inner, bytes.Repeat([]byte{'x'}, 33)...)
	ProcessFrame(inner, h)
	if called {
		t.Fatalf("a length byte of 33 exceeds MaxLcdTextLength and must be dropped")
	}
}

func TestBuildLcdPrintClampsToMaxLength(t *testing.T) {
	text := bytes.Repeat([]byte{'a'}, MaxLcdTextLength+10)
	inner := BuildLcdPrint(text)
	if inner[1] != MaxLcdTextLength {
		t.Fatalf("expected clamped length byte %d, got %d", MaxLcdTextLength, inner[1])
	}
	if len(inner) != 2+MaxLcdTextLength {
		t.Fatalf("expected inner frame length %d, got %d", 2+MaxLcdTextLength, len(inner))
	}
}

func TestProcessFrameSensorDataNoOp(t *testing.T) {
	called := false
	h := Handlers{SensorData: func(kind, paramKind uint8, scalar uint32) { called = true }}
	inner := BuildSensorData(1, 2, 3)
	ProcessFrame(inner, h)
	if !called {
		t.Fatalf("expected SensorData handler to be invoked when wired")
	}

	called = false
	ProcessFrame(inner, Handlers{})
	if called {
		t.Fatalf("no handler wired must be a silent no-op")
	}
}

func TestAddressTeamAndSub(t *testing.T) {
	addr := NewAddress(12, 5)
	if addr.Team() != 12 {
		t.Fatalf("expected team 12, got %d", addr.Team())
	}
	if addr.Sub() != 5 {
		t.Fatalf("expected sub 5, got %d", addr.Sub())
	}
}
