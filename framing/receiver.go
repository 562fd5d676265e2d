package framing

// receiveTimeoutMs is the per-invocation timeout the receive state machine
// measures every wait against.
const receiveTimeoutMs uint32 = 500

// Receiver assembles at most one frame per Worker call off a Transport's RX
// ring, grounded on serialAdapter_worker. Every abort path is silent: the
// next Worker call simply restarts looking for a start flag.
type Receiver struct {
	Transport Transport
	Clock     Clock
	Self      Address
	Handlers  Handlers
}

func (r *Receiver) hasTimedOut(start uint32) bool {
	return r.Clock.NowMs()-start >= receiveTimeoutMs
}

// waitForBytes blocks, yielding cooperatively, until count bytes are
// buffered or the 500 ms timeout measured from start elapses.
func (r *Receiver) waitForBytes(count uint16, start uint32) bool {
	for {
		n, err := r.Transport.RxCount()
		if err == nil && n >= count {
			return true
		}
		if r.hasTimedOut(start) {
			return false
		}
		r.Transport.Yield()
	}
}

// Worker attempts to assemble and dispatch exactly one frame. It is meant
// to be called periodically by application code, from inside a kernel
// process that cooperatively yields while it waits.
func (r *Receiver) Worker() {
	t0 := r.Clock.NowMs()
	if !r.waitForBytes(2, t0) {
		return
	}

	var flagByte [1]byte
	n, status := r.Transport.RxRead(flagByte[:])
	if n != 1 || status != StatusOK || flagByte[0] != byte(StartFlag&0xFF) {
		return
	}
	n, status = r.Transport.RxRead(flagByte[:])
	if n != 1 || status != StatusOK || flagByte[0] != byte(StartFlag>>8) {
		return
	}

	t1 := r.Clock.NowMs()

	var head [3]byte
	n, status = r.Transport.RxRead(head[:])
	if n != 3 || status != StatusOK {
		return
	}
	srcAddr := Address(head[0])
	destAddr := Address(head[1])
	length := int(head[2])
	if length > MaxInnerLength {
		return
	}

	if !r.waitForBytes(uint16(length+1), t1) {
		return
	}

	body := make([]byte, length+1)
	n, status = r.Transport.RxRead(body)
	if n != length+1 || status != StatusOK {
		return
	}
	inner := body[:length]
	wantChecksum := body[length]

	full := make([]byte, 0, 5+length)
	full = append(full, byte(StartFlag&0xFF), byte(StartFlag>>8), byte(srcAddr), byte(destAddr), byte(length))
	full = append(full, inner...)
	if checksum(full) != wantChecksum {
		return
	}

	if destAddr != r.Self && destAddr != Broadcast {
		return
	}

	ProcessFrame(inner, r.Handlers)
}
