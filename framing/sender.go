package framing

// Sender builds and transmits frames from a fixed source address over a
// Transport. Every typed Send* helper builds the right inner frame and
// transmits it through the same encode-and-write path as Send, grounded on
// rfAdapter's send* functions.
type Sender struct {
	Transport Transport
	Self      Address
}

// Send builds the inner frame for cmd and payload and transmits it to dst.
func (s *Sender) Send(dst Address, cmd Command, payload []byte) error {
	inner := make([]byte, 0, 1+len(payload))
	inner = append(inner, byte(cmd))
	inner = append(inner, payload...)
	return s.sendInner(dst, inner)
}

func (s *Sender) sendInner(dst Address, inner []byte) error {
	frame, err := Encode(s.Self, dst, inner)
	if err != nil {
		return err
	}
	return s.Transport.TxWrite(frame)
}

func (s *Sender) SendSetLed(dst Address, enable bool) error {
	return s.sendInner(dst, BuildSetLed(enable))
}

func (s *Sender) SendToggleLed(dst Address) error {
	return s.sendInner(dst, BuildToggleLed())
}

func (s *Sender) SendLcdClear(dst Address) error {
	return s.sendInner(dst, BuildLcdClear())
}

func (s *Sender) SendLcdGoto(dst Address, col, row uint8) error {
	return s.sendInner(dst, BuildLcdGoto(col, row))
}

func (s *Sender) SendLcdPrint(dst Address, text []byte) error {
	return s.sendInner(dst, BuildLcdPrint(text))
}

func (s *Sender) SendSensorData(dst Address, kind, paramKind uint8, scalar uint32) error {
	return s.sendInner(dst, BuildSensorData(kind, paramKind, scalar))
}
