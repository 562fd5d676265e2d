package serial

import "time"

// RadioLinkBaud is the baud rate the node firmware and the radio module on
// the far end of the USART are both configured for.
const RadioLinkBaud = B9600

// RadioLink opens the named tty, puts it into raw mode and the fixed baud
// rate the radio module expects, and returns the resulting Port ready to be
// wrapped by transport.NewSerialTransport. Unlike Open, it never leaves the
// line in cooked mode: a radio module talking framed binary over a line with
// echo or CR/LF translation enabled would never assemble a valid frame.
func RadioLink(device string, readTimeout time.Duration) (*Port, error) {
	opts := NewOptions().SetReadTimeout(readTimeout)
	port, err := Open(device, opts)
	if err != nil {
		return nil, wrapErr("open radio link", err)
	}
	if err := port.MakeRaw(); err != nil {
		port.Close()
		return nil, wrapErr("configure radio link", err)
	}
	attrs, err := port.GetAttr()
	if err != nil {
		port.Close()
		return nil, wrapErr("read radio link attributes", err)
	}
	attrs.SetSpeed(RadioLinkBaud)
	if err := port.SetAttr(TCSANOW, attrs); err != nil {
		port.Close()
		return nil, wrapErr("set radio link speed", err)
	}
	return port, nil
}
