// Package framing is the Framing Core: the outer wire frame (start flag,
// addressing, length, checksum), the inner command codec, and the receive
// state machine that assembles one frame per Worker call off a Transport's
// byte-ring buffer.
package framing

// Address is an 8-bit node address: the high 5 bits are a team identifier,
// the low 3 bits a sub-identifier.
type Address uint8

// Broadcast is accepted as a destination by every node.
const Broadcast Address = 0xFF

// NewAddress builds an Address from a team id and a sub id, masking sub to
// its low 3 bits the way the wire format requires.
func NewAddress(team, sub uint8) Address {
	return Address(team<<3 | sub&0x07)
}

// Team returns the high 5 bits of the address.
func (a Address) Team() uint8 { return uint8(a) >> 3 }

// Sub returns the low 3 bits of the address.
func (a Address) Sub() uint8 { return uint8(a) & 0x07 }
