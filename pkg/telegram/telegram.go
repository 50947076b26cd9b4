// Package telegram encodes and decodes the fixed-layout wire telegrams
// exchanged with the host network-interface controller.
//
// Two shapes exist. The normal telegram carries the control byte, the
// non-safety message block, the Safety PDU, the side IO-data block and a
// CRC-16. The startup telegram announces identity and PDU sizes before
// normal operation. Both have compile-time sizes; Merge and BuildStartup
// never fail.
package telegram

// NonSafety is the non-safety message block.
type NonSafety struct {
	Command  byte
	Fragment byte
	Length   uint16
	Data     [NonSafetyDataSize]byte
}

// IODataMsg is the IO-Data message of a Safety PDU.
type IODataMsg struct {
	Length  uint16
	Address uint16
	Payload [IODataPayloadSize]byte
}

// TimeCoordMsg is the Time-Coordination message of a Safety PDU.
type TimeCoordMsg struct {
	Address uint16
	Payload [TimeCoordPayloadSize]byte
}

// SPDU is the Safety PDU block.
type SPDU struct {
	IOData       IODataMsg
	TimeCoord    TimeCoordMsg
	IODataDUI    byte
	TimeCoordDUI byte
}

// SideIO carries one bit per physical channel.
type SideIO struct {
	Inputs           byte
	InputQualifiers  byte
	OutputQualifiers byte
	// RampDown has a bit set for each output in ramp-down.
	RampDown byte
}

// Fields is the typed content of a normal telegram.
type Fields struct {
	Control   byte
	NonSafety NonSafety
	SPDU      SPDU
	SideIO    SideIO
}

// Telegram is the wire form of a normal telegram.
type Telegram [Size]byte

// Merge writes f into t and appends a freshly computed CRC.
func Merge(t *Telegram, f *Fields) {
	b := t[:]
	b[ControlOffset] = f.Control

	ns := b[NonSafetyOffset:]
	ns[0], ns[1] = f.NonSafety.Command, f.NonSafety.Fragment
	putUint16(ns[2:], f.NonSafety.Length)
	copy(ns[NonSafetyHeaderSize:NonSafetySize], f.NonSafety.Data[:])

	putUint16(b[ioDataLengthOffset:], f.SPDU.IOData.Length)
	putUint16(b[ioDataAddressOffset:], f.SPDU.IOData.Address)
	copy(b[ioDataPayloadOffset:timeCoordAddressOffset], f.SPDU.IOData.Payload[:])
	putUint16(b[timeCoordAddressOffset:], f.SPDU.TimeCoord.Address)
	copy(b[timeCoordPayloadOffset:ioDataDUIOffset], f.SPDU.TimeCoord.Payload[:])
	b[ioDataDUIOffset] = f.SPDU.IODataDUI
	b[timeCoordDUIOffset] = f.SPDU.TimeCoordDUI

	io := b[SideIOOffset:]
	io[0], io[1], io[2], io[3] = f.SideIO.Inputs, f.SideIO.InputQualifiers, f.SideIO.OutputQualifiers, f.SideIO.RampDown

	putCRC(b)
}

// Split reads the layout back out of t. It doesn't verify the CRC.
func Split(t *Telegram) (f Fields) {
	b := t[:]
	f.Control = b[ControlOffset]

	ns := b[NonSafetyOffset:]
	f.NonSafety.Command, f.NonSafety.Fragment = ns[0], ns[1]
	f.NonSafety.Length = getUint16(ns[2:])
	copy(f.NonSafety.Data[:], ns[NonSafetyHeaderSize:NonSafetySize])

	f.SPDU.IOData.Length = getUint16(b[ioDataLengthOffset:])
	f.SPDU.IOData.Address = getUint16(b[ioDataAddressOffset:])
	copy(f.SPDU.IOData.Payload[:], b[ioDataPayloadOffset:timeCoordAddressOffset])
	f.SPDU.TimeCoord.Address = getUint16(b[timeCoordAddressOffset:])
	copy(f.SPDU.TimeCoord.Payload[:], b[timeCoordPayloadOffset:ioDataDUIOffset])
	f.SPDU.IODataDUI = b[ioDataDUIOffset]
	f.SPDU.TimeCoordDUI = b[timeCoordDUIOffset]

	io := b[SideIOOffset:]
	f.SideIO = SideIO{Inputs: io[0], InputQualifiers: io[1], OutputQualifiers: io[2], RampDown: io[3]}
	return
}

// Verify checks the CRC.
func (t *Telegram) Verify() bool {
	return checkCRC(t[:])
}

// CRC returns the check field.
func (t *Telegram) CRC() uint16 {
	return getUint16(t[CRCOffset:])
}

// FromBytes copies a received buffer into a Telegram. The buffer must be
// exactly Size bytes.
func FromBytes(b []byte) (*Telegram, bool) {
	if len(b) != Size {
		return nil, false
	}
	var t Telegram
	copy(t[:], b)
	return &t, true
}
