// Package mailbox keeps each channel's view of the latest received safety
// message.
//
// There is one single-slot Box per message kind. Sync runs every tick in the
// tick context and compares the Update Indicator of the received Safety PDU
// with the last one seen; a change copies the message in and marks the box
// New, overwriting an unconsumed message. Take runs in the background
// context and hands the message out at most once.
package mailbox

import (
	"sync"

	"github.com/robotalks/safeio/pkg/fault"
	"github.com/robotalks/safeio/pkg/telegram"
)

// Kind is the message kind.
type Kind int

// Kinds.
const (
	IOData Kind = iota
	TimeCoord

	numKinds
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case IOData:
		return "io-data"
	case TimeCoord:
		return "time-coord"
	}
	return "kind?"
}

// State of a Box.
type State int

// States.
const (
	Consumed State = iota
	New
)

// String implements fmt.Stringer.
func (s State) String() string {
	if s == New {
		return "NEW"
	}
	return "CONSUMED"
}

// MaxPayload is the payload capacity of a Message.
const MaxPayload = telegram.IODataPayloadSize

// Message is a copy of a received safety message.
type Message struct {
	Length  uint16
	Address uint16
	Payload [MaxPayload]byte
}

// Bytes returns the valid part of the payload.
func (m *Message) Bytes() []byte {
	n := int(m.Length)
	if n > MaxPayload {
		n = MaxPayload
	}
	return m.Payload[:n]
}

// Stats are operational counters of a Box.
type Stats struct {
	// Received counts Update Indicator changes.
	Received uint64
	// Overwritten counts arrivals replacing an unconsumed message.
	Overwritten uint64
	// Taken counts messages handed to the consumer.
	Taken uint64
}

// Box is the single-slot mailbox of one message kind.
type Box struct {
	lock    sync.Mutex
	state   State
	lastDUI byte
	msg     Message
	stats   Stats
}

// Sync compares dui with the last seen Update Indicator. On a change, msg is
// copied in and the box becomes New. It reports whether a new message was
// stored.
func (b *Box) Sync(dui byte, msg *Message) bool {
	b.lock.Lock()
	defer b.lock.Unlock()
	if dui == b.lastDUI {
		return false
	}
	if b.state == New {
		b.stats.Overwritten++
	}
	b.lastDUI = dui
	b.msg = *msg
	b.state = New
	b.stats.Received++
	return true
}

// Take returns the stored message and marks the box Consumed. It returns
// false when there is nothing new.
func (b *Box) Take() (Message, bool) {
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.state != New {
		return Message{}, false
	}
	b.state = Consumed
	b.stats.Taken++
	return b.msg, true
}

// State returns the current state.
func (b *Box) State() State {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.state
}

// LastDUI returns the last seen Update Indicator.
func (b *Box) LastDUI() byte {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.lastDUI
}

// Stats returns the counters.
func (b *Box) Stats() Stats {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.stats
}

// Reset drains the box to Consumed. The last seen Update Indicator is kept,
// so a message still present in the receive buffer isn't delivered again.
func (b *Box) Reset() {
	b.lock.Lock()
	b.state = Consumed
	b.msg = Message{}
	b.lock.Unlock()
}

// Set holds one Box per message kind.
type Set struct {
	boxes [numKinds]Box
}

// Box returns the Box of kind. An unknown kind is a defensive fault.
func (s *Set) Box(kind Kind) *Box {
	if kind < 0 || kind >= numKinds {
		fault.Raise(fault.InvalidIndex, "mailbox kind %d", kind)
	}
	return &s.boxes[kind]
}

// Sync runs the Update Indicator comparison of both kinds against a received
// Safety PDU.
func (s *Set) Sync(spdu *telegram.SPDU) {
	var msg Message
	msg.Length, msg.Address = spdu.IOData.Length, spdu.IOData.Address
	copy(msg.Payload[:], spdu.IOData.Payload[:])
	s.boxes[IOData].Sync(spdu.IODataDUI, &msg)

	msg = Message{Length: telegram.TimeCoordPayloadSize, Address: spdu.TimeCoord.Address}
	copy(msg.Payload[:], spdu.TimeCoord.Payload[:])
	s.boxes[TimeCoord].Sync(spdu.TimeCoordDUI, &msg)
}

// Take takes from the Box of kind.
func (s *Set) Take(kind Kind) (Message, bool) {
	return s.Box(kind).Take()
}

// Reset drains all boxes.
func (s *Set) Reset() {
	for n := range s.boxes {
		s.boxes[n].Reset()
	}
}
