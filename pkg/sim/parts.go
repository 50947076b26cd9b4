package sim

import (
	"sync"

	"github.com/robotalks/safeio/pkg/channel"
	"github.com/robotalks/safeio/pkg/mailbox"
	"github.com/robotalks/safeio/pkg/output"
	"github.com/robotalks/safeio/pkg/telegram"
)

// Inputs are simulated physical inputs shared by both channels.
type Inputs struct {
	bits, qualifiers byte
	lock             sync.Mutex
}

// Set changes the input bits and qualifiers.
func (in *Inputs) Set(bits, qualifiers byte) {
	in.lock.Lock()
	in.bits, in.qualifiers = bits, qualifiers
	in.lock.Unlock()
}

// Sample implements device.Inputs.
func (in *Inputs) Sample() (byte, byte) {
	in.lock.Lock()
	defer in.lock.Unlock()
	return in.bits, in.qualifiers
}

// Stack is a minimal safety stack. The first payload byte of the IO-Data
// message received is the requested output bits; the produced IO-Data
// message echoes the inputs.
type Stack struct {
	Inputs *Inputs

	requests byte
	dui      byte
	last     byte
	consumed [2]uint64
	lock     sync.Mutex
}

// Produce implements device.Stack.
func (s *Stack) Produce(spdu *telegram.SPDU) {
	bits, qualifiers := s.Inputs.Sample()
	s.lock.Lock()
	defer s.lock.Unlock()
	if bits != s.last {
		s.last = bits
		s.dui++
	}
	spdu.IOData.Length = 2
	spdu.IOData.Address = 1
	spdu.IOData.Payload[0], spdu.IOData.Payload[1] = bits, qualifiers
	spdu.IODataDUI = s.dui
	spdu.TimeCoord.Address = 1
	spdu.TimeCoordDUI = s.dui
}

// Consume implements device.Stack.
func (s *Stack) Consume(kind mailbox.Kind, msg *mailbox.Message) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.consumed[kind]++
	if kind == mailbox.IOData && msg.Length > 0 {
		s.requests = msg.Payload[0]
	}
}

// Requests implements device.Stack.
func (s *Stack) Requests() byte {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.requests
}

// Consumed returns the number of messages consumed of kind.
func (s *Stack) Consumed(kind mailbox.Kind) uint64 {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.consumed[kind]
}

// Pins records the driven output levels.
type Pins struct {
	levels [output.MaxOutputs]output.Level
	lock   sync.Mutex
}

// Drive implements output.Driver.
func (p *Pins) Drive(pair channel.Pair, l output.Level) {
	p.lock.Lock()
	p.levels[pair.First], p.levels[pair.Second] = l, l
	p.lock.Unlock()
}

// Bits returns the driven levels, one bit per output.
func (p *Pins) Bits() (bits byte) {
	p.lock.Lock()
	defer p.lock.Unlock()
	for n, l := range p.levels {
		if l == output.High {
			bits |= 1 << uint(n)
		}
	}
	return
}
