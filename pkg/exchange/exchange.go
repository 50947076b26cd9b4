// Package exchange is the dual-channel cross-check exchange.
//
// Each channel ships its half of a jointly produced safety fragment to the
// twin. The exchange is a single slot per tag: every send overwrites the
// slot, every receive returns the latest value, and before the first send
// of a session the slot holds the zero Word. There is no queueing, retry or
// acknowledgement. A transport error is latched and returned from every
// later call so a consumer never mistakes stale data for fresh data.
package exchange

import (
	"fmt"
	"sync"

	"github.com/robotalks/safeio/pkg/fault"
)

// Exchange ships words to the twin channel.
type Exchange interface {
	// Send hands w to the transport, overwriting the twin's slot for w.Tag.
	Send(w Word) error
	// Receive returns the latest word of tag sent by the twin.
	Receive(tag Tag) (Word, error)
	// Reset drains the received slots back to zero words.
	Reset()
}

// TransportError wraps an error reported by the underlying transport.
type TransportError struct {
	Err error
}

// Error implements error.
func (e *TransportError) Error() string {
	return fmt.Sprintf("exchange transport: %v", e.Err)
}

// Slots holds the latest word per tag.
type Slots struct {
	words  [numTags]Word
	stores [numTags]uint64
	lock   sync.Mutex
}

// Store overwrites the slot of w.Tag. An unknown tag is a defensive fault.
func (s *Slots) Store(w Word) {
	if !w.Tag.IsValid() {
		fault.Raise(fault.InvalidIndex, "exchange tag %d", w.Tag)
	}
	s.lock.Lock()
	s.words[w.Tag] = w
	s.stores[w.Tag]++
	s.lock.Unlock()
}

// Load returns the slot of tag.
func (s *Slots) Load(tag Tag) Word {
	if !tag.IsValid() {
		fault.Raise(fault.InvalidIndex, "exchange tag %d", tag)
	}
	s.lock.Lock()
	w := s.words[tag]
	s.lock.Unlock()
	w.Tag = tag
	return w
}

// Stores returns how many words of tag have been stored.
func (s *Slots) Stores(tag Tag) uint64 {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.stores[tag]
}

// Reset zeroes all slots.
func (s *Slots) Reset() {
	s.lock.Lock()
	for n := range s.words {
		s.words[n] = Word{Tag: Tag(n)}
	}
	s.lock.Unlock()
}

// Local is an in-process endpoint. Words sent on one endpoint of a pair
// land in the slots of the other.
type Local struct {
	slots Slots
	twin  *Local

	err  error
	lock sync.Mutex
}

// NewPair creates two connected endpoints.
func NewPair() (*Local, *Local) {
	a, b := &Local{}, &Local{}
	a.twin, b.twin = b, a
	return a, b
}

// Fail latches err on this endpoint, simulating a transport fault.
func (l *Local) Fail(err error) {
	l.lock.Lock()
	l.err = err
	l.lock.Unlock()
}

// Recover clears a latched error.
func (l *Local) Recover() {
	l.Fail(nil)
}

func (l *Local) latched() error {
	l.lock.Lock()
	defer l.lock.Unlock()
	if l.err != nil {
		return &TransportError{Err: l.err}
	}
	return nil
}

// Send implements Exchange.
func (l *Local) Send(w Word) error {
	if err := l.latched(); err != nil {
		return err
	}
	l.twin.slots.Store(w)
	return nil
}

// Receive implements Exchange.
func (l *Local) Receive(tag Tag) (Word, error) {
	if err := l.latched(); err != nil {
		return Word{Tag: tag}, err
	}
	return l.slots.Load(tag), nil
}

// Reset implements Exchange.
func (l *Local) Reset() {
	l.slots.Reset()
}
