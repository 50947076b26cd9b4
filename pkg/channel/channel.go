// Package channel identifies the two lock-step channels of a safety device.
package channel

import "github.com/robotalks/safeio/pkg/fault"

// ID is the channel identity.
type ID byte

// Channels.
const (
	Ch1 ID = 1
	Ch2 ID = 2
)

// IsValid checks the ID is one of the two channels.
func (c ID) IsValid() bool {
	return c == Ch1 || c == Ch2
}

// Twin returns the other channel.
func (c ID) Twin() ID {
	if c == Ch1 {
		return Ch2
	}
	return Ch1
}

// String implements fmt.Stringer.
func (c ID) String() string {
	switch c {
	case Ch1:
		return "ch1"
	case Ch2:
		return "ch2"
	}
	return "ch?"
}

// Pair is the physical indices of one logical output. Single-channel
// outputs use the same index twice.
type Pair struct {
	First  int
	Second int
}

// Single creates a single-channel pair.
func Single(idx int) Pair {
	return Pair{First: idx, Second: idx}
}

// IsSingle indicates a single-channel output.
func (p Pair) IsSingle() bool {
	return p.First == p.Second
}

// Role resolves which member of a pair belongs to this channel.
type Role interface {
	Channel() ID
	SelfIndex(Pair) int
	TwinIndex(Pair) int
}

type role ID

// NewRole creates the Role for a channel. An invalid channel is a
// defensive fault.
func NewRole(id ID) Role {
	if !id.IsValid() {
		fault.Raise(fault.InvalidChannel, "channel %d", id)
	}
	return role(id)
}

func (r role) Channel() ID { return ID(r) }

func (r role) SelfIndex(p Pair) int {
	if ID(r) == Ch1 {
		return p.First
	}
	return p.Second
}

func (r role) TwinIndex(p Pair) int {
	if ID(r) == Ch1 {
		return p.Second
	}
	return p.First
}
