package telegram

import (
	"github.com/golang/glog"

	"github.com/robotalks/safeio/pkg/fault"
)

// Configuration message fragmentation: the value arrives in exactly three
// consecutive fragments in the non-safety block.
const (
	ConfigFragments = 3
	ConfigSize      = 36
	ConfigOutputs   = 8
)

// FragmentSizes are the payload sizes of the configuration fragments.
var FragmentSizes = [ConfigFragments]int{12, 16, 8}

// ConfigMessage is the reassembled configuration value.
type ConfigMessage struct {
	ConfigID  uint32
	Timestamp uint32
	// Delays are the SS1-t ramp-down delays in ticks per output pair.
	Delays [ConfigOutputs]uint16
	// Guards are the SafeBound input masks per output index.
	Guards [ConfigOutputs]byte
}

// Reassembler collects configuration fragments.
type Reassembler struct {
	counter int
	dropped uint64
	buf     [ConfigSize]byte
}

// Counter returns the index of the next expected fragment.
func (r *Reassembler) Counter() int {
	return r.counter
}

// Dropped returns the number of partial values dropped because a fragment
// was missing or short.
func (r *Reassembler) Dropped() uint64 {
	return r.dropped
}

// Reset drops a partially received value.
func (r *Reassembler) Reset() {
	r.counter = 0
}

// PushFragment stores fragment index. It returns the complete message when
// the final fragment arrives. Fragment 0 always restarts the value. A
// fragment out of sequence or shorter than its fragment size drops the
// partial value; an index outside {0,1,2} is a defensive fault.
func (r *Reassembler) PushFragment(index int, b []byte) (*ConfigMessage, bool) {
	if index < 0 || index >= ConfigFragments {
		fault.Raise(fault.FragmentCounter, "fragment %d", index)
	}
	if index == 0 {
		r.counter = 0
	}
	size := FragmentSizes[index]
	if index != r.counter || len(b) < size {
		glog.V(2).Infof("config fragment %d (%d bytes) dropped, expect %d", index, len(b), r.counter)
		r.dropped++
		r.counter = 0
		return nil, false
	}
	offset := 0
	for i := 0; i < index; i++ {
		offset += FragmentSizes[i]
	}
	copy(r.buf[offset:offset+size], b[:size])
	if r.counter++; r.counter < ConfigFragments {
		return nil, false
	}
	r.counter = 0
	msg := DecodeConfig(r.buf[:])
	return &msg, true
}

// DecodeConfig decodes a ConfigSize buffer.
func DecodeConfig(b []byte) (m ConfigMessage) {
	m.ConfigID = getUint32(b[0:])
	m.Timestamp = getUint32(b[4:])
	for i := 0; i < ConfigOutputs; i++ {
		m.Delays[i] = getUint16(b[8+i*2:])
	}
	copy(m.Guards[:], b[24:32])
	return
}

// EncodeConfig encodes m into a ConfigSize buffer.
func EncodeConfig(b []byte, m *ConfigMessage) {
	putUint32(b[0:], m.ConfigID)
	putUint32(b[4:], m.Timestamp)
	for i := 0; i < ConfigOutputs; i++ {
		putUint16(b[8+i*2:], m.Delays[i])
	}
	copy(b[24:32], m.Guards[:])
	for i := 32; i < ConfigSize; i++ {
		b[i] = 0
	}
}

// ConfigFragment fills ns with fragment index of the encoded message.
func ConfigFragment(ns *NonSafety, index int, encoded []byte) {
	offset := 0
	for i := 0; i < index; i++ {
		offset += FragmentSizes[i]
	}
	size := FragmentSizes[index]
	ns.Command, ns.Fragment, ns.Length = CmdConfigFragment, byte(index), uint16(size)
	ns.Data = [NonSafetyDataSize]byte{}
	copy(ns.Data[:], encoded[offset:offset+size])
}

func putUint32(b []byte, v uint32) {
	putUint16(b, uint16(v))
	putUint16(b[2:], uint16(v>>16))
}

func getUint32(b []byte) uint32 {
	return uint32(getUint16(b)) | uint32(getUint16(b[2:]))<<16
}
