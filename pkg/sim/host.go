package sim

import (
	"sync"

	"github.com/robotalks/safeio/pkg/channel"
	"github.com/robotalks/safeio/pkg/fault"
	"github.com/robotalks/safeio/pkg/link"
	"github.com/robotalks/safeio/pkg/mixing"
	"github.com/robotalks/safeio/pkg/telegram"
)

// Host simulates the network-interface controller. Every tick it delivers
// one telegram to both channels; it listens to the telegrams sent by
// channel 1 and unmixes their safety payloads with Scheme.
type Host struct {
	Scheme mixing.Scheme

	links [2]*link.Loopback

	out      telegram.Fields
	pending  [][]byte
	frag     int
	last     telegram.Fields
	startup  *telegram.Identity
	received uint64
	corrupt  uint64
	lock     sync.Mutex
}

// NewHost creates a Host.
func NewHost(scheme mixing.Scheme) *Host {
	h := &Host{Scheme: scheme}
	for n := range h.links {
		h.links[n] = &link.Loopback{}
	}
	h.links[0].Peer = h.receive
	return h
}

// Link returns the host link of channel ch.
func (h *Host) Link(ch channel.ID) *link.Loopback {
	if !ch.IsValid() {
		fault.Raise(fault.InvalidChannel, "channel %d", ch)
	}
	return h.links[ch-1]
}

func (h *Host) receive(frame []byte) {
	h.lock.Lock()
	defer h.lock.Unlock()
	switch len(frame) {
	case telegram.StartupSize:
		var s telegram.Startup
		copy(s[:], frame)
		if !s.Verify() {
			h.corrupt++
			return
		}
		id := telegram.ParseStartup(&s)
		h.startup = &id
	case telegram.Size:
		t, _ := telegram.FromBytes(frame)
		if !t.Verify() {
			h.corrupt++
			return
		}
		f := telegram.Split(t)
		ioData, timeCoord := f.SPDU.IOData.Payload, f.SPDU.TimeCoord.Payload
		h.Scheme.Unmix(f.SPDU.IOData.Payload[:], ioData[:])
		h.Scheme.Unmix(f.SPDU.TimeCoord.Payload[:], timeCoord[:])
		h.last = f
	default:
		h.corrupt++
		return
	}
	h.received++
}

// SetIOData changes the IO-Data message and its Update Indicator.
func (h *Host) SetIOData(address uint16, payload []byte) {
	h.lock.Lock()
	defer h.lock.Unlock()
	msg := &h.out.SPDU.IOData
	msg.Address = address
	msg.Length = uint16(copy(msg.Payload[:], payload))
	for n := int(msg.Length); n < len(msg.Payload); n++ {
		msg.Payload[n] = 0
	}
	h.out.SPDU.IODataDUI++
}

// SetTimeCoord changes the Time-Coordination message and its Update
// Indicator.
func (h *Host) SetTimeCoord(address uint16, payload []byte) {
	h.lock.Lock()
	defer h.lock.Unlock()
	msg := &h.out.SPDU.TimeCoord
	msg.Address = address
	msg.Payload = [telegram.TimeCoordPayloadSize]byte{}
	copy(msg.Payload[:], payload)
	h.out.SPDU.TimeCoordDUI++
}

// Configure queues a configuration message, sent in three fragments with
// the following telegrams.
func (h *Host) Configure(msg *telegram.ConfigMessage) {
	encoded := make([]byte, telegram.ConfigSize)
	telegram.EncodeConfig(encoded, msg)
	h.lock.Lock()
	h.pending = append(h.pending, encoded)
	h.lock.Unlock()
}

// Deliver sends the next telegram to both channels.
func (h *Host) Deliver() {
	h.lock.Lock()
	f := h.out
	if len(h.pending) > 0 {
		telegram.ConfigFragment(&f.NonSafety, h.frag, h.pending[0])
		if h.frag++; h.frag >= telegram.ConfigFragments {
			h.frag = 0
			h.pending = h.pending[1:]
		}
	}
	h.lock.Unlock()
	var t telegram.Telegram
	telegram.Merge(&t, &f)
	for _, l := range h.links {
		l.Deliver(t[:])
	}
}

// Last returns the fields of the last telegram received from channel 1,
// with the safety payloads unmixed.
func (h *Host) Last() telegram.Fields {
	h.lock.Lock()
	defer h.lock.Unlock()
	return h.last
}

// Startup returns the announced identity, nil before a startup telegram
// was received.
func (h *Host) Startup() *telegram.Identity {
	h.lock.Lock()
	defer h.lock.Unlock()
	return h.startup
}

// Counters returns the number of telegrams received and dropped.
func (h *Host) Counters() (received, corrupt uint64) {
	h.lock.Lock()
	defer h.lock.Unlock()
	return h.received, h.corrupt
}
