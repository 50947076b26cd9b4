package device

import (
	"github.com/robotalks/safeio/pkg/channel"
	"github.com/robotalks/safeio/pkg/mailbox"
	"github.com/robotalks/safeio/pkg/output"
)

// OutputSnapshot is the state of one output pair.
type OutputSnapshot struct {
	Pair    channel.Pair
	State   output.State
	Timer   uint16
	Delay   uint16
	Level   output.Level
	Healthy bool
}

// Snapshot is a diagnostic record of a Device.
type Snapshot struct {
	Channel         channel.ID
	State           State
	Err             string
	Tick            uint64
	ConfigID        uint32
	Inputs          byte
	InputQualifiers byte
	OutputBits      byte
	RampDownBits    byte
	Outputs         []OutputSnapshot
	Mailboxes       [2]mailbox.Stats
	Counters        Counters
}

// Snapshot captures the current state.
func (d *Device) Snapshot() Snapshot {
	d.lock.Lock()
	defer d.lock.Unlock()
	s := Snapshot{
		Channel:         d.conf.Channel,
		State:           d.state,
		Tick:            d.tick,
		ConfigID:        d.configID,
		Inputs:          d.inputs,
		InputQualifiers: d.qualifier,
		OutputBits:      d.gate.OutputBits(),
		RampDownBits:    d.gate.RampDownBits(),
		Counters:        d.counters,
	}
	if d.err != nil {
		s.Err = d.err.Error()
	}
	for n := 0; n < d.gate.Pairs(); n++ {
		p := d.gate.Pair(n)
		self := d.role.SelfIndex(p)
		s.Outputs = append(s.Outputs, OutputSnapshot{
			Pair:    p,
			State:   d.gate.State(self),
			Timer:   d.gate.Timer(self),
			Delay:   d.gate.Delay(n),
			Level:   d.gate.Level(self),
			Healthy: d.gate.SafeBound(self) && d.gate.SafeBound(d.role.TwinIndex(p)),
		})
	}
	s.Mailboxes[mailbox.IOData] = d.boxes.Box(mailbox.IOData).Stats()
	s.Mailboxes[mailbox.TimeCoord] = d.boxes.Box(mailbox.TimeCoord).Stats()
	return s
}
