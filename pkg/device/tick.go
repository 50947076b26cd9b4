package device

import (
	"bytes"

	"github.com/golang/glog"

	"github.com/robotalks/safeio/pkg/exchange"
	fx "github.com/robotalks/safeio/pkg/framework"
	"github.com/robotalks/safeio/pkg/link"
	"github.com/robotalks/safeio/pkg/mailbox"
	"github.com/robotalks/safeio/pkg/mixing"
	"github.com/robotalks/safeio/pkg/telegram"
)

// Priority levels used in the tick context.
const (
	PrLvChannel = fx.PrLvHigh
)

// MismatchLogTicks is the minimal number of ticks between two mismatch
// warnings.
const MismatchLogTicks = 250

// AddToLoop implements LoopAdder.
func (d *Device) AddToLoop(l *fx.Loop) {
	l.AddController(PrLvChannel, fx.ControlFunc(func(fx.ControlContext) error {
		d.Tick()
		return nil
	}))
	l.AddBackground(fx.ControlFunc(func(fx.ControlContext) error {
		d.Background()
		return nil
	}))
}

// Tick runs one cycle: sample, build the telegram halves, merge and
// transmit, receive and synchronize, gate the outputs.
func (d *Device) Tick() {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.tick++
	d.syncCount++
	d.inputs, d.qualifier = d.deps.Inputs.Sample()
	switch d.state {
	case Startup:
		d.tickStartup()
	case Operational:
		d.tickOperational()
	default:
		d.tickFaulted()
	}
}

func (d *Device) tickStartup() {
	if _, err := d.exchange(exchange.Word{Tag: exchange.TagIOData}, true); err != nil {
		d.fault(err)
		return
	}
	if !d.transmit(d.startup[:]) {
		return
	}
	d.receive()
	if d.advanced >= d.conf.StartupSyncTicks {
		glog.Infof("channel %s: operational at tick %d", d.conf.Channel, d.tick)
		d.state = Operational
		d.stalled = 0
	}
}

func (d *Device) tickOperational() {
	var f telegram.Fields
	d.deps.Stack.Produce(&f.SPDU)
	if err := d.crossCheck(exchange.TagIOData, f.SPDU.IOData.Payload[:]); err != nil {
		d.fault(err)
		return
	}
	if err := d.crossCheck(exchange.TagTimeCoord, f.SPDU.TimeCoord.Payload[:]); err != nil {
		d.fault(err)
		return
	}
	if d.conf.StallTicks > 0 && d.stalled >= d.conf.StallTicks {
		d.fault(ErrTwinStalled)
		return
	}

	f.Control = telegram.ControlRunning | d.toggle
	d.statusMessage(&f.NonSafety)
	f.SideIO = telegram.SideIO{
		Inputs:           d.inputs,
		InputQualifiers:  d.qualifier,
		OutputQualifiers: d.gate.OutputBits(),
		RampDown:         d.gate.RampDownBits(),
	}
	telegram.Merge(&d.tx, &f)
	if !d.transmit(d.tx[:]) {
		return
	}
	d.receive()
	d.gate.UpdateSafeBound(d.qualifier)
	d.gate.Tick()
	d.gate.EvaluateAll(d.deps.Stack.Requests())
}

func (d *Device) tickFaulted() {
	d.deps.Host.Latest()
	f := telegram.Fields{Control: telegram.ControlFault | d.toggle}
	telegram.Merge(&d.tx, &f)
	d.transmit(d.tx[:])
}

// exchange sends w with the local sync counter and returns the word of
// the twin.
func (d *Device) exchange(w exchange.Word, track bool) (exchange.Word, error) {
	w.Sync = d.syncCount
	if err := d.deps.Exchange.Send(w); err != nil {
		return w, err
	}
	twin, err := d.deps.Exchange.Receive(w.Tag)
	if err != nil || !track {
		return twin, err
	}
	if twin.Sync != d.twinSync {
		d.advanced++
		d.stalled = 0
	} else {
		d.advanced = 0
		d.stalled++
	}
	d.twinSync = twin.Sync
	return twin, nil
}

// crossCheck replaces payload with the mixed value combined from both
// channels, ready to be merged into the telegram. Each channel contributes
// the mixed positions it owns, so a channel computing a different value
// corrupts the payload.
func (d *Device) crossCheck(tag exchange.Tag, payload []byte) error {
	var half, mixed, plain [exchange.PayloadSize]byte
	n := len(payload)
	d.conf.Scheme.Half(d.conf.Channel, half[:n], payload)
	w := exchange.Word{Tag: tag}
	copy(w.Payload[:], half[:n])
	twin, err := d.exchange(w, tag == exchange.TagIOData)
	if err != nil {
		return err
	}
	mixing.Combine(mixed[:n], half[:n], twin.Payload[:n])
	d.conf.Scheme.Unmix(plain[:n], mixed[:n])
	if !bytes.Equal(plain[:n], payload) {
		d.mismatch(tag)
	}
	copy(payload, mixed[:n])
	return nil
}

// mismatch counts a cross-check mismatch and warns at most once per
// MismatchLogTicks.
func (d *Device) mismatch(tag exchange.Tag) {
	d.counters.Mismatches++
	if d.mismatchLogged != 0 && d.tick < d.mismatchLogged+MismatchLogTicks {
		return
	}
	glog.Warningf("channel %s: %s mismatch with twin at tick %d (%d total)",
		d.conf.Channel, tag, d.tick, d.counters.Mismatches)
	d.mismatchLogged = d.tick
}

func (d *Device) statusMessage(ns *telegram.NonSafety) {
	ns.Command = telegram.CmdStatus
	ns.Length = 6
	ns.Data[0] = byte(d.conf.Channel)
	ns.Data[1] = byte(d.state)
	ns.Data[2] = byte(d.configID)
	ns.Data[3] = byte(d.configID >> 8)
	ns.Data[4] = byte(d.configID >> 16)
	ns.Data[5] = byte(d.configID >> 24)
}

// transmit hands frame to the host link. A frame still being sent is an
// overrun and the new one is skipped. It returns false on a transport
// fault.
func (d *Device) transmit(frame []byte) bool {
	done, err := d.deps.Host.PollComplete()
	if err != nil {
		d.fault(err)
		return false
	}
	if !done {
		d.counters.Overruns++
		return true
	}
	if err := d.deps.Host.TriggerSend(frame); err != nil {
		if err == link.ErrBusy {
			d.counters.Overruns++
			return true
		}
		d.fault(err)
		return false
	}
	d.counters.Sent++
	d.toggle ^= telegram.ControlToggle
	return true
}

// receive picks up the latest host telegram and synchronizes the
// mailboxes. The mailboxes are synchronized every tick, against the last
// verified telegram when nothing new arrived.
func (d *Device) receive() {
	if frame, ok := d.deps.Host.Latest(); ok {
		if t, ok := telegram.FromBytes(frame); ok && t.Verify() {
			d.rx = *t
			d.counters.Received++
			f := telegram.Split(t)
			d.handleNonSafety(&f.NonSafety)
		} else {
			d.counters.Corrupt++
		}
	}
	f := telegram.Split(&d.rx)
	d.boxes.Sync(&f.SPDU)
}

func (d *Device) handleNonSafety(ns *telegram.NonSafety) {
	if ns.Command != telegram.CmdConfigFragment {
		return
	}
	size := int(ns.Length)
	if size > len(ns.Data) {
		size = len(ns.Data)
	}
	msg, ok := d.frags.PushFragment(int(ns.Fragment), ns.Data[:size])
	d.counters.FragmentDrops = d.frags.Dropped()
	if !ok {
		return
	}
	d.gate.Configure(msg.Delays[:], msg.Guards)
	d.configID = msg.ConfigID
	d.counters.Configs++
	glog.Infof("channel %s: configuration %08x applied", d.conf.Channel, msg.ConfigID)
}

// Background hands new messages to the stack. It does nothing unless the
// device is operational.
func (d *Device) Background() {
	if d.State() != Operational {
		return
	}
	for _, kind := range []mailbox.Kind{mailbox.IOData, mailbox.TimeCoord} {
		if msg, ok := d.boxes.Take(kind); ok {
			d.deps.Stack.Consume(kind, &msg)
		}
	}
}

// SetTestFailure flags an output self-test failure.
func (d *Device) SetTestFailure(idx int, failed bool) {
	d.lock.Lock()
	d.gate.SetTestFailure(idx, failed)
	d.lock.Unlock()
}
