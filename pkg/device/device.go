// Package device is the cyclic orchestration of one channel of a
// dual-channel safety I/O module.
//
// A Device owns all mutable state of the channel: the output gate, the
// mailboxes, the configuration reassembler and the telegram buffers. Tick
// runs in the tick context and Background in the background context; the
// mailboxes are the only state both of them touch.
package device

import (
	"errors"
	"fmt"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/safeio/pkg/channel"
	"github.com/robotalks/safeio/pkg/exchange"
	"github.com/robotalks/safeio/pkg/link"
	"github.com/robotalks/safeio/pkg/mailbox"
	"github.com/robotalks/safeio/pkg/mixing"
	"github.com/robotalks/safeio/pkg/output"
	"github.com/robotalks/safeio/pkg/telegram"
)

// State is the operational state of a Device.
type State int

// States.
const (
	Startup State = iota
	Operational
	Faulted
)

var stateNames = []string{"startup", "operational", "faulted"}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Defaults.
const (
	DefaultStartupSyncTicks = 8
	DefaultStallTicks       = 25
)

// ErrTwinStalled indicates the sync counter of the twin stopped advancing.
var ErrTwinStalled = errors.New("twin channel stalled")

// Inputs samples the local inputs.
type Inputs interface {
	// Sample returns the input bits and their qualifiers, one bit per
	// physical input.
	Sample() (inputs, qualifiers byte)
}

// SampleFunc is the func form of Inputs.
type SampleFunc func() (byte, byte)

// Sample implements Inputs.
func (f SampleFunc) Sample() (byte, byte) {
	return f()
}

// Stack is the safety protocol stack above the device.
type Stack interface {
	// Produce fills the outgoing Safety PDU of this tick.
	Produce(spdu *telegram.SPDU)
	// Consume receives a new message taken from a mailbox. msg is only
	// valid during the call.
	Consume(kind mailbox.Kind, msg *mailbox.Message)
	// Requests returns the requested output levels, one bit per physical
	// output.
	Requests() byte
}

// Config is the static configuration of a Device.
type Config struct {
	Channel  channel.ID
	Scheme   mixing.Scheme
	Identity telegram.Identity
	Outputs  output.Config
	// StartupSyncTicks is the number of consecutive ticks the sync counter
	// of the twin must advance before the device becomes operational.
	StartupSyncTicks int
	// StallTicks is the number of ticks without twin sync counter progress
	// before an operational device faults. Zero disables the check.
	StallTicks int
}

// DefaultConfig returns the Config with defaults for channel ch.
func DefaultConfig(ch channel.ID) Config {
	conf := Config{
		Channel:          ch,
		Scheme:           mixing.SortedOddEven,
		StartupSyncTicks: DefaultStartupSyncTicks,
		StallTicks:       DefaultStallTicks,
	}
	conf.Identity.SetLayoutSizes()
	return conf
}

// Collaborators are the external parts a Device drives.
type Collaborators struct {
	Exchange exchange.Exchange
	Host     link.TransmitReceiver
	Inputs   Inputs
	Stack    Stack
	Driver   output.Driver
}

// Counters are the statistics of a Device.
type Counters struct {
	Sent       uint64
	Overruns   uint64
	Received   uint64
	Corrupt    uint64
	Mismatches uint64
	Configs    uint64
	// FragmentDrops counts partial configuration values dropped on a
	// missing or short fragment.
	FragmentDrops uint64
}

// Device is one channel.
type Device struct {
	conf  Config
	role  channel.Role
	deps  Collaborators
	gate  *output.Gate
	boxes mailbox.Set
	frags telegram.Reassembler

	state     State
	err       error
	tick      uint64
	syncCount byte
	twinSync  byte
	advanced  int
	stalled   int
	toggle    byte
	configID  uint32
	inputs    byte
	qualifier byte
	counters  Counters

	mismatchLogged uint64

	tx      telegram.Telegram
	startup telegram.Startup
	rx      telegram.Telegram

	lock sync.Mutex
}

// New creates a Device. An invalid channel or output configuration is a
// defensive fault.
func New(conf Config, deps Collaborators) *Device {
	role := channel.NewRole(conf.Channel)
	d := &Device{
		conf: conf,
		role: role,
		deps: deps,
		gate: output.NewGate(role, conf.Outputs, deps.Driver),
	}
	telegram.BuildStartup(&d.startup, &conf.Identity)
	return d
}

// Channel returns the channel id.
func (d *Device) Channel() channel.ID {
	return d.conf.Channel
}

// Gate exposes the output gate, e.g. for output self-test results.
func (d *Device) Gate() *output.Gate {
	return d.gate
}

// Mailboxes exposes the mailboxes.
func (d *Device) Mailboxes() *mailbox.Set {
	return &d.boxes
}

// State returns the current state.
func (d *Device) State() State {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.state
}

// Err returns the error which faulted the device.
func (d *Device) Err() error {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.err
}

// Recover restarts a faulted device from Startup.
func (d *Device) Recover() {
	d.lock.Lock()
	defer d.lock.Unlock()
	if d.state != Faulted {
		return
	}
	glog.Infof("channel %s: recover", d.conf.Channel)
	d.err = nil
	d.enterStartup()
}

// Close resets everything to fail-safe defaults, as the connection is
// closed. The device restarts from Startup on the next tick.
func (d *Device) Close() error {
	d.lock.Lock()
	defer d.lock.Unlock()
	glog.Infof("channel %s: connection closed", d.conf.Channel)
	d.failSafe()
	d.err = nil
	d.enterStartup()
	return nil
}

func (d *Device) enterStartup() {
	d.state = Startup
	d.advanced = 0
	d.stalled = 0
}

// fault moves to Faulted on a transport fault.
func (d *Device) fault(err error) {
	if d.state == Faulted {
		return
	}
	glog.Warningf("channel %s: %s -> faulted: %v", d.conf.Channel, d.state, err)
	d.state = Faulted
	d.err = err
	d.failSafe()
}

// failSafe resets outputs, mailboxes, exchange slots and the partial
// configuration value.
func (d *Device) failSafe() {
	d.gate.Reset()
	d.boxes.Reset()
	d.frags.Reset()
	if d.deps.Exchange != nil {
		d.deps.Exchange.Reset()
	}
}
