// Package modbus mirrors channel status into the coils and holding
// registers of a Modbus TCP server, e.g. a panel or a PLC.
package modbus

import (
	"errors"
	"sync"
	"time"

	"github.com/goburrow/modbus"

	"github.com/robotalks/safeio/pkg/device"
	fx "github.com/robotalks/safeio/pkg/framework"
	"github.com/robotalks/safeio/pkg/output"
)

// Coil layout, relative to Config.CoilBase.
const (
	CoilOutputs  = 0
	CoilRampDown = output.MaxOutputs
	Coils        = 2 * output.MaxOutputs
)

// Register layout, relative to Config.RegisterBase.
const (
	RegState     = 0
	RegTickLow   = 1
	RegTickHigh  = 2
	RegConfigLow = 3
	RegConfigHi  = 4
	RegInputs    = 5
	RegPairs     = 6 // per pair: state, timer
	Registers    = RegPairs + 2*output.MaxOutputs
)

// Writer writes coils and registers.
type Writer interface {
	WriteCoils(addr uint16, bits []bool) error
	WriteRegisters(addr uint16, regs []uint16) error
}

// Config configures the mirror.
type Config struct {
	Endpoint     string
	UnitID       uint8
	Timeout      time.Duration
	CoilBase     uint16
	RegisterBase uint16
	// Every is the number of ticks between updates.
	Every uint64
}

// Client is a Writer over Modbus TCP.
type Client struct {
	mu      sync.Mutex
	handler *modbus.TCPClientHandler
	client  modbus.Client
}

// Dial connects a Modbus TCP server.
func Dial(conf Config) (*Client, error) {
	if conf.Endpoint == "" {
		return nil, errors.New("modbus: endpoint required")
	}
	h := modbus.NewTCPClientHandler(conf.Endpoint)
	h.Timeout = conf.Timeout
	h.SlaveId = conf.UnitID
	if err := h.Connect(); err != nil {
		return nil, err
	}
	return &Client{handler: h, client: modbus.NewClient(h)}, nil
}

// Close implements io.Closer.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handler.Close()
}

// WriteCoils implements Writer.
func (c *Client) WriteCoils(addr uint16, bits []bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.client.WriteMultipleCoils(addr, uint16(len(bits)), packBits(bits))
	return err
}

// WriteRegisters implements Writer.
func (c *Client) WriteRegisters(addr uint16, regs []uint16) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.client.WriteMultipleRegisters(addr, uint16(len(regs)), packRegisters(regs))
	return err
}

func packBits(bits []bool) []byte {
	out := make([]byte, (len(bits)+7)/8)
	for i, v := range bits {
		if v {
			out[i/8] |= 1 << uint(i%8)
		}
	}
	return out
}

// registers are big-endian on the Modbus wire.
func packRegisters(regs []uint16) []byte {
	out := make([]byte, len(regs)*2)
	for i, r := range regs {
		out[2*i] = byte(r >> 8)
		out[2*i+1] = byte(r)
	}
	return out
}

// Source provides snapshots.
type Source interface {
	Snapshot() device.Snapshot
}

// Mirror copies snapshots to a Writer in the background context.
type Mirror struct {
	Writer       Writer
	Source       Source
	CoilBase     uint16
	RegisterBase uint16
	Every        uint64

	last uint64
}

// NewMirror creates a Mirror.
func NewMirror(w Writer, src Source, conf Config) *Mirror {
	return &Mirror{
		Writer:       w,
		Source:       src,
		CoilBase:     conf.CoilBase,
		RegisterBase: conf.RegisterBase,
		Every:        conf.Every,
	}
}

// AddToLoop implements LoopAdder.
func (m *Mirror) AddToLoop(l *fx.Loop) {
	l.AddBackground(m)
}

// Control implements Controller.
func (m *Mirror) Control(cc fx.ControlContext) error {
	if m.last != 0 && cc.Tick() < m.last+m.Every {
		return nil
	}
	m.last = cc.Tick()
	return m.Update()
}

// Update writes the current snapshot.
func (m *Mirror) Update() error {
	s := m.Source.Snapshot()
	coils, regs := Encode(&s)
	var errs fx.AggregatedError
	errs.Add(m.Writer.WriteCoils(m.CoilBase, coils[:]))
	errs.Add(m.Writer.WriteRegisters(m.RegisterBase, regs[:]))
	return errs.Aggregate()
}

// Encode lays out a snapshot as coils and registers.
func Encode(s *device.Snapshot) (coils [Coils]bool, regs [Registers]uint16) {
	for i := 0; i < output.MaxOutputs; i++ {
		coils[CoilOutputs+i] = s.OutputBits&(1<<uint(i)) != 0
		coils[CoilRampDown+i] = s.RampDownBits&(1<<uint(i)) != 0
	}
	regs[RegState] = uint16(s.State)
	regs[RegTickLow], regs[RegTickHigh] = uint16(s.Tick), uint16(s.Tick>>16)
	regs[RegConfigLow], regs[RegConfigHi] = uint16(s.ConfigID), uint16(s.ConfigID>>16)
	regs[RegInputs] = uint16(s.Inputs) | uint16(s.InputQualifiers)<<8
	for n, o := range s.Outputs {
		if n >= output.MaxOutputs {
			break
		}
		regs[RegPairs+2*n] = uint16(o.State)
		regs[RegPairs+2*n+1] = o.Timer
	}
	return
}
