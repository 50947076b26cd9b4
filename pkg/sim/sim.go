// Package sim runs both channels of a module and a simulated host in one
// process.
package sim

import (
	"context"

	"github.com/robotalks/safeio/pkg/channel"
	"github.com/robotalks/safeio/pkg/device"
	"github.com/robotalks/safeio/pkg/env"
	"github.com/robotalks/safeio/pkg/exchange"
	fx "github.com/robotalks/safeio/pkg/framework"
	"github.com/robotalks/safeio/pkg/mixing"
)

// Simulator is a module with its host.
type Simulator struct {
	Host     *Host
	Inputs   *Inputs
	Devices  [2]*device.Device
	Exchange [2]*exchange.Local
	Stacks   [2]*Stack
	Pins     [2]*Pins
	Loop     *fx.Loop
}

// New creates a Simulator from a validated device file. The host unmixes
// with the scheme of the file.
func New(f *env.DeviceFile) *Simulator {
	scheme, _ := mixing.ParseScheme(f.Scheme)
	s := &Simulator{
		Host:   NewHost(scheme),
		Inputs: &Inputs{},
		Loop:   fx.NewLoop(),
	}
	a, b := exchange.NewPair()
	s.Exchange = [2]*exchange.Local{a, b}
	for n, ch := range []channel.ID{channel.Ch1, channel.Ch2} {
		s.Stacks[n] = &Stack{Inputs: s.Inputs}
		s.Pins[n] = &Pins{}
		s.Devices[n] = device.New(f.DeviceConfig(ch), device.Collaborators{
			Exchange: s.Exchange[n],
			Host:     s.Host.Link(ch),
			Inputs:   s.Inputs,
			Stack:    s.Stacks[n],
			Driver:   s.Pins[n],
		})
	}
	s.Loop.AddController(fx.PrLvTop, fx.ControlFunc(func(fx.ControlContext) error {
		s.Host.Deliver()
		return nil
	}))
	s.Loop.Add(s.Devices[0], s.Devices[1])
	return s
}

// Device returns the device of channel ch.
func (s *Simulator) Device(ch channel.ID) *device.Device {
	return s.Devices[s.index(ch)]
}

// Local returns the exchange endpoint of channel ch.
func (s *Simulator) Local(ch channel.ID) *exchange.Local {
	return s.Exchange[s.index(ch)]
}

func (s *Simulator) index(ch channel.ID) int {
	s.Host.Link(ch)
	return int(ch) - 1
}

// Step runs n ticks, each followed by a background pass.
func (s *Simulator) Step(ctx context.Context, n int) {
	for i := 0; i < n; i++ {
		s.Loop.Step(ctx)
		s.Loop.StepBackground(ctx)
	}
}

// Run implements Runnable.
func (s *Simulator) Run(ctx context.Context) error {
	return s.Loop.Run(ctx)
}

// Request sets the requested output bits through the IO-Data message of
// the host.
func (s *Simulator) Request(bits byte) {
	s.Host.SetIOData(1, []byte{bits})
}
