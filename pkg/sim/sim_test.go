package sim

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/safeio/pkg/channel"
	"github.com/robotalks/safeio/pkg/device"
	"github.com/robotalks/safeio/pkg/env"
	"github.com/robotalks/safeio/pkg/mailbox"
	"github.com/robotalks/safeio/pkg/telegram"
)

func newSimulator(t *testing.T) *Simulator {
	f := env.DefaultDeviceFile()
	f.Identity.Serial = 0x1234
	require.NoError(t, f.Validate())
	return New(f)
}

func operational(t *testing.T, s *Simulator) {
	for i := 0; i < 40; i++ {
		if s.Devices[0].State() == device.Operational && s.Devices[1].State() == device.Operational {
			return
		}
		s.Step(context.Background(), 1)
	}
	t.Fatalf("not operational: %s, %s", s.Devices[0].State(), s.Devices[1].State())
}

func TestSimulatorStartup(t *testing.T) {
	s := newSimulator(t)
	s.Step(context.Background(), 1)
	id := s.Host.Startup()
	require.NotNil(t, id)
	assert.Equal(t, uint32(0x1234), id.Serial)

	operational(t, s)
	s.Inputs.Set(0x05, 0xff)
	s.Step(context.Background(), 2)
	last := s.Host.Last()
	assert.NotZero(t, last.Control&telegram.ControlRunning)
	assert.Equal(t, byte(0x05), last.SideIO.Inputs)
	assert.Equal(t, byte(0x05), last.SPDU.IOData.Payload[0])
	assert.Equal(t, byte(0xff), last.SPDU.IOData.Payload[1])
	received, corrupt := s.Host.Counters()
	assert.NotZero(t, received)
	assert.Zero(t, corrupt)
}

func TestSimulatorOutputs(t *testing.T) {
	s := newSimulator(t)
	s.Inputs.Set(0, 0xff)
	operational(t, s)

	s.Host.Configure(&telegram.ConfigMessage{ConfigID: 7, Delays: [8]uint16{2}})
	s.Step(context.Background(), telegram.ConfigFragments+1)
	assert.Equal(t, uint32(7), s.Device(channel.Ch1).Snapshot().ConfigID)
	assert.Equal(t, uint32(7), s.Device(channel.Ch2).Snapshot().ConfigID)

	s.Request(0x03)
	s.Step(context.Background(), 3)
	assert.NotZero(t, s.Stacks[0].Consumed(mailbox.IOData))
	for _, p := range s.Pins {
		assert.Equal(t, byte(0x03), p.Bits())
	}

	s.Request(0)
	s.Step(context.Background(), 2)
	for n, p := range s.Pins {
		assert.Equal(t, byte(0x03), p.Bits())
		assert.NotZero(t, s.Devices[n].Gate().RampDownBits())
	}
	s.Step(context.Background(), 3)
	for _, p := range s.Pins {
		assert.Zero(t, p.Bits())
	}
}

func TestSimulatorTransportFault(t *testing.T) {
	s := newSimulator(t)
	operational(t, s)
	s.Request(0x03)
	s.Step(context.Background(), 3)

	s.Local(channel.Ch2).Fail(errors.New("cable"))
	s.Step(context.Background(), 1)
	assert.Equal(t, device.Faulted, s.Device(channel.Ch2).State())
	assert.Zero(t, s.Pins[1].Bits())

	s.Step(context.Background(), device.DefaultStallTicks+2)
	assert.Equal(t, device.Faulted, s.Device(channel.Ch1).State())
	assert.Equal(t, device.ErrTwinStalled, s.Device(channel.Ch1).Err())
	assert.Zero(t, s.Pins[0].Bits())

	s.Local(channel.Ch2).Recover()
	s.Devices[0].Recover()
	s.Devices[1].Recover()
	operational(t, s)
}
