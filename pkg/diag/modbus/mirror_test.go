package modbus

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/safeio/pkg/device"
	fx "github.com/robotalks/safeio/pkg/framework"
	"github.com/robotalks/safeio/pkg/output"
)

type fakeWriter struct {
	coilAddr, regAddr uint16
	coils             []bool
	regs              []uint16
	writes            int
	err               error
}

func (w *fakeWriter) WriteCoils(addr uint16, bits []bool) error {
	w.coilAddr, w.coils = addr, append([]bool(nil), bits...)
	w.writes++
	return w.err
}

func (w *fakeWriter) WriteRegisters(addr uint16, regs []uint16) error {
	w.regAddr, w.regs = addr, append([]uint16(nil), regs...)
	return nil
}

type fakeSource struct {
	snapshot device.Snapshot
}

func (s *fakeSource) Snapshot() device.Snapshot { return s.snapshot }

func TestEncode(t *testing.T) {
	s := device.Snapshot{
		State:           device.Faulted,
		Tick:            0x12345,
		ConfigID:        0xdeadbeef,
		Inputs:          0x0f,
		InputQualifiers: 0xf0,
		OutputBits:      0x05,
		RampDownBits:    0x80,
		Outputs: []device.OutputSnapshot{
			{State: output.WaitRequestLow},
			{State: output.WaitDelayElapsed, Timer: 9},
		},
	}
	coils, regs := Encode(&s)
	assert.True(t, coils[CoilOutputs])
	assert.False(t, coils[CoilOutputs+1])
	assert.True(t, coils[CoilOutputs+2])
	assert.True(t, coils[CoilRampDown+7])
	assert.Equal(t, uint16(device.Faulted), regs[RegState])
	assert.Equal(t, uint16(0x2345), regs[RegTickLow])
	assert.Equal(t, uint16(0x1), regs[RegTickHigh])
	assert.Equal(t, uint16(0xbeef), regs[RegConfigLow])
	assert.Equal(t, uint16(0xdead), regs[RegConfigHi])
	assert.Equal(t, uint16(0xf00f), regs[RegInputs])
	assert.Equal(t, uint16(output.WaitRequestLow), regs[RegPairs])
	assert.Equal(t, uint16(output.WaitDelayElapsed), regs[RegPairs+2])
	assert.Equal(t, uint16(9), regs[RegPairs+3])
}

func TestPack(t *testing.T) {
	assert.Equal(t, []byte{0x05, 0x01}, packBits([]bool{true, false, true, false, false, false, false, false, true}))
	assert.Equal(t, []byte{0x12, 0x34, 0x00, 0xff}, packRegisters([]uint16{0x1234, 0xff}))
}

func TestMirror(t *testing.T) {
	w := &fakeWriter{}
	src := &fakeSource{snapshot: device.Snapshot{OutputBits: 0x01}}
	m := NewMirror(w, src, Config{CoilBase: 100, RegisterBase: 200, Every: 2})
	l := fx.NewLoop()
	m.AddToLoop(l)
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		l.Step(ctx)
		l.StepBackground(ctx)
	}
	assert.Equal(t, 2, w.writes)
	assert.Equal(t, uint16(100), w.coilAddr)
	assert.Equal(t, uint16(200), w.regAddr)
	require.Len(t, w.coils, Coils)
	require.Len(t, w.regs, Registers)
	assert.True(t, w.coils[0])

	w.err = errors.New("timeout")
	assert.EqualError(t, m.Update(), "timeout")
}

func TestDialRequiresEndpoint(t *testing.T) {
	_, err := Dial(Config{})
	assert.Error(t, err)
}
