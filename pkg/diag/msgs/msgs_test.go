package msgs

import (
	"testing"

	"github.com/golang/protobuf/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/safeio/pkg/channel"
	"github.com/robotalks/safeio/pkg/device"
	"github.com/robotalks/safeio/pkg/mailbox"
	"github.com/robotalks/safeio/pkg/output"
)

func TestFromSnapshot(t *testing.T) {
	s := device.Snapshot{
		Channel:    channel.Ch2,
		State:      device.Operational,
		Tick:       42,
		ConfigID:   7,
		OutputBits: 0x03,
		Outputs: []device.OutputSnapshot{
			{Pair: channel.Pair{First: 0, Second: 1}, State: output.WaitDelayElapsed, Timer: 3, Delay: 5, Level: output.High, Healthy: true},
		},
	}
	s.Mailboxes[mailbox.IOData] = mailbox.Stats{Received: 2, Taken: 1}
	s.Counters.Sent = 40

	m := FromSnapshot(&s)
	assert.Equal(t, uint32(2), m.Channel)
	assert.Equal(t, "operational", m.State)
	assert.Equal(t, uint64(42), m.Tick)
	require.Len(t, m.Outputs, 1)
	assert.Equal(t, "WAIT_DELAY_ELAPSED", m.Outputs[0].State)
	assert.True(t, m.Outputs[0].High)
	assert.Equal(t, uint64(2), m.IoData.Received)
	assert.Equal(t, uint64(40), m.Counters.Sent)
}

func TestEncodeDecode(t *testing.T) {
	snapshot := &Snapshot{
		Channel: 1,
		State:   "faulted",
		Error:   "ipc down",
		Outputs: []*Output{{First: 2, Second: 2, State: "WAIT_REQUEST_HIGH"}},
		IoData:  &MailboxStats{Received: 9},
	}
	data, err := Encode(snapshot)
	require.NoError(t, err)
	msg, err := Decode(data)
	require.NoError(t, err)
	decoded, ok := msg.(*Snapshot)
	require.True(t, ok)
	assert.True(t, proto.Equal(snapshot, decoded))

	data, err = Encode(&Command{Op: OpTestFailure, Index: 3, Failed: true})
	require.NoError(t, err)
	msg, err = Decode(data)
	require.NoError(t, err)
	assert.Equal(t, &Command{Op: OpTestFailure, Index: 3, Failed: true}, msg)
}

func TestDecodeUnknown(t *testing.T) {
	data, err := proto.Marshal(&Typed{TypeId: 0x1234})
	require.NoError(t, err)
	_, err = Decode(data)
	require.Error(t, err)
	assert.IsType(t, &ErrUnknownType{}, err)
}
