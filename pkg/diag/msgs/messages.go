package msgs

import (
	"github.com/golang/protobuf/proto"

	"github.com/robotalks/safeio/pkg/device"
	"github.com/robotalks/safeio/pkg/mailbox"
	"github.com/robotalks/safeio/pkg/output"
)

// TypeIDs
const (
	SnapshotTypeID uint32 = TypeIDKindEvent | 0x0001
	CommandTypeID  uint32 = TypeIDKindCommand | 0x0001
)

// Snapshot is the periodic status of a channel.
type Snapshot struct {
	Channel         uint32          `protobuf:"varint,1,opt,name=channel,proto3" json:"channel,omitempty"`
	State           string          `protobuf:"bytes,2,opt,name=state,proto3" json:"state,omitempty"`
	Error           string          `protobuf:"bytes,3,opt,name=error,proto3" json:"error,omitempty"`
	Tick            uint64          `protobuf:"varint,4,opt,name=tick,proto3" json:"tick,omitempty"`
	ConfigId        uint32          `protobuf:"varint,5,opt,name=config_id,json=configId,proto3" json:"config_id,omitempty"`
	Inputs          uint32          `protobuf:"varint,6,opt,name=inputs,proto3" json:"inputs,omitempty"`
	InputQualifiers uint32          `protobuf:"varint,7,opt,name=input_qualifiers,json=inputQualifiers,proto3" json:"input_qualifiers,omitempty"`
	OutputBits      uint32          `protobuf:"varint,8,opt,name=output_bits,json=outputBits,proto3" json:"output_bits,omitempty"`
	RampDownBits    uint32          `protobuf:"varint,9,opt,name=ramp_down_bits,json=rampDownBits,proto3" json:"ramp_down_bits,omitempty"`
	Outputs         []*Output       `protobuf:"bytes,10,rep,name=outputs,proto3" json:"outputs,omitempty"`
	IoData          *MailboxStats   `protobuf:"bytes,11,opt,name=io_data,json=ioData,proto3" json:"io_data,omitempty"`
	TimeCoord       *MailboxStats   `protobuf:"bytes,12,opt,name=time_coord,json=timeCoord,proto3" json:"time_coord,omitempty"`
	Counters        *DeviceCounters `protobuf:"bytes,13,opt,name=counters,proto3" json:"counters,omitempty"`
}

// NewMessage implements SerializableMessage.
func (m *Snapshot) NewMessage() SerializableMessage { return &Snapshot{} }

// TypeID implements SerializableMessage.
func (m *Snapshot) TypeID() uint32 { return SnapshotTypeID }

// ProtoMessage implements proto.Message.
func (m *Snapshot) ProtoMessage() {}

// Reset implements proto.Message.
func (m *Snapshot) Reset() { *m = Snapshot{} }

// String implements proto.Message.
func (m *Snapshot) String() string { return proto.CompactTextString(m) }

// Output is the state of one output pair.
type Output struct {
	First   uint32 `protobuf:"varint,1,opt,name=first,proto3" json:"first,omitempty"`
	Second  uint32 `protobuf:"varint,2,opt,name=second,proto3" json:"second,omitempty"`
	State   string `protobuf:"bytes,3,opt,name=state,proto3" json:"state,omitempty"`
	Timer   uint32 `protobuf:"varint,4,opt,name=timer,proto3" json:"timer,omitempty"`
	Delay   uint32 `protobuf:"varint,5,opt,name=delay,proto3" json:"delay,omitempty"`
	High    bool   `protobuf:"varint,6,opt,name=high,proto3" json:"high,omitempty"`
	Healthy bool   `protobuf:"varint,7,opt,name=healthy,proto3" json:"healthy,omitempty"`
}

// ProtoMessage implements proto.Message.
func (m *Output) ProtoMessage() {}

// Reset implements proto.Message.
func (m *Output) Reset() { *m = Output{} }

// String implements proto.Message.
func (m *Output) String() string { return proto.CompactTextString(m) }

// MailboxStats are the counters of a mailbox.
type MailboxStats struct {
	Received    uint64 `protobuf:"varint,1,opt,name=received,proto3" json:"received,omitempty"`
	Overwritten uint64 `protobuf:"varint,2,opt,name=overwritten,proto3" json:"overwritten,omitempty"`
	Taken       uint64 `protobuf:"varint,3,opt,name=taken,proto3" json:"taken,omitempty"`
}

// ProtoMessage implements proto.Message.
func (m *MailboxStats) ProtoMessage() {}

// Reset implements proto.Message.
func (m *MailboxStats) Reset() { *m = MailboxStats{} }

// String implements proto.Message.
func (m *MailboxStats) String() string { return proto.CompactTextString(m) }

// DeviceCounters are the telegram counters of a channel.
type DeviceCounters struct {
	Sent          uint64 `protobuf:"varint,1,opt,name=sent,proto3" json:"sent,omitempty"`
	Overruns      uint64 `protobuf:"varint,2,opt,name=overruns,proto3" json:"overruns,omitempty"`
	Received      uint64 `protobuf:"varint,3,opt,name=received,proto3" json:"received,omitempty"`
	Corrupt       uint64 `protobuf:"varint,4,opt,name=corrupt,proto3" json:"corrupt,omitempty"`
	Mismatches    uint64 `protobuf:"varint,5,opt,name=mismatches,proto3" json:"mismatches,omitempty"`
	Configs       uint64 `protobuf:"varint,6,opt,name=configs,proto3" json:"configs,omitempty"`
	FragmentDrops uint64 `protobuf:"varint,7,opt,name=fragment_drops,json=fragmentDrops,proto3" json:"fragment_drops,omitempty"`
}

// ProtoMessage implements proto.Message.
func (m *DeviceCounters) ProtoMessage() {}

// Reset implements proto.Message.
func (m *DeviceCounters) Reset() { *m = DeviceCounters{} }

// String implements proto.Message.
func (m *DeviceCounters) String() string { return proto.CompactTextString(m) }

// Command operations.
const (
	OpRecover     = "recover"
	OpTestFailure = "test-failure"
	OpClose       = "close"
)

// Command is a maintenance request sent to a channel.
type Command struct {
	Op     string `protobuf:"bytes,1,opt,name=op,proto3" json:"op,omitempty"`
	Index  uint32 `protobuf:"varint,2,opt,name=index,proto3" json:"index,omitempty"`
	Failed bool   `protobuf:"varint,3,opt,name=failed,proto3" json:"failed,omitempty"`
}

// NewMessage implements SerializableMessage.
func (m *Command) NewMessage() SerializableMessage { return &Command{} }

// TypeID implements SerializableMessage.
func (m *Command) TypeID() uint32 { return CommandTypeID }

// ProtoMessage implements proto.Message.
func (m *Command) ProtoMessage() {}

// Reset implements proto.Message.
func (m *Command) Reset() { *m = Command{} }

// String implements proto.Message.
func (m *Command) String() string { return proto.CompactTextString(m) }

func mailboxStats(s mailbox.Stats) *MailboxStats {
	return &MailboxStats{Received: s.Received, Overwritten: s.Overwritten, Taken: s.Taken}
}

// FromSnapshot converts a device snapshot.
func FromSnapshot(s *device.Snapshot) *Snapshot {
	m := &Snapshot{
		Channel:         uint32(s.Channel),
		State:           s.State.String(),
		Error:           s.Err,
		Tick:            s.Tick,
		ConfigId:        s.ConfigID,
		Inputs:          uint32(s.Inputs),
		InputQualifiers: uint32(s.InputQualifiers),
		OutputBits:      uint32(s.OutputBits),
		RampDownBits:    uint32(s.RampDownBits),
		IoData:          mailboxStats(s.Mailboxes[mailbox.IOData]),
		TimeCoord:       mailboxStats(s.Mailboxes[mailbox.TimeCoord]),
		Counters: &DeviceCounters{
			Sent:          s.Counters.Sent,
			Overruns:      s.Counters.Overruns,
			Received:      s.Counters.Received,
			Corrupt:       s.Counters.Corrupt,
			Mismatches:    s.Counters.Mismatches,
			Configs:       s.Counters.Configs,
			FragmentDrops: s.Counters.FragmentDrops,
		},
	}
	for _, o := range s.Outputs {
		m.Outputs = append(m.Outputs, &Output{
			First:   uint32(o.Pair.First),
			Second:  uint32(o.Pair.Second),
			State:   o.State.String(),
			Timer:   uint32(o.Timer),
			Delay:   uint32(o.Delay),
			High:    o.Level == output.High,
			Healthy: o.Healthy,
		})
	}
	return m
}
