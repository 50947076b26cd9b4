package mqtt

import (
	"fmt"

	"github.com/golang/glog"

	"github.com/robotalks/safeio/pkg/device"
	"github.com/robotalks/safeio/pkg/diag/msgs"
	fx "github.com/robotalks/safeio/pkg/framework"
	"github.com/robotalks/safeio/pkg/output"
)

// DefaultPublishEvery is the default number of ticks between snapshots.
const DefaultPublishEvery = 250

// StatusTopic is the topic snapshots of a channel are published to.
func StatusTopic(ch fmt.Stringer) string {
	return ch.String() + "/status"
}

// CommandTopic is the topic commands to a channel are received from.
func CommandTopic(ch fmt.Stringer) string {
	return ch.String() + "/cmd"
}

// Source provides snapshots.
type Source interface {
	Snapshot() device.Snapshot
}

// Publisher publishes snapshots in the background context.
type Publisher struct {
	Queue  *Queue
	Source Source
	Topic  string
	// Every is the number of ticks between snapshots.
	Every uint64

	last uint64
}

// NewPublisher creates a Publisher for a device.
func NewPublisher(q *Queue, dev *device.Device) *Publisher {
	return &Publisher{
		Queue:  q,
		Source: dev,
		Topic:  StatusTopic(dev.Channel()),
		Every:  DefaultPublishEvery,
	}
}

// AddToLoop implements LoopAdder.
func (p *Publisher) AddToLoop(l *fx.Loop) {
	l.AddBackground(p)
}

// Control implements Controller.
func (p *Publisher) Control(cc fx.ControlContext) error {
	if p.last != 0 && cc.Tick() < p.last+p.Every {
		return nil
	}
	p.last = cc.Tick()
	return p.Publish()
}

// Publish publishes the current snapshot. It doesn't wait for delivery.
func (p *Publisher) Publish() error {
	s := p.Source.Snapshot()
	data, err := msgs.Encode(msgs.FromSnapshot(&s))
	if err != nil {
		return err
	}
	glog.V(4).Infof("PUB %q", p.Topic)
	p.Queue.Pub(p.Topic, data)
	return nil
}

// Target receives maintenance commands.
type Target interface {
	Recover()
	SetTestFailure(idx int, failed bool)
	Close() error
}

// Commander applies commands received on the command topic to Target.
type Commander struct {
	Queue  *Queue
	Target Target
	Topic  string
}

// NewCommander creates a Commander for a device.
func NewCommander(q *Queue, dev *device.Device) *Commander {
	return &Commander{Queue: q, Target: dev, Topic: CommandTopic(dev.Channel())}
}

// Subscribe starts receiving commands.
func (c *Commander) Subscribe() *Subscription {
	return c.Queue.Sub(c.Topic, c.handle)
}

func (c *Commander) handle(topic string, payload []byte) {
	msg, err := msgs.Decode(payload)
	if err != nil {
		glog.Warningf("%s: bad command: %v", topic, err)
		return
	}
	cmd, ok := msg.(*msgs.Command)
	if !ok {
		glog.Warningf("%s: unexpected message %T", topic, msg)
		return
	}
	if err := c.Apply(cmd); err != nil {
		glog.Warningf("%s: %v", topic, err)
	}
}

// Apply executes cmd on Target.
func (c *Commander) Apply(cmd *msgs.Command) error {
	glog.Infof("command %s", cmd.String())
	switch cmd.Op {
	case msgs.OpRecover:
		c.Target.Recover()
	case msgs.OpTestFailure:
		if cmd.Index >= output.MaxOutputs {
			return fmt.Errorf("output index %d out of range", cmd.Index)
		}
		c.Target.SetTestFailure(int(cmd.Index), cmd.Failed)
	case msgs.OpClose:
		return c.Target.Close()
	default:
		return fmt.Errorf("unsupported command %q", cmd.Op)
	}
	return nil
}
