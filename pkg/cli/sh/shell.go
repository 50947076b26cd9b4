// Package sh provides the interactive shell of the module simulator.
package sh

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"strconv"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/safeio/pkg/channel"
	"github.com/robotalks/safeio/pkg/device"
	"github.com/robotalks/safeio/pkg/diag/msgs"
	"github.com/robotalks/safeio/pkg/env"
	"github.com/robotalks/safeio/pkg/sim"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool

	Shell *ishell.Shell
	Sim   *sim.Simulator

	cancel func()
	done   chan error
}

const (
	shellKey       = "$shell"
	stoppedPrompt  = "[stopped] > "
	runningPrompt  = "[running] > "
	defaultTickArg = 1
)

var (
	// flags

	evalOnly   bool
	outputJSON bool

	// commands
	commands = []*ishell.Cmd{
		&StatusCmd,
		&TickCmd,
		&RunCmd,
		&StopCmd,
		&TelegramCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(s *sim.Simulator) *Shell {
	sh := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Shell: ishell.New(),
		Sim:   s,
	}
	sh.Shell.Set(shellKey, sh)
	sh.Shell.SetPrompt(stoppedPrompt)
	for _, cmd := range commands {
		sh.Shell.AddCmd(cmd)
	}
	return sh
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeStopped wraps command func which steps the simulator manually.
func MustBeStopped(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if ShellFrom(c).Running() {
			c.Err(fmt.Errorf("simulator is running"))
			return
		}
		fn(c)
	}
}

// ChannelArg parses a channel argument.
func ChannelArg(arg string) (channel.ID, error) {
	n, err := strconv.Atoi(arg)
	if err != nil || !channel.ID(n).IsValid() {
		return 0, fmt.Errorf("invalid channel %q", arg)
	}
	return channel.ID(n), nil
}

// ByteArg parses a byte argument, 0x prefix for hex.
func ByteArg(arg string) (byte, error) {
	n, err := strconv.ParseUint(arg, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid value %q: %v", arg, err)
	}
	return byte(n), nil
}

// Print prints v as JSON when OutputJSON is set, or in text form.
func Print(c *ishell.Context, v fmt.Stringer) {
	if ShellFrom(c).OutputJSON {
		out, err := json.Marshal(v)
		if err != nil {
			c.Err(err)
			return
		}
		c.Println(string(out))
		return
	}
	c.Println(v.String())
}

// Running tells if the loop is running.
func (s *Shell) Running() bool {
	return s.cancel != nil
}

// Start runs the simulator loop in background.
func (s *Shell) Start() {
	if s.Running() {
		return
	}
	var ctx context.Context
	ctx, s.cancel = context.WithCancel(context.Background())
	s.done = make(chan error, 1)
	go func(done chan error) {
		done <- s.Sim.Run(ctx)
	}(s.done)
	s.Shell.SetPrompt(runningPrompt)
}

// Stop stops the simulator loop.
func (s *Shell) Stop() {
	if !s.Running() {
		return
	}
	s.cancel()
	<-s.done
	s.cancel, s.done = nil, nil
	s.Shell.SetPrompt(stoppedPrompt)
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	defer s.Stop()
	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

func snapshots(s *sim.Simulator) []*msgs.Snapshot {
	var out []*msgs.Snapshot
	for _, dev := range s.Devices {
		snap := dev.Snapshot()
		out = append(out, msgs.FromSnapshot(&snap))
	}
	return out
}

var (
	// StatusCmd prints the snapshot of both channels.
	StatusCmd = ishell.Cmd{
		Name:    "status",
		Aliases: []string{"st"},
		Help:    "[CHANNEL]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			list := snapshots(s.Sim)
			if len(c.Args) > 0 {
				ch, err := ChannelArg(c.Args[0])
				if err != nil {
					c.Err(err)
					return
				}
				list = list[int(ch)-1 : int(ch)]
			}
			for _, snap := range list {
				Print(c, snap)
			}
		},
	}

	// TickCmd steps the simulator.
	TickCmd = ishell.Cmd{
		Name:    "tick",
		Aliases: []string{"t"},
		Help:    "[COUNT]",
		Func: MustBeStopped(func(c *ishell.Context) {
			count := defaultTickArg
			if len(c.Args) > 0 {
				n, err := strconv.Atoi(c.Args[0])
				if err != nil || n <= 0 {
					c.Err(fmt.Errorf("invalid COUNT %q", c.Args[0]))
					return
				}
				count = n
			}
			s := ShellFrom(c)
			s.Sim.Step(context.Background(), count)
			if !s.OutputJSON {
				c.Printf("tick %d: %s %s\n", s.Sim.Loop.Ticks(),
					s.Sim.Devices[0].State(), s.Sim.Devices[1].State())
			}
		}),
	}

	// RunCmd runs the simulator loop in background.
	RunCmd = ishell.Cmd{
		Name: "run",
		Help: "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Start()
		},
	}

	// StopCmd stops the simulator loop.
	StopCmd = ishell.Cmd{
		Name: "stop",
		Help: "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Stop()
		},
	}

	// TelegramCmd prints the last telegram received by the host.
	TelegramCmd = ishell.Cmd{
		Name:    "telegram",
		Aliases: []string{"tg"},
		Help:    "",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			f := s.Sim.Host.Last()
			if s.OutputJSON {
				out, err := json.Marshal(f)
				if err != nil {
					c.Err(err)
					return
				}
				c.Println(string(out))
				return
			}
			received, corrupt := s.Sim.Host.Counters()
			n := int(f.SPDU.IOData.Length)
			if n > len(f.SPDU.IOData.Payload) {
				n = len(f.SPDU.IOData.Payload)
			}
			c.Printf("control=%02x io-data=%x/%d time-coord=%x/%d inputs=%02x/%02x outputs=%02x ramp-down=%02x (received %d, corrupt %d)\n",
				f.Control,
				f.SPDU.IOData.Payload[:n], f.SPDU.IODataDUI,
				f.SPDU.TimeCoord.Payload, f.SPDU.TimeCoordDUI,
				f.SideIO.Inputs, f.SideIO.InputQualifiers,
				f.SideIO.OutputQualifiers, f.SideIO.RampDown,
				received, corrupt)
		},
	}
)

// Device returns the device named by a channel argument.
func Device(c *ishell.Context, arg string) (*device.Device, error) {
	ch, err := ChannelArg(arg)
	if err != nil {
		return nil, err
	}
	return ShellFrom(c).Sim.Device(ch), nil
}

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	f, err := env.NewConfig().LoadDevice()
	if err != nil {
		log.Fatalln(err)
	}
	New(sim.New(f)).Run(flag.Args()...)
}
