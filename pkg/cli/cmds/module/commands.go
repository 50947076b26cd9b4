// Package module adds the shell commands which drive the simulated module
// and its host.
package module

import (
	"fmt"
	"strconv"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/safeio/pkg/cli/sh"
	"github.com/robotalks/safeio/pkg/diag/mqtt"
	"github.com/robotalks/safeio/pkg/diag/msgs"
	"github.com/robotalks/safeio/pkg/telegram"
)

var configID uint32

func apply(c *ishell.Context, arg string, cmd *msgs.Command) {
	dev, err := sh.Device(c, arg)
	if err != nil {
		c.Err(err)
		return
	}
	if err := (&mqtt.Commander{Target: dev}).Apply(cmd); err != nil {
		c.Err(err)
	}
}

var (
	// InputCmd sets the physical inputs.
	InputCmd = ishell.Cmd{
		Name:    "input",
		Aliases: []string{"in"},
		Help:    "BITS [QUALIFIERS]",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("BITS required"))
				return
			}
			bits, err := sh.ByteArg(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			qualifiers := byte(0xff)
			if len(c.Args) > 1 {
				if qualifiers, err = sh.ByteArg(c.Args[1]); err != nil {
					c.Err(err)
					return
				}
			}
			sh.ShellFrom(c).Sim.Inputs.Set(bits, qualifiers)
		},
	}

	// RequestCmd sends the requested output bits from the host.
	RequestCmd = ishell.Cmd{
		Name:    "request",
		Aliases: []string{"req"},
		Help:    "BITS",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("BITS required"))
				return
			}
			bits, err := sh.ByteArg(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			sh.ShellFrom(c).Sim.Request(bits)
		},
	}

	// ConfigCmd sends a configuration message with ramp-down delays.
	ConfigCmd = ishell.Cmd{
		Name:    "config",
		Aliases: []string{"cfg"},
		Help:    "DELAY(ticks)...",
		Func: func(c *ishell.Context) {
			if len(c.Args) > telegram.ConfigOutputs {
				c.Err(fmt.Errorf("at most %d delays", telegram.ConfigOutputs))
				return
			}
			configID++
			msg := &telegram.ConfigMessage{ConfigID: configID}
			for n, arg := range c.Args {
				val, err := strconv.ParseUint(arg, 0, 16)
				if err != nil {
					c.Err(fmt.Errorf("invalid DELAY %q: %v", arg, err))
					return
				}
				msg.Delays[n] = uint16(val)
			}
			sh.ShellFrom(c).Sim.Host.Configure(msg)
		},
	}

	// FailCmd breaks the exchange link of a channel.
	FailCmd = ishell.Cmd{
		Name: "fail",
		Help: "CHANNEL",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("CHANNEL required"))
				return
			}
			ch, err := sh.ChannelArg(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			sh.ShellFrom(c).Sim.Local(ch).Fail(fmt.Errorf("%s: link down", ch))
		},
	}

	// RecoverCmd repairs the exchange link and recovers a faulted channel.
	RecoverCmd = ishell.Cmd{
		Name: "recover",
		Help: "CHANNEL",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("CHANNEL required"))
				return
			}
			ch, err := sh.ChannelArg(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			sh.ShellFrom(c).Sim.Local(ch).Recover()
			apply(c, c.Args[0], &msgs.Command{Op: msgs.OpRecover})
		},
	}

	// TestFailureCmd flags an output self-test failure.
	TestFailureCmd = ishell.Cmd{
		Name:    "testfail",
		Aliases: []string{"tf"},
		Help:    "CHANNEL INDEX on|off",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 3 {
				c.Err(fmt.Errorf("CHANNEL INDEX on|off required"))
				return
			}
			idx, err := strconv.ParseUint(c.Args[1], 0, 8)
			if err != nil {
				c.Err(fmt.Errorf("invalid INDEX %q", c.Args[1]))
				return
			}
			var failed bool
			switch c.Args[2] {
			case "on":
				failed = true
			case "off":
			default:
				c.Err(fmt.Errorf("on or off expected, got %q", c.Args[2]))
				return
			}
			apply(c, c.Args[0], &msgs.Command{Op: msgs.OpTestFailure, Index: uint32(idx), Failed: failed})
		},
	}

	// CloseCmd resets a channel as if the connection closed.
	CloseCmd = ishell.Cmd{
		Name: "close",
		Help: "CHANNEL",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("CHANNEL required"))
				return
			}
			apply(c, c.Args[0], &msgs.Command{Op: msgs.OpClose})
		},
	}
)

func init() {
	sh.AddCmds(
		&InputCmd,
		&RequestCmd,
		&ConfigCmd,
		&FailCmd,
		&RecoverCmd,
		&TestFailureCmd,
		&CloseCmd,
	)
}
