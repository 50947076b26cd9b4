// Package output gates and time-delays the dual-channel safety outputs.
//
// Every output pair runs a three-state machine combining the live SafeBound
// AND-gate with the SS1-t timed ramp-down:
//
//	WaitRequestHigh   de-energized (safe)
//	WaitRequestLow    energized
//	WaitDelayElapsed  ramp-down in progress, still energized
//
// Both members of a pair are always written together. Timers count
// scheduler ticks, not wall-clock time. A detected output test failure on
// either member always bypasses the ramp-down.
package output

import (
	"fmt"

	"github.com/golang/glog"

	"github.com/robotalks/safeio/pkg/channel"
	"github.com/robotalks/safeio/pkg/fault"
)

// MaxOutputs is the number of physical output indices.
const MaxOutputs = 8

// Level is the output level.
type Level byte

// Levels.
const (
	Low Level = iota
	High
)

// String implements fmt.Stringer.
func (l Level) String() string {
	if l == High {
		return "HIGH"
	}
	return "LOW"
}

// State is the ramp-down state of an output.
type State int

// States.
const (
	WaitRequestHigh State = iota
	WaitRequestLow
	WaitDelayElapsed
)

var stateNames = []string{"WAIT_REQUEST_HIGH", "WAIT_REQUEST_LOW", "WAIT_DELAY_ELAPSED"}

// String implements fmt.Stringer.
func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Driver applies levels to the physical pins of a pair.
type Driver interface {
	Drive(channel.Pair, Level)
}

// DriveFunc is func form of Driver.
type DriveFunc func(channel.Pair, Level)

// Drive implements Driver.
func (f DriveFunc) Drive(p channel.Pair, l Level) {
	f(p, l)
}

// Config describes the outputs.
type Config struct {
	Pairs []channel.Pair
	// Delays are SS1-t ramp-down delays in ticks, one per pair.
	Delays []uint16
	// Guards are SafeBound input masks per output index. All inputs in the
	// mask must be healthy for the output to be allowed to energize. A zero
	// mask leaves the output unguarded.
	Guards [MaxOutputs]byte
}

type point struct {
	request    Level
	state      State
	timer      uint16
	safeBound  bool
	testFailed bool
	level      Level
}

// Gate is the output gate of one channel.
type Gate struct {
	role   channel.Role
	driver Driver
	pairs  []channel.Pair
	delays []uint16
	guards [MaxOutputs]byte
	points [MaxOutputs]point
}

// NewGate creates a Gate. An invalid Config is a defensive fault.
func NewGate(role channel.Role, conf Config, driver Driver) *Gate {
	g := &Gate{
		role:   role,
		driver: driver,
		pairs:  append([]channel.Pair(nil), conf.Pairs...),
		delays: make([]uint16, len(conf.Pairs)),
		guards: conf.Guards,
	}
	if err := conf.Validate(); err != nil {
		fault.Raise(fault.InvalidConfig, "%v", err)
	}
	copy(g.delays, conf.Delays)
	for n := range g.points {
		g.points[n].safeBound = true
	}
	return g
}

// Validate checks the pairs don't overlap and are in range.
func (c *Config) Validate() error {
	if len(c.Delays) > len(c.Pairs) {
		return fmt.Errorf("%d delays for %d pairs", len(c.Delays), len(c.Pairs))
	}
	var used [MaxOutputs]bool
	for n, p := range c.Pairs {
		for _, idx := range []int{p.First, p.Second} {
			if idx < 0 || idx >= MaxOutputs {
				return fmt.Errorf("pair %d: output index %d out of range", n, idx)
			}
		}
		if used[p.First] || used[p.Second] {
			return fmt.Errorf("pair %d: output index already used", n)
		}
		used[p.First], used[p.Second] = true, true
	}
	return nil
}

// Pairs returns the number of output pairs.
func (g *Gate) Pairs() int {
	return len(g.pairs)
}

// Pair returns pair n.
func (g *Gate) Pair(n int) channel.Pair {
	if n < 0 || n >= len(g.pairs) {
		fault.Raise(fault.InvalidIndex, "output pair %d", n)
	}
	return g.pairs[n]
}

func (g *Gate) point(idx int) *point {
	if idx < 0 || idx >= MaxOutputs {
		fault.Raise(fault.InvalidIndex, "output %d", idx)
	}
	return &g.points[idx]
}

// Configure replaces ramp-down delays and SafeBound masks.
func (g *Gate) Configure(delays []uint16, guards [MaxOutputs]byte) {
	for n := range g.delays {
		if n < len(delays) {
			g.delays[n] = delays[n]
		} else {
			g.delays[n] = 0
		}
	}
	g.guards = guards
}

// Delay returns the ramp-down delay of pair n.
func (g *Gate) Delay(n int) uint16 {
	g.Pair(n)
	return g.delays[n]
}

// SetSafeBound sets the SafeBound value of an output index.
func (g *Gate) SetSafeBound(idx int, ok bool) {
	g.point(idx).safeBound = ok
}

// UpdateSafeBound derives every SafeBound value from the health bits of
// the inputs: an output's value is the AND of all inputs in its guard mask.
func (g *Gate) UpdateSafeBound(health byte) {
	for idx := range g.points {
		g.points[idx].safeBound = health&g.guards[idx] == g.guards[idx]
	}
}

// SafeBound returns the SafeBound value of an output index.
func (g *Gate) SafeBound(idx int) bool {
	return g.point(idx).safeBound
}

// SetTestFailure flags an output test failure on an output index.
func (g *Gate) SetTestFailure(idx int, failed bool) {
	g.point(idx).testFailed = failed
}

// commit writes both members of a pair.
func (g *Gate) commit(p channel.Pair, state State, timer uint16, level Level) {
	changed := g.points[p.First].level != level || g.points[p.Second].level != level
	for _, idx := range []int{p.First, p.Second} {
		pt := &g.points[idx]
		pt.state, pt.timer, pt.level = state, timer, level
	}
	if changed {
		if glog.V(2) {
			glog.Infof("output %d/%d %s (%s)", p.First, p.Second, level, state)
		}
		if g.driver != nil {
			g.driver.Drive(p, level)
		}
	}
}

func (g *Gate) deenergize(p channel.Pair) {
	g.commit(p, WaitRequestHigh, 0, Low)
}

// Evaluate runs the state machine of pair n against the requested level.
func (g *Gate) Evaluate(n int, request Level) {
	p := g.Pair(n)
	self, twin := g.point(g.role.SelfIndex(p)), g.point(g.role.TwinIndex(p))
	self.request, twin.request = request, request
	gate := self.safeBound && twin.safeBound
	failed := self.testFailed || twin.testFailed

	switch self.state {
	case WaitRequestHigh:
		if request == High && gate && !failed {
			g.commit(p, WaitRequestLow, 0, High)
		} else {
			g.deenergize(p)
		}
	case WaitRequestLow:
		switch {
		case failed || !gate:
			g.deenergize(p)
		case request == High:
			// stay energized
		case g.delays[n] > 0:
			g.commit(p, WaitDelayElapsed, g.delays[n], High)
		default:
			g.deenergize(p)
		}
	case WaitDelayElapsed:
		switch {
		case failed || !gate:
			g.deenergize(p)
		case request == High:
			g.commit(p, WaitRequestLow, 0, High)
		case self.timer == 0:
			g.deenergize(p)
		}
	default:
		fault.Raise(fault.InvalidState, "output %d/%d state %d", p.First, p.Second, self.state)
	}
}

// EvaluateAll evaluates every pair. Bit i of requests is the requested
// level of output index i; a pair follows the bit of this channel's index.
func (g *Gate) EvaluateAll(requests byte) {
	for n, p := range g.pairs {
		level := Low
		if requests&(1<<uint(g.role.SelfIndex(p))) != 0 {
			level = High
		}
		g.Evaluate(n, level)
	}
}

// Tick counts every running ramp-down timer down by one, never below zero.
// The pair is de-energized by the next Evaluate with a LOW request once its
// timer is zero, so a HIGH request in the same tick keeps it energized.
func (g *Gate) Tick() {
	for _, p := range g.pairs {
		pt := &g.points[p.First]
		if pt.state != WaitDelayElapsed || pt.timer == 0 {
			continue
		}
		timer := pt.timer - 1
		g.points[p.First].timer, g.points[p.Second].timer = timer, timer
	}
}

// State returns the state of an output index.
func (g *Gate) State(idx int) State {
	return g.point(idx).state
}

// Timer returns the remaining ramp-down ticks of an output index.
func (g *Gate) Timer(idx int) uint16 {
	return g.point(idx).timer
}

// Level returns the driven level of an output index.
func (g *Gate) Level(idx int) Level {
	return g.point(idx).level
}

// RampingDown indicates the output index is in WaitDelayElapsed.
func (g *Gate) RampingDown(idx int) bool {
	return g.point(idx).state == WaitDelayElapsed
}

// RampDownBits has bit i set when output index i is ramping down.
func (g *Gate) RampDownBits() (bits byte) {
	for idx := range g.points {
		if g.points[idx].state == WaitDelayElapsed {
			bits |= 1 << uint(idx)
		}
	}
	return
}

// OutputBits has bit i set when output index i is energized.
func (g *Gate) OutputBits() (bits byte) {
	for idx := range g.points {
		if g.points[idx].level == High {
			bits |= 1 << uint(idx)
		}
	}
	return
}

// Reset de-energizes every pair and stops all timers.
func (g *Gate) Reset() {
	for _, p := range g.pairs {
		for _, idx := range []int{p.First, p.Second} {
			pt := &g.points[idx]
			pt.request, pt.state, pt.timer, pt.level = Low, WaitRequestHigh, 0, Low
		}
		if g.driver != nil {
			g.driver.Drive(p, Low)
		}
	}
}
