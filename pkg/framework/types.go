package framework

import (
	"context"
	"time"
)

// Named is an abstraction for things with a name.
type Named interface {
	Name() string
}

// Runnable defines a generic interface for background runners, e.g.
// transports pumping received data.
type Runnable interface {
	Run(context.Context) error
}

// Controller is one step executed by the Loop.
type Controller interface {
	Control(ControlContext) error
}

// ControlFunc defines the func form of Controller.
type ControlFunc func(ControlContext) error

// Control implements Controller.
func (f ControlFunc) Control(cc ControlContext) error {
	return f(cc)
}

// ControlContext provides the context of the current step.
type ControlContext interface {
	// Context retrieves context.Context.
	Context() context.Context
	// Tick is the number of the current tick, starting from 1.
	Tick() uint64
	// Time is when the current tick started.
	Time() time.Time
	// PriorityLevel gets the current priority level, PrLvBackground for
	// background steps.
	PriorityLevel() int
}

// PriorityLevels is the total levels of priorities in the tick context.
const PriorityLevels int = 16

// Predefined priority levels. Lower levels run first within a tick.
const (
	PrLvTop    int = 0
	PrLvHigh   int = 4
	PrLvNormal int = 8
	PrLvLow    int = 12
	PrLvIdle   int = PriorityLevels - 1

	// PrLvBackground is reported to background steps. It is lower than
	// every tick level.
	PrLvBackground int = PriorityLevels
)

// LoopAdder provides specific logic to add components to loop.
type LoopAdder interface {
	AddToLoop(*Loop)
}
