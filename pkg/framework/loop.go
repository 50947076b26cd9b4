package framework

import (
	"context"
	"sync"
	"time"

	"github.com/golang/glog"
)

// DefaultInterval is the tick period of a safety cycle.
const DefaultInterval = 4 * time.Millisecond

// Loop is the cyclic scheduler. Tick controllers run every Interval in
// priority order (the tick context). Background controllers run in a
// separate goroutine after a tick completes (the background context); a
// slow background pass coalesces, it never delays the next tick.
type Loop struct {
	Interval time.Duration

	controllers [PriorityLevels][]Controller
	background  []Controller
	runners     []Runnable

	tick     uint64
	lock     sync.Mutex
	bgLock   sync.Mutex
	bgWakeCh chan struct{}
}

type iteration struct {
	ctx           context.Context
	tick          uint64
	time          time.Time
	priorityLevel int
}

func (it *iteration) Context() context.Context { return it.ctx }
func (it *iteration) Tick() uint64             { return it.tick }
func (it *iteration) Time() time.Time          { return it.time }
func (it *iteration) PriorityLevel() int       { return it.priorityLevel }

// NewLoop creates a Loop.
func NewLoop() *Loop {
	return &Loop{Interval: DefaultInterval}
}

// Add adds LoopAdders.
func (l *Loop) Add(adders ...LoopAdder) *Loop {
	for _, adder := range adders {
		adder.AddToLoop(l)
	}
	return l
}

// AddController registers tick controllers at a priority level.
func (l *Loop) AddController(priorityLevel int, ctls ...Controller) *Loop {
	l.controllers[priorityLevel] = append(l.controllers[priorityLevel], ctls...)
	return l
}

// AddBackground registers background controllers.
func (l *Loop) AddBackground(ctls ...Controller) *Loop {
	l.background = append(l.background, ctls...)
	return l
}

// AddRunnable adds Runnable implementions started with Run.
func (l *Loop) AddRunnable(runnables ...Runnable) *Loop {
	l.runners = append(l.runners, runnables...)
	return l
}

// Ticks returns the number of completed ticks.
func (l *Loop) Ticks() uint64 {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.tick
}

// Run implements Runnable.
func (l *Loop) Run(ctx context.Context) error {
	runner := NewRunnerWith(ctx)
	runner.Go(l.runners...)
	defer runner.Wait()

	l.bgWakeCh = make(chan struct{}, 1)
	bgCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go l.backgroundLoop(bgCtx)

	interval := l.Interval
	if interval == 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			l.Step(ctx)
			select {
			case l.bgWakeCh <- struct{}{}:
			default:
			}
		}
	}
}

// RunOrFail is intended to be used in main to simply run the loop.
func (l *Loop) RunOrFail() {
	if err := NewRunner().HandleSignals().Go(l).Wait(); err != nil {
		glog.Fatalln(err)
	}
}

// Step executes one tick synchronously.
func (l *Loop) Step(ctx context.Context) {
	l.lock.Lock()
	l.tick++
	it := &iteration{ctx: ctx, tick: l.tick, time: time.Now()}
	l.lock.Unlock()
	for lv := 0; lv < PriorityLevels; lv++ {
		it.priorityLevel = lv
		runControllers(it, l.controllers[lv])
	}
}

// StepBackground executes one background pass synchronously.
func (l *Loop) StepBackground(ctx context.Context) {
	l.bgLock.Lock()
	defer l.bgLock.Unlock()
	it := &iteration{ctx: ctx, tick: l.Ticks(), time: time.Now(), priorityLevel: PrLvBackground}
	runControllers(it, l.background)
}

func (l *Loop) backgroundLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-l.bgWakeCh:
			l.StepBackground(ctx)
		}
	}
}

func runControllers(it *iteration, ctls []Controller) {
	for _, ctl := range ctls {
		if err := ctl.Control(it); err != nil {
			glog.Errorf("controller error at tick %d: %v", it.tick, err)
		}
	}
}
