package framework

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepRunsByPriority(t *testing.T) {
	var order []int
	record := func(n int) Controller {
		return ControlFunc(func(cc ControlContext) error {
			order = append(order, n)
			return nil
		})
	}
	l := NewLoop()
	l.AddController(PrLvLow, record(3))
	l.AddController(PrLvTop, record(1))
	l.AddController(PrLvNormal, record(2), ControlFunc(func(ControlContext) error {
		return errors.New("ignored")
	}))
	l.AddController(PrLvIdle, record(4))

	l.Step(context.Background())
	assert.Equal(t, []int{1, 2, 3, 4}, order)
	assert.Equal(t, uint64(1), l.Ticks())
}

func TestControlContext(t *testing.T) {
	var ticks []uint64
	var levels []int
	l := NewLoop()
	l.AddController(PrLvHigh, ControlFunc(func(cc ControlContext) error {
		ticks = append(ticks, cc.Tick())
		levels = append(levels, cc.PriorityLevel())
		require.NotNil(t, cc.Context())
		return nil
	}))
	l.AddBackground(ControlFunc(func(cc ControlContext) error {
		levels = append(levels, cc.PriorityLevel())
		ticks = append(ticks, cc.Tick())
		return nil
	}))
	ctx := context.Background()
	l.Step(ctx)
	l.Step(ctx)
	l.StepBackground(ctx)
	assert.Equal(t, []uint64{1, 2, 2}, ticks)
	assert.Equal(t, []int{PrLvHigh, PrLvHigh, PrLvBackground}, levels)
}

func TestRunTicksAndBackground(t *testing.T) {
	var lock sync.Mutex
	var ticks, bg int
	l := NewLoop()
	l.Interval = time.Millisecond
	l.AddController(PrLvNormal, ControlFunc(func(ControlContext) error {
		lock.Lock()
		ticks++
		lock.Unlock()
		return nil
	}))
	l.AddBackground(ControlFunc(func(ControlContext) error {
		lock.Lock()
		bg++
		lock.Unlock()
		return nil
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err := l.Run(ctx)
	assert.Equal(t, context.DeadlineExceeded, err)
	lock.Lock()
	defer lock.Unlock()
	assert.True(t, ticks > 0)
	assert.True(t, bg > 0)
	assert.True(t, bg <= ticks)
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func TestRunWithContextCloser(t *testing.T) {
	var closed int
	closer := closerFunc(func() error { closed++; return nil })

	err := RunWithContextCloser(context.Background(), closer, func() error {
		return errors.New("done")
	})
	assert.EqualError(t, err, "done")
	assert.Equal(t, 1, closed)

	ctx, cancel := context.WithCancel(context.Background())
	blockCh := make(chan struct{})
	unblock := closerFunc(func() error { closed++; close(blockCh); return nil })
	cancel()
	err = RunWithContextCloser(ctx, unblock, func() error {
		<-blockCh
		return nil
	})
	assert.Equal(t, context.Canceled, err)
	assert.Equal(t, 2, closed)
}

func TestAggregatedError(t *testing.T) {
	var errs AggregatedError
	assert.NoError(t, errs.Add(nil).Aggregate())
	errs.Add(errors.New("a"))
	assert.EqualError(t, errs.Aggregate(), "a")
	errs.Add(errors.New("b"))
	assert.EqualError(t, errs.Aggregate(), "multiple errors:\n  a\n  b")
}

func TestRunnerWait(t *testing.T) {
	r := NewRunner()
	r.Go(NamedRun("ok", runFunc(func(context.Context) error { return nil })),
		runFunc(func(context.Context) error { return context.Canceled }),
		runFunc(func(context.Context) error { return errors.New("bad") }))
	assert.EqualError(t, r.Wait(), "bad")
}

type runFunc func(context.Context) error

func (f runFunc) Run(ctx context.Context) error { return f(ctx) }
