// Package replay plays a command log step by step.
//
// EDUCATIONAL NOTES:
// ------------------
// A command log is cut into steps: each step is a run of commands ending with
// a Step marker. The controller applies whole steps to a Sink, never half of
// one, so whatever is watching always sees a consistent picture.
//
// Moving forward is cheap: apply the next step. Moving backward is not, since
// commands cannot be undone. Instead the sink is reset and every step up to
// the target is applied again. Logs for a single operation are short, so this
// is fast enough and keeps the commands simple.
//
// Some steps are more interesting than others. A step that creates, deletes,
// connects or disconnects nodes changes the shape of the tree; those steps
// are breakpoints the player can jump between.

package replay

import (
	"context"
	"sync"
	"time"

	"github.com/cabewaldrop/bplusviz/internal/command"
	"github.com/cockroachdb/errors"
)

// Speed bounds in milliseconds between steps.
const (
	DefaultSpeed = 500
	MinSpeed     = 100
	MaxSpeed     = 2000
)

// ErrStepOutOfRange is returned by JumpToStep for targets outside
// [0, TotalSteps].
var ErrStepOutOfRange = errors.New("step out of range")

// Sink receives replayed commands.
type Sink interface {
	// Reset returns the sink to the state before the first step.
	Reset()
	Apply(c command.Command) error
}

// State is the observable playback state.
type State struct {
	CurrentStep int  `json:"currentStep"`
	TotalSteps  int  `json:"totalSteps"`
	IsPlaying   bool `json:"isPlaying"`
	IsPaused    bool `json:"isPaused"`
	Speed       int  `json:"speed"`
}

// Callbacks are invoked without the controller lock held, so they may call
// back into the controller.
type Callbacks struct {
	// OnStepChange receives the new position and the last command applied to
	// reach it (nil at position 0).
	OnStepChange  func(step int, cmd command.Command)
	OnStateChange func(State)
	OnComplete    func()
	OnError       func(error)
}

// Sleeper waits d between steps. It must return early with ctx.Err() when
// ctx is canceled.
type Sleeper func(ctx context.Context, d time.Duration) error

// TimerSleeper waits on a timer.
func TimerSleeper(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Option configures a Controller.
type Option func(*Controller)

// WithCallbacks sets the callbacks.
func WithCallbacks(cb Callbacks) Option {
	return func(c *Controller) { c.cb = cb }
}

// WithSpeed sets the initial delay between steps in milliseconds.
func WithSpeed(ms int) Option {
	return func(c *Controller) { c.speed = ms }
}

// WithSpeedBounds overrides the clamp applied by SetSpeed.
func WithSpeedBounds(min, max int) Option {
	return func(c *Controller) { c.minSpeed, c.maxSpeed = min, max }
}

// WithSleeper replaces the wait between steps.
func WithSleeper(s Sleeper) Option {
	return func(c *Controller) { c.sleep = s }
}

// Controller plays a command log into a Sink.
type Controller struct {
	sink  Sink
	cb    Callbacks
	sleep Sleeper

	mu          sync.Mutex
	steps       [][]command.Command
	breakpoints []int
	current     int
	playing     bool
	paused      bool
	looping     bool
	speed       int
	minSpeed    int
	maxSpeed    int
	cancelWait  context.CancelFunc
	lastOp      string
	lastKey     int
}

// NewController creates a controller with nothing loaded.
func NewController(sink Sink, opts ...Option) *Controller {
	c := &Controller{
		sink:     sink,
		sleep:    TimerSleeper,
		speed:    DefaultSpeed,
		minSpeed: MinSpeed,
		maxSpeed: MaxSpeed,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.speed = c.clamp(c.speed)
	return c
}

// Split cuts a log into steps. Each step ends with a Step marker, except a
// trailing run of commands with no marker, which forms a last step of its own.
func Split(cmds []command.Command) [][]command.Command {
	var steps [][]command.Command
	var cur []command.Command
	for _, c := range cmds {
		cur = append(cur, c)
		if c.Kind() == command.KindStep {
			steps = append(steps, cur)
			cur = nil
		}
	}
	if len(cur) > 0 {
		steps = append(steps, cur)
	}
	return steps
}

// Breakpoints returns the indices of steps that change the tree's shape.
func Breakpoints(steps [][]command.Command) []int {
	bps := make([]int, 0)
	for i, step := range steps {
		for _, c := range step {
			if command.IsStructural(c) {
				bps = append(bps, i)
				break
			}
		}
	}
	return bps
}

// =============================================================================
// Loading and inspection
// =============================================================================

// LoadCommands replaces the log, stops playback and rewinds to step 0.
func (c *Controller) LoadCommands(cmds []command.Command) {
	c.LoadOperation("", 0, cmds)
}

// LoadOperation is LoadCommands for the log of one tree operation.
func (c *Controller) LoadOperation(op string, key int, cmds []command.Command) {
	c.mu.Lock()
	c.haltLocked()
	c.steps = Split(cmds)
	c.breakpoints = Breakpoints(c.steps)
	c.lastOp, c.lastKey = op, key
	c.current = 0
	c.sink.Reset()
	ev := event{state: c.stateLocked(), stateChanged: true}
	c.mu.Unlock()
	c.fire(ev)
}

// State returns the current playback state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

// StepBreakpoints returns the breakpoint step indices.
func (c *Controller) StepBreakpoints() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int(nil), c.breakpoints...)
}

// LastOperation returns the operation and key given to LoadOperation.
func (c *Controller) LastOperation() (string, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastOp, c.lastKey
}

// SetSpeed sets the delay between steps, clamped to the speed bounds. It takes
// effect from the next wait.
func (c *Controller) SetSpeed(ms int) {
	c.mu.Lock()
	c.speed = c.clamp(ms)
	ev := event{state: c.stateLocked(), stateChanged: true}
	c.mu.Unlock()
	c.fire(ev)
}

func (c *Controller) clamp(ms int) int {
	if ms < c.minSpeed {
		return c.minSpeed
	}
	if ms > c.maxSpeed {
		return c.maxSpeed
	}
	return ms
}

// =============================================================================
// Transport
// =============================================================================

// PlayAll applies the remaining steps one by one, waiting the configured
// speed between them, and returns when the log is exhausted, playback is
// paused or stopped, ctx is done, or a step fails. Playing a finished log
// starts it over. Calling PlayAll while paused resumes.
func (c *Controller) PlayAll(ctx context.Context) error {
	c.mu.Lock()
	if len(c.steps) == 0 {
		c.mu.Unlock()
		return nil
	}
	var ev event
	if c.playing && !c.paused {
		c.mu.Unlock()
		return nil
	}
	if !c.playing && c.current >= len(c.steps) {
		ev.merge(c.rewindLocked(0))
		if ev.err != nil {
			c.mu.Unlock()
			c.fire(ev)
			return ev.err
		}
	}
	c.playing, c.paused = true, false
	ev.state, ev.stateChanged = c.stateLocked(), true
	c.mu.Unlock()
	c.fire(ev)

	return c.run(ctx)
}

// Resume continues a paused playback. It does nothing unless paused.
func (c *Controller) Resume(ctx context.Context) error {
	c.mu.Lock()
	if !c.playing || !c.paused {
		c.mu.Unlock()
		return nil
	}
	c.paused = false
	ev := event{state: c.stateLocked(), stateChanged: true}
	c.mu.Unlock()
	c.fire(ev)

	return c.run(ctx)
}

// Pause suspends playback at the next step boundary. Pausing when not playing,
// or when already paused, does nothing.
func (c *Controller) Pause() {
	c.mu.Lock()
	if !c.playing || c.paused {
		c.mu.Unlock()
		return
	}
	c.paused = true
	c.wakeLocked()
	ev := event{state: c.stateLocked(), stateChanged: true}
	c.mu.Unlock()
	c.fire(ev)
}

// Stop ends playback at the next step boundary and keeps the position.
// Stopping when already stopped does nothing.
func (c *Controller) Stop() {
	c.mu.Lock()
	if !c.playing && !c.paused {
		c.mu.Unlock()
		return
	}
	c.haltLocked()
	ev := event{state: c.stateLocked(), stateChanged: true}
	c.mu.Unlock()
	c.fire(ev)
}

// run is the playback loop. Only one loop runs at a time; a second caller
// returns immediately and lets the first one continue.
func (c *Controller) run(ctx context.Context) error {
	c.mu.Lock()
	if c.looping {
		c.mu.Unlock()
		return nil
	}
	c.looping = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.looping = false
		c.mu.Unlock()
	}()

	for {
		c.mu.Lock()
		if !c.playing || c.paused {
			c.mu.Unlock()
			return nil
		}
		if c.current >= len(c.steps) {
			c.playing = false
			ev := event{state: c.stateLocked(), stateChanged: true, complete: true}
			c.mu.Unlock()
			c.fire(ev)
			return nil
		}

		ev := c.applyLocked(c.current)
		if ev.err != nil {
			c.haltLocked()
			ev.state, ev.stateChanged = c.stateLocked(), true
			c.mu.Unlock()
			c.fire(ev)
			return ev.err
		}
		ev.state, ev.stateChanged = c.stateLocked(), true

		more := c.current < len(c.steps)
		var waitCtx context.Context
		if more {
			var cancel context.CancelFunc
			waitCtx, cancel = context.WithCancel(ctx)
			c.cancelWait = cancel
		}
		delay := time.Duration(c.speed) * time.Millisecond
		c.mu.Unlock()
		c.fire(ev)

		if !more {
			continue
		}
		_ = c.sleep(waitCtx, delay)

		c.mu.Lock()
		if c.cancelWait != nil {
			c.cancelWait()
			c.cancelWait = nil
		}
		c.mu.Unlock()

		if err := ctx.Err(); err != nil {
			c.Stop()
			return err
		}
	}
}

// StepForward applies the next step. At the end of the log it does nothing.
func (c *Controller) StepForward() error {
	c.mu.Lock()
	if c.current >= len(c.steps) {
		c.mu.Unlock()
		return nil
	}
	ev := c.applyLocked(c.current)
	if ev.err != nil {
		c.haltLocked()
	}
	ev.state, ev.stateChanged = c.stateLocked(), true
	c.mu.Unlock()
	c.fire(ev)
	return ev.err
}

// StepBackward moves back one step by replaying from the start. At step 0 it
// does nothing.
func (c *Controller) StepBackward() error {
	c.mu.Lock()
	if c.current == 0 {
		c.mu.Unlock()
		return nil
	}
	ev := c.rewindLocked(c.current - 1)
	ev.state, ev.stateChanged = c.stateLocked(), true
	c.mu.Unlock()
	c.fire(ev)
	return ev.err
}

// JumpToStep moves to position n in [0, TotalSteps]: after the call exactly
// the first n steps have been applied.
func (c *Controller) JumpToStep(n int) error {
	c.mu.Lock()
	ev, err := c.jumpLocked(n)
	c.mu.Unlock()
	if err != nil {
		return err
	}
	c.fire(ev)
	return ev.err
}

// JumpToNextBreakpoint moves to just after the next breakpoint step, or to the
// end when there is none.
func (c *Controller) JumpToNextBreakpoint() error {
	c.mu.Lock()
	target := len(c.steps)
	for _, bp := range c.breakpoints {
		if bp+1 > c.current {
			target = bp + 1
			break
		}
	}
	ev, err := c.jumpLocked(target)
	c.mu.Unlock()
	if err != nil {
		return err
	}
	c.fire(ev)
	return ev.err
}

// JumpToPreviousBreakpoint moves to just after the previous breakpoint step,
// or to the start when there is none.
func (c *Controller) JumpToPreviousBreakpoint() error {
	c.mu.Lock()
	target := 0
	for i := len(c.breakpoints) - 1; i >= 0; i-- {
		if bp := c.breakpoints[i]; bp+1 < c.current {
			target = bp + 1
			break
		}
	}
	ev, err := c.jumpLocked(target)
	c.mu.Unlock()
	if err != nil {
		return err
	}
	c.fire(ev)
	return ev.err
}

// =============================================================================
// Internals (c.mu held)
// =============================================================================

type event struct {
	stepChanged  bool
	step         int
	cmd          command.Command
	stateChanged bool
	state        State
	complete     bool
	err          error
}

func (e *event) merge(o event) {
	if o.stepChanged {
		e.stepChanged, e.step, e.cmd = true, o.step, o.cmd
	}
	if o.err != nil {
		e.err = o.err
	}
}

func (c *Controller) fire(ev event) {
	if ev.err != nil && c.cb.OnError != nil {
		c.cb.OnError(ev.err)
	}
	if ev.stepChanged && c.cb.OnStepChange != nil {
		c.cb.OnStepChange(ev.step, ev.cmd)
	}
	if ev.stateChanged && c.cb.OnStateChange != nil {
		c.cb.OnStateChange(ev.state)
	}
	if ev.complete && c.cb.OnComplete != nil {
		c.cb.OnComplete()
	}
}

func (c *Controller) stateLocked() State {
	return State{
		CurrentStep: c.current,
		TotalSteps:  len(c.steps),
		IsPlaying:   c.playing,
		IsPaused:    c.paused,
		Speed:       c.speed,
	}
}

func (c *Controller) wakeLocked() {
	if c.cancelWait != nil {
		c.cancelWait()
		c.cancelWait = nil
	}
}

func (c *Controller) haltLocked() {
	c.playing, c.paused = false, false
	c.wakeLocked()
}

// applyLocked applies step i and advances the position past it.
func (c *Controller) applyLocked(i int) event {
	step := c.steps[i]
	for _, cmd := range step {
		if err := c.sink.Apply(cmd); err != nil {
			return event{err: errors.Wrapf(err, "step %d", i)}
		}
	}
	c.current = i + 1
	return event{stepChanged: true, step: c.current, cmd: step[len(step)-1]}
}

// rewindLocked resets the sink and applies the first n steps.
func (c *Controller) rewindLocked(n int) event {
	c.sink.Reset()
	c.current = 0
	ev := event{stepChanged: true}
	for i := 0; i < n; i++ {
		step := c.applyLocked(i)
		ev.merge(step)
		if step.err != nil {
			return ev
		}
	}
	return ev
}

func (c *Controller) jumpLocked(n int) (event, error) {
	if n < 0 || n > len(c.steps) {
		return event{}, errors.Wrapf(ErrStepOutOfRange, "step %d of %d", n, len(c.steps))
	}
	var ev event
	if n >= c.current {
		for c.current < n {
			step := c.applyLocked(c.current)
			ev.merge(step)
			if step.err != nil {
				break
			}
		}
	} else {
		ev = c.rewindLocked(n)
	}
	if ev.err != nil {
		c.haltLocked()
	}
	ev.state, ev.stateChanged = c.stateLocked(), true
	return ev, nil
}
