// Package player runs macros. An Engine plays at most one macro at a time
// on a background goroutine, observes cancellation between steps and inside
// waits, and publishes its state to subscribers.
package player

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tischda/macrokeys/internal/macro"
)

// WaitChunk is the longest uninterrupted sleep of a Wait step. It bounds the
// latency of Stop.
const WaitChunk = 100 * time.Millisecond

// Status texts.
const (
	StatusReady      = "Ready"
	StatusStopped    = "Stopped"
	StatusPermission = "Accessibility permission required"
)

// Actions performs the input primitives of a step. *synth.Synthesizer
// implements it.
type Actions interface {
	LeftClick(x, y int) error
	DoubleClick(x, y int) error
	RightClick(x, y int) error
	Shortcut(names []string) error
	Keystroke(name string) error
	TypeText(text string) error
}

// Gate reports whether the process may synthesize input.
type Gate interface {
	IsGranted() bool
}

// Engine is the playback state machine. All methods are safe for
// concurrent use.
type Engine struct {
	actions Actions
	gate    Gate
	log     *zap.Logger

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	done   chan struct{}
	subs   map[chan State]struct{}
}

// New returns an idle engine. gate may be nil to skip the permission check.
func New(actions Actions, gate Gate, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	closed := make(chan struct{})
	close(closed)
	return &Engine{
		actions: actions,
		gate:    gate,
		log:     log.With(zap.String("component", "player")),
		state:   idleState(StatusReady),
		done:    closed,
		subs:    map[chan State]struct{}{},
	}
}

// Play starts playing a copy of m in the background. It returns false
// without side effects if a run is active or m has no steps, and false with
// a permission status if input synthesis is not allowed.
func (e *Engine) Play(m macro.Macro) bool {
	if len(m.Steps) == 0 {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.Phase != Idle {
		return false
	}
	if e.gate != nil && !e.gate.IsGranted() {
		e.state.Status = StatusPermission
		e.publishLocked()
		e.log.Warn("playback blocked, input permission not granted", zap.String("macro", m.ID))
		return false
	}

	m = m.Clone()
	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.done = make(chan struct{})
	e.state = State{
		Phase:     Playing,
		Status:    "Playing: " + m.Name,
		MacroID:   m.ID,
		MacroName: m.Name,
		StepIndex: -1,
		StepCount: len(m.Steps),
	}
	e.publishLocked()
	e.log.Info("playback started",
		zap.String("macro", m.ID),
		zap.String("name", m.Name),
		zap.Int("steps", len(m.Steps)),
		zap.String("repeat", m.RepeatText()))

	go e.run(ctx, m, e.done)
	return true
}

// Stop cancels the active run. It returns immediately; the run goroutine
// exits at its next checkpoint. Calling Stop while idle does nothing.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.Phase != Playing {
		return
	}
	e.state.Phase = Stopping
	e.state.Status = StatusStopped
	e.cancel()
	e.publishLocked()
	e.log.Info("playback stop requested", zap.String("macro", e.state.MacroID))
}

// Announce replaces the status text without changing the phase.
func (e *Engine) Announce(msg string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.Status = msg
	e.publishLocked()
}

// State returns the current state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Playing reports whether a run is active or still unwinding.
func (e *Engine) Playing() bool {
	return e.State().Playing()
}

// Done returns a channel closed when the current run has exited. While idle
// the returned channel is already closed.
func (e *Engine) Done() <-chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.done
}

// Subscribe returns a channel holding the latest state and a cancel func.
// The current state is delivered immediately. Slow readers only ever see
// the most recent value.
func (e *Engine) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)
	e.mu.Lock()
	e.subs[ch] = struct{}{}
	ch <- e.state
	e.mu.Unlock()
	cancel := func() {
		e.mu.Lock()
		if _, ok := e.subs[ch]; ok {
			delete(e.subs, ch)
			close(ch)
		}
		e.mu.Unlock()
	}
	return ch, cancel
}

func (e *Engine) run(ctx context.Context, m macro.Macro, done chan struct{}) {
	started := time.Now()
	iterations := 0
	defer func() {
		cancelled := ctx.Err() != nil
		e.mu.Lock()
		e.cancel()
		e.cancel = nil
		e.state = idleState(StatusReady)
		e.publishLocked()
		close(done)
		e.mu.Unlock()
		e.log.Info("playback finished",
			zap.String("macro", m.ID),
			zap.Int("iterations", iterations),
			zap.Duration("elapsed", time.Since(started)),
			zap.Bool("cancelled", cancelled))
	}()

	for iter := 0; m.Infinite() || iter < m.RepeatCount; iter++ {
		if ctx.Err() != nil {
			return
		}
		for i, step := range m.Steps {
			if ctx.Err() != nil {
				return
			}
			e.progress(m, iter, i)
			e.execute(ctx, step)
		}
		iterations++
	}
}

func (e *Engine) progress(m macro.Macro, iter, index int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.Phase != Playing {
		return
	}
	e.state.StepIndex = index
	e.state.StepID = m.Steps[index].ID
	e.state.Iteration = iter
	e.state.Status = fmt.Sprintf("Playing: %s - Step %d/%d", m.Name, index+1, len(m.Steps))
	e.publishLocked()
}

// execute runs one step to completion. Synthesis errors are logged and do
// not abort the run.
func (e *Engine) execute(ctx context.Context, s macro.Step) {
	var err error
	switch s.Type {
	case macro.LeftClick:
		err = e.actions.LeftClick(s.X, s.Y)
	case macro.DoubleClick:
		err = e.actions.DoubleClick(s.X, s.Y)
	case macro.RightClick:
		err = e.actions.RightClick(s.X, s.Y)
	case macro.KeyboardShortcut:
		err = e.actions.Shortcut(s.Keys)
	case macro.Keystroke:
		if len(s.Keys) > 0 {
			err = e.actions.Keystroke(s.Keys[0])
		}
	case macro.TypeText:
		err = e.actions.TypeText(s.Text)
	case macro.Wait:
		wait(ctx, time.Duration(s.DelayMs)*time.Millisecond)
	}
	if err != nil {
		e.log.Warn("step failed", zap.String("type", string(s.Type)), zap.Error(err))
	}
}

// wait sleeps for d in chunks of at most WaitChunk and returns early once
// ctx is cancelled.
func wait(ctx context.Context, d time.Duration) {
	for remaining := d; remaining > 0; {
		if ctx.Err() != nil {
			return
		}
		chunk := min(WaitChunk, remaining)
		t := time.NewTimer(chunk)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
		remaining -= chunk
	}
}

func (e *Engine) publishLocked() {
	for ch := range e.subs {
		select {
		case ch <- e.state:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- e.state:
			default:
			}
		}
	}
}
