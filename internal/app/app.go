// Package app ties the macro library, its store, the playback engine, the
// hotkey dispatcher and the position picker together. Every mutation is
// persisted and followed by a hotkey rebuild.
package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"sync"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/tischda/macrokeys/internal/hotkey"
	"github.com/tischda/macrokeys/internal/macro"
	"github.com/tischda/macrokeys/internal/player"
)

// ErrNotFound is returned for unknown macro or step ids.
var ErrNotFound = errors.New("not found")

// Picker resolves a screen position chosen by the user.
type Picker interface {
	Pick(ctx context.Context) (image.Point, bool, error)
}

// Controller is the single owner of the macro list.
type Controller struct {
	lib     *macro.Library
	store   *macro.Store
	engine  *player.Engine
	hotkeys *hotkey.Dispatcher
	picker  Picker
	log     *zap.Logger

	mu        sync.Mutex // serializes mutate and persist
	lastWrite []byte
}

// New wires a controller. picker may be nil when position picking is not
// available.
//
// Parameters:
//   - store: backing store for the macro list.
//   - engine: playback engine.
//   - picker: position picker, optional.
//   - stop: emergency stop binding.
//   - log: logger, nil discards.
//
// Returns:
//   - *Controller: a controller with an empty library; call Load next.
func New(store *macro.Store, engine *player.Engine, picker Picker, stop hotkey.Binding, log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Controller{
		lib:    macro.NewLibrary(nil),
		store:  store,
		engine: engine,
		picker: picker,
		log:    log.With(zap.String("component", "app")),
	}
	c.hotkeys = hotkey.NewDispatcher(stop, func(id string) { c.PlayByID(id) }, engine.Stop, log)
	return c
}

// Hotkeys returns the dispatcher routing hotkey presses to this controller.
func (c *Controller) Hotkeys() *hotkey.Dispatcher {
	return c.hotkeys
}

// Engine returns the playback engine.
func (c *Controller) Engine() *player.Engine {
	return c.engine
}

// Load replaces the library with the stored macros and registers hotkeys.
func (c *Controller) Load() {
	c.mu.Lock()
	defer c.mu.Unlock()
	macros := c.store.Load()
	c.lib.Replace(macros)
	if data, err := os.ReadFile(c.store.Path()); err == nil {
		c.lastWrite = data
	}
	c.hotkeys.RegisterAll(macros)
	c.log.Info("macros loaded", zap.String("path", c.store.Path()), zap.Int("count", len(macros)))
}

// Reload re-reads the store after an external change. It returns false if
// the file is missing, unchanged since the last own write, or unreadable;
// the current list is kept in those cases. Unchanged steps keep their ids.
func (c *Controller) Reload() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, err := os.ReadFile(c.store.Path())
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read store: %w", err)
	}
	if bytes.Equal(data, c.lastWrite) {
		return false, nil
	}
	macros, err := macro.Decode(data)
	if err != nil {
		return false, err
	}
	macro.KeepStepIDs(c.lib.All(), macros)
	c.lib.Replace(macros)
	c.lastWrite = data
	c.hotkeys.RegisterAll(macros)
	c.log.Info("macros reloaded", zap.Int("count", len(macros)))
	return true, nil
}

// Macros returns a copy of all macros in order.
func (c *Controller) Macros() []macro.Macro {
	return c.lib.All()
}

// Macro returns the macro with the given id.
func (c *Controller) Macro(id string) (macro.Macro, error) {
	m, ok := c.lib.Get(id)
	if !ok {
		return macro.Macro{}, fmt.Errorf("macro %s: %w", id, ErrNotFound)
	}
	return m, nil
}

// Find resolves ref as a macro id first and then as a macro name.
func (c *Controller) Find(ref string) (macro.Macro, error) {
	macros := c.lib.All()
	if m, ok := lo.Find(macros, func(m macro.Macro) bool { return m.ID == ref }); ok {
		return m, nil
	}
	if m, ok := lo.Find(macros, func(m macro.Macro) bool { return m.Name == ref }); ok {
		return m, nil
	}
	return macro.Macro{}, fmt.Errorf("macro %q: %w", ref, ErrNotFound)
}

// AddMacro appends a new empty macro and returns it.
func (c *Controller) AddMacro() macro.Macro {
	m := macro.New()
	c.mutate(func() bool {
		c.lib.Add(m)
		return true
	})
	return m
}

// DeleteMacro removes a macro and its hotkey.
func (c *Controller) DeleteMacro(id string) error {
	return c.mutateMacro(id, func() bool { return c.lib.Delete(id) })
}

// RenameMacro sets the macro name.
func (c *Controller) RenameMacro(id, name string) error {
	return c.mutateMacro(id, func() bool { return c.lib.Rename(id, name) })
}

// SetHotkey assigns a hotkey string. A string already used by another macro
// or bound to the stop key only produces a status warning; the assignment
// proceeds either way.
func (c *Controller) SetHotkey(id, hotkey string) error {
	if _, ok := c.lib.Get(id); !ok {
		return fmt.Errorf("macro %s: %w", id, ErrNotFound)
	}
	switch {
	case hotkey == "":
	case c.hotkeys.IsHotkeyInUse(hotkey, id):
		c.engine.Announce(fmt.Sprintf("Warning: Hotkey %s is already assigned to another macro", hotkey))
	case c.hotkeys.IsReserved(hotkey):
		c.engine.Announce(fmt.Sprintf("Warning: Hotkey %s is reserved for stop", hotkey))
	}
	return c.mutateMacro(id, func() bool { return c.lib.SetHotkey(id, hotkey) })
}

// SetRepeatCount sets the repeat count. Negative counts are stored as 0,
// which repeats forever.
func (c *Controller) SetRepeatCount(id string, n int) error {
	return c.mutateMacro(id, func() bool { return c.lib.SetRepeatCount(id, n) })
}

// AddStep appends a step of type t with default values.
func (c *Controller) AddStep(id string, t macro.StepType) (macro.Step, error) {
	var step macro.Step
	err := c.mutateMacro(id, func() bool {
		var ok bool
		step, ok = c.lib.AddStep(id, t)
		return ok
	})
	return step, err
}

// DeleteStep removes a step.
func (c *Controller) DeleteStep(id, stepID string) error {
	if err := c.checkStep(id, stepID); err != nil {
		return err
	}
	return c.mutateMacro(id, func() bool { return c.lib.DeleteStep(id, stepID) })
}

// MoveStepUp swaps a step with the previous one. The first step stays.
func (c *Controller) MoveStepUp(id, stepID string) error {
	if err := c.checkStep(id, stepID); err != nil {
		return err
	}
	return c.mutateMacro(id, func() bool { return c.lib.MoveStepUp(id, stepID) })
}

// MoveStepDown swaps a step with the next one. The last step stays.
func (c *Controller) MoveStepDown(id, stepID string) error {
	if err := c.checkStep(id, stepID); err != nil {
		return err
	}
	return c.mutateMacro(id, func() bool { return c.lib.MoveStepDown(id, stepID) })
}

// UpdateStep edits a step in place through fn.
func (c *Controller) UpdateStep(id, stepID string, fn func(*macro.Step)) error {
	if err := c.checkStep(id, stepID); err != nil {
		return err
	}
	return c.mutateMacro(id, func() bool { return c.lib.UpdateStep(id, stepID, fn) })
}

// PlayByID starts playback of the macro. Unknown ids, empty macros and
// requests during an active run are ignored.
func (c *Controller) PlayByID(id string) bool {
	m, ok := c.lib.Get(id)
	if !ok {
		c.log.Debug("play requested for unknown macro", zap.String("macro", id))
		return false
	}
	return c.engine.Play(m)
}

// Stop cancels the active playback.
func (c *Controller) Stop() {
	c.engine.Stop()
}

// Close drops every macro hotkey, stops the active playback and waits for
// it to finish.
func (c *Controller) Close() {
	c.hotkeys.UnregisterAll()
	c.engine.Stop()
	<-c.engine.Done()
}

// State returns the playback state.
func (c *Controller) State() player.State {
	return c.engine.State()
}

// Import appends the macros of the file at path under fresh ids.
//
// Returns:
//   - int: number of imported macros.
//   - error: non-nil if the file cannot be read or decoded.
func (c *Controller) Import(path string) (int, error) {
	imported, err := macro.Import(path)
	if err != nil {
		c.log.Error("import failed", zap.String("path", path), zap.Error(err))
		return 0, err
	}
	c.mutate(func() bool {
		c.lib.Append(imported)
		return len(imported) > 0
	})
	c.log.Info("macros imported", zap.String("path", path), zap.Int("count", len(imported)))
	return len(imported), nil
}

// Export writes the macros with the given ids, or all macros when no id is
// given, to path. It returns false on failure.
func (c *Controller) Export(path string, ids ...string) bool {
	macros := c.lib.All()
	if len(ids) > 0 {
		macros = c.lib.Select(ids...)
	}
	if err := macro.Export(path, macros); err != nil {
		c.log.Error("export failed", zap.String("path", path), zap.Error(err))
		return false
	}
	c.log.Info("macros exported", zap.String("path", path), zap.Int("count", len(macros)))
	return true
}

// PickPosition asks the picker for a point and stores it in the step.
//
// Returns:
//   - image.Point: the picked point.
//   - bool: false if the pick was cancelled.
//   - error: ErrNotFound for unknown ids, or the picker error.
func (c *Controller) PickPosition(ctx context.Context, id, stepID string) (image.Point, bool, error) {
	if err := c.checkStep(id, stepID); err != nil {
		return image.Point{}, false, err
	}
	if c.picker == nil {
		return image.Point{}, false, errors.New("position picker unavailable")
	}
	pt, ok, err := c.picker.Pick(ctx)
	if err != nil || !ok {
		return image.Point{}, false, err
	}
	err = c.UpdateStep(id, stepID, func(s *macro.Step) {
		s.X, s.Y = pt.X, pt.Y
	})
	return pt, err == nil, err
}

func (c *Controller) checkStep(id, stepID string) error {
	m, ok := c.lib.Get(id)
	if !ok {
		return fmt.Errorf("macro %s: %w", id, ErrNotFound)
	}
	if m.StepIndex(stepID) < 0 {
		return fmt.Errorf("step %s: %w", stepID, ErrNotFound)
	}
	return nil
}

func (c *Controller) mutateMacro(id string, fn func() bool) error {
	if _, ok := c.lib.Get(id); !ok {
		return fmt.Errorf("macro %s: %w", id, ErrNotFound)
	}
	c.mutate(fn)
	return nil
}

// mutate runs fn and, if it changed the library, saves and rebuilds the
// hotkeys. Save failures are logged.
func (c *Controller) mutate(fn func() bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !fn() {
		return
	}
	macros := c.lib.All()
	data, err := c.store.Save(macros)
	if err != nil {
		c.log.Error("failed to save macros", zap.String("path", c.store.Path()), zap.Error(err))
	} else {
		c.lastWrite = data
	}
	c.hotkeys.RegisterAll(macros)
}
