package app

import (
	"context"
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tischda/macrokeys/internal/hotkey"
	"github.com/tischda/macrokeys/internal/macro"
	"github.com/tischda/macrokeys/internal/player"
	"github.com/tischda/macrokeys/internal/synth"
)

type fakePicker struct {
	pt  image.Point
	ok  bool
	err error
}

func (f fakePicker) Pick(ctx context.Context) (image.Point, bool, error) {
	return f.pt, f.ok, f.err
}

func newController(t *testing.T, p Picker) (*Controller, *synth.Recorder, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "macros.json")
	rec := &synth.Recorder{}
	engine := player.New(synth.New(rec, synth.WithSleep(func(time.Duration) {})), nil, nil)
	c := New(macro.NewStore(path, nil), engine, p, hotkey.MustParse("F12"), nil)
	c.Load()
	return c, rec, path
}

func waitIdle(t *testing.T, c *Controller) {
	t.Helper()
	select {
	case <-c.Engine().Done():
	case <-time.After(time.Second):
		t.Fatal("playback did not finish")
	}
}

func TestMutationsPersist(t *testing.T) {
	c, _, path := newController(t, nil)

	m := c.AddMacro()
	require.NoError(t, c.RenameMacro(m.ID, "Login"))
	require.NoError(t, c.SetRepeatCount(m.ID, 3))
	s, err := c.AddStep(m.ID, macro.TypeText)
	require.NoError(t, err)
	require.NoError(t, c.UpdateStep(m.ID, s.ID, func(st *macro.Step) { st.Text = "hello" }))

	stored, err := macro.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, m.ID, stored[0].ID)
	assert.Equal(t, "Login", stored[0].Name)
	assert.Equal(t, 3, stored[0].RepeatCount)
	require.Len(t, stored[0].Steps, 1)
	assert.Equal(t, "hello", stored[0].Steps[0].Text)

	require.NoError(t, c.DeleteMacro(m.ID))
	stored, err = macro.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestUnknownIDs(t *testing.T) {
	c, _, _ := newController(t, nil)
	m := c.AddMacro()

	assert.ErrorIs(t, c.RenameMacro("nope", "x"), ErrNotFound)
	assert.ErrorIs(t, c.DeleteStep(m.ID, "nope"), ErrNotFound)
	assert.ErrorIs(t, c.MoveStepUp("nope", "nope"), ErrNotFound)
	_, err := c.AddStep("nope", macro.Wait)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = c.Macro("nope")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, c.PlayByID("nope"))
}

func TestMoveStepsAtBounds(t *testing.T) {
	c, _, _ := newController(t, nil)
	m := c.AddMacro()
	a, _ := c.AddStep(m.ID, macro.LeftClick)
	b, _ := c.AddStep(m.ID, macro.Wait)

	require.NoError(t, c.MoveStepUp(m.ID, a.ID))
	require.NoError(t, c.MoveStepDown(m.ID, a.ID))
	got, err := c.Macro(m.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID, a.ID}, []string{got.Steps[0].ID, got.Steps[1].ID})
}

func TestSetHotkeyWarnings(t *testing.T) {
	c, _, _ := newController(t, nil)
	first := c.AddMacro()
	second := c.AddMacro()

	require.NoError(t, c.SetHotkey(first.ID, "Ctrl+F1"))
	assert.Equal(t, player.StatusReady, c.State().Status)

	require.NoError(t, c.SetHotkey(second.ID, "Ctrl+F1"))
	assert.Equal(t, "Warning: Hotkey Ctrl+F1 is already assigned to another macro", c.State().Status)
	got, _ := c.Macro(second.ID)
	assert.Equal(t, "Ctrl+F1", got.Hotkey, "conflicting hotkey is still assigned")

	require.NoError(t, c.SetHotkey(second.ID, "F12"))
	assert.Equal(t, "Warning: Hotkey F12 is reserved for stop", c.State().Status)

	assert.Equal(t, []hotkey.Binding{hotkey.MustParse("F12"), hotkey.MustParse("Ctrl+F1")}, c.Hotkeys().Bindings())
}

func TestHotkeyPlaysMacro(t *testing.T) {
	c, rec, _ := newController(t, nil)
	m := c.AddMacro()
	s, _ := c.AddStep(m.ID, macro.Keystroke)
	require.NoError(t, c.UpdateStep(m.ID, s.ID, func(st *macro.Step) {
		st.Keys = []string{"A"}
		st.DelayMs = 0
	}))
	require.NoError(t, c.SetHotkey(m.ID, "Ctrl+Shift+A"))

	assert.False(t, c.Hotkeys().KeyDown(hotkey.MustParse("Ctrl+A")))
	require.True(t, c.Hotkeys().KeyDown(hotkey.MustParse("Ctrl+Shift+A")))
	waitIdle(t, c)

	evs := rec.Events()
	require.Len(t, evs, 2)
	assert.Equal(t, "key A down", evs[0].String())
	assert.Equal(t, "key A up", evs[1].String())
}

func TestCloseDropsHotkeys(t *testing.T) {
	c, _, _ := newController(t, nil)
	m := c.AddMacro()
	s, _ := c.AddStep(m.ID, macro.Wait)
	require.NoError(t, c.UpdateStep(m.ID, s.ID, func(st *macro.Step) { st.DelayMs = 10_000 }))
	require.NoError(t, c.SetHotkey(m.ID, "F1"))
	require.True(t, c.PlayByID(m.ID))

	c.Close()
	assert.Equal(t, player.Idle, c.State().Phase)
	assert.Equal(t, []hotkey.Binding{hotkey.MustParse("F12")}, c.Hotkeys().Bindings())
	assert.False(t, c.Hotkeys().KeyDown(hotkey.MustParse("F1")))
}

func TestReloadSkipsOwnWrites(t *testing.T) {
	c, _, path := newController(t, nil)
	c.AddMacro()

	changed, err := c.Reload()
	require.NoError(t, err)
	assert.False(t, changed)

	external := macro.New()
	external.Name = "External"
	external.Hotkey = "Alt+F2"
	data, err := macro.Encode([]macro.Macro{external})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	changed, err = c.Reload()
	require.NoError(t, err)
	assert.True(t, changed)
	require.Len(t, c.Macros(), 1)
	assert.Equal(t, "External", c.Macros()[0].Name)
	assert.Contains(t, c.Hotkeys().Bindings(), hotkey.MustParse("Alt+F2"))

	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o644))
	changed, err = c.Reload()
	assert.Error(t, err)
	assert.False(t, changed)
	assert.Len(t, c.Macros(), 1, "a broken file keeps the current list")
}

type pickFunc func(ctx context.Context) (image.Point, bool, error)

func (f pickFunc) Pick(ctx context.Context) (image.Point, bool, error) {
	return f(ctx)
}

func TestReloadKeepsStepIDs(t *testing.T) {
	var c *Controller
	var path string
	var first, second macro.Macro

	// The external edit lands while the pick is still pending.
	c, _, path = newController(t, pickFunc(func(ctx context.Context) (image.Point, bool, error) {
		macros := c.Macros()
		macros[1].Name = "Edited"
		macros[1].Steps[0].Text = "changed"
		data, err := macro.Encode(macros)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(path, data, 0o644))
		changed, err := c.Reload()
		require.NoError(t, err)
		require.True(t, changed)
		return image.Pt(3, 4), true, nil
	}))

	first = c.AddMacro()
	s1, _ := c.AddStep(first.ID, macro.LeftClick)
	s2, _ := c.AddStep(first.ID, macro.Wait)
	second = c.AddMacro()
	t1, _ := c.AddStep(second.ID, macro.TypeText)
	t2, _ := c.AddStep(second.ID, macro.Wait)

	pt, ok, err := c.PickPosition(context.Background(), first.ID, s1.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, image.Pt(3, 4), pt)

	got, _ := c.Macro(first.ID)
	require.Len(t, got.Steps, 2)
	assert.Equal(t, s1.ID, got.Steps[0].ID)
	assert.Equal(t, s2.ID, got.Steps[1].ID)
	assert.Equal(t, 3, got.Steps[0].X)

	got, _ = c.Macro(second.ID)
	assert.Equal(t, "Edited", got.Name)
	assert.NotEqual(t, t1.ID, got.Steps[0].ID, "an edited step gets a new id")
	assert.Equal(t, t2.ID, got.Steps[1].ID)
}

func TestLoadDuplicateIDs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "macros.json")
	a, b := macro.New(), macro.New()
	a.ID, b.ID = "X", "X"
	a.Name, b.Name = "a", "b"
	b.Hotkey = "F2"
	data, err := macro.Encode([]macro.Macro{a, b})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	engine := player.New(synth.New(&synth.Recorder{}, synth.WithSleep(func(time.Duration) {})), nil, nil)
	c := New(macro.NewStore(path, nil), engine, nil, hotkey.MustParse("F12"), nil)
	c.Load()

	macros := c.Macros()
	require.Len(t, macros, 2)
	assert.Equal(t, "X", macros[0].ID)
	assert.NotEqual(t, "X", macros[1].ID)

	require.NoError(t, c.DeleteMacro("X"))
	macros = c.Macros()
	require.Len(t, macros, 1)
	assert.Equal(t, "b", macros[0].Name)
	_, err = c.Macro("X")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestImportExport(t *testing.T) {
	c, _, _ := newController(t, nil)
	a := c.AddMacro()
	b := c.AddMacro()
	require.NoError(t, c.RenameMacro(b.ID, "Second"))

	dir := t.TempDir()
	one := filepath.Join(dir, "one.json")
	require.True(t, c.Export(one, b.ID))
	all := filepath.Join(dir, "all.json")
	require.True(t, c.Export(all))

	exported, err := macro.ReadFile(one)
	require.NoError(t, err)
	require.Len(t, exported, 1)
	assert.Equal(t, b.ID, exported[0].ID)

	n, err := c.Import(all)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	macros := c.Macros()
	require.Len(t, macros, 4)
	assert.Equal(t, a.ID, macros[0].ID)
	assert.NotEqual(t, a.ID, macros[2].ID, "imported macros get fresh ids")
	assert.Equal(t, "Second", macros[3].Name)

	_, err = c.Import(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
	assert.False(t, c.Export(filepath.Join(dir, "missing", "out.json")))
}

func TestPickPosition(t *testing.T) {
	c, _, _ := newController(t, fakePicker{pt: image.Pt(40, 50), ok: true})
	m := c.AddMacro()
	s, _ := c.AddStep(m.ID, macro.LeftClick)

	pt, ok, err := c.PickPosition(context.Background(), m.ID, s.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, image.Pt(40, 50), pt)

	got, _ := c.Macro(m.ID)
	assert.Equal(t, 40, got.Steps[0].X)
	assert.Equal(t, 50, got.Steps[0].Y)

	_, _, err = c.PickPosition(context.Background(), m.ID, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPickPositionCancelled(t *testing.T) {
	c, _, _ := newController(t, fakePicker{})
	m := c.AddMacro()
	s, _ := c.AddStep(m.ID, macro.LeftClick)
	require.NoError(t, c.UpdateStep(m.ID, s.ID, func(st *macro.Step) { st.X, st.Y = 7, 8 }))

	_, ok, err := c.PickPosition(context.Background(), m.ID, s.ID)
	require.NoError(t, err)
	assert.False(t, ok)
	got, _ := c.Macro(m.ID)
	assert.Equal(t, 7, got.Steps[0].X)
}

func TestFind(t *testing.T) {
	c, _, _ := newController(t, nil)
	m := c.AddMacro()
	require.NoError(t, c.RenameMacro(m.ID, "Deploy"))

	got, err := c.Find("Deploy")
	require.NoError(t, err)
	assert.Equal(t, m.ID, got.ID)
	got, err = c.Find(m.ID)
	require.NoError(t, err)
	assert.Equal(t, "Deploy", got.Name)
	_, err = c.Find("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
