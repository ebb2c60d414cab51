package macro

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLibraryCopies(t *testing.T) {
	m := New()
	m.Steps = append(m.Steps, NewStep(Keystroke))
	lib := NewLibrary([]Macro{m})

	m.Name = "changed outside"
	got, ok := lib.Get(m.ID)
	require.True(t, ok)
	assert.Equal(t, DefaultName, got.Name)

	got.Steps[0].Keys = append(got.Steps[0].Keys, "A")
	again, _ := lib.Get(m.ID)
	assert.Empty(t, again.Steps[0].Keys)
}

func TestLibraryMacroCRUD(t *testing.T) {
	lib := NewLibrary(nil)
	a, b := New(), New()
	lib.Add(a)
	lib.Append([]Macro{b})
	require.Equal(t, 2, lib.Len())

	assert.True(t, lib.Rename(a.ID, "first"))
	assert.True(t, lib.SetHotkey(a.ID, "Ctrl+F1"))
	assert.True(t, lib.SetRepeatCount(a.ID, -5))
	got, _ := lib.Get(a.ID)
	assert.Equal(t, "first", got.Name)
	assert.Equal(t, "Ctrl+F1", got.Hotkey)
	assert.Equal(t, 0, got.RepeatCount)

	assert.Equal(t, []string{b.ID}, ids(lib.Select(b.ID, "unknown")))

	assert.True(t, lib.Delete(a.ID))
	assert.False(t, lib.Delete(a.ID))
	assert.False(t, lib.Rename("unknown", "x"))
	assert.Equal(t, []string{b.ID}, ids(lib.All()))
}

func TestLibrarySteps(t *testing.T) {
	m := New()
	lib := NewLibrary([]Macro{m})

	s1, ok := lib.AddStep(m.ID, LeftClick)
	require.True(t, ok)
	s2, _ := lib.AddStep(m.ID, Wait)
	s3, _ := lib.AddStep(m.ID, TypeText)

	order := func() []string {
		got, _ := lib.Get(m.ID)
		out := make([]string, len(got.Steps))
		for i, s := range got.Steps {
			out[i] = s.ID
		}
		return out
	}
	assert.Equal(t, []string{s1.ID, s2.ID, s3.ID}, order())

	assert.False(t, lib.MoveStepUp(m.ID, s1.ID), "first step cannot move up")
	assert.False(t, lib.MoveStepDown(m.ID, s3.ID), "last step cannot move down")
	assert.True(t, lib.MoveStepUp(m.ID, s3.ID))
	assert.Equal(t, []string{s1.ID, s3.ID, s2.ID}, order())
	assert.True(t, lib.MoveStepDown(m.ID, s1.ID))
	assert.Equal(t, []string{s3.ID, s1.ID, s2.ID}, order())

	assert.True(t, lib.DeleteStep(m.ID, s1.ID))
	assert.False(t, lib.DeleteStep(m.ID, s1.ID))
	assert.Equal(t, []string{s3.ID, s2.ID}, order())

	_, ok = lib.AddStep("unknown", Wait)
	assert.False(t, ok)
}

func TestLibraryUpdateStep(t *testing.T) {
	m := New()
	lib := NewLibrary([]Macro{m})
	s, _ := lib.AddStep(m.ID, LeftClick)

	ok := lib.UpdateStep(m.ID, s.ID, func(st *Step) {
		st.ID = "hijacked"
		st.X, st.Y = 10, 20
		st.Type = "Bogus"
		st.DelayMs = -1
	})
	require.True(t, ok)

	got, _ := lib.Get(m.ID)
	require.Len(t, got.Steps, 1)
	st := got.Steps[0]
	assert.Equal(t, s.ID, st.ID)
	assert.Equal(t, LeftClick, st.Type)
	assert.Equal(t, 10, st.X)
	assert.Equal(t, 20, st.Y)
	assert.Equal(t, 0, st.DelayMs)

	require.True(t, lib.UpdateStep(m.ID, s.ID, func(st *Step) { st.Type = KeyboardShortcut }))
	got, _ = lib.Get(m.ID)
	assert.Equal(t, KeyboardShortcut, got.Steps[0].Type)

	assert.False(t, lib.UpdateStep(m.ID, "unknown", func(*Step) {}))
}

func ids(ms []Macro) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.ID
	}
	return out
}
