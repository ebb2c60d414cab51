package macro

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepDecodeDefaults(t *testing.T) {
	var s Step
	require.NoError(t, json.Unmarshal([]byte(`{"Type":"Wait"}`), &s))

	assert.Equal(t, Wait, s.Type)
	assert.Equal(t, DefaultDelayMs, s.DelayMs)
	assert.Equal(t, 0, s.X)
	assert.Equal(t, 0, s.Y)
	assert.NotNil(t, s.Keys)
	assert.Empty(t, s.Keys)
	assert.Empty(t, s.Text)
	assert.Empty(t, s.Note)
	assert.NotEmpty(t, s.ID)
}

func TestStepDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"missing type", `{"X":1}`},
		{"unknown type", `{"Type":"Scroll"}`},
		{"bad field type", `{"Type":"Wait","DelayMs":"soon"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s Step
			assert.Error(t, json.Unmarshal([]byte(tt.json), &s))
		})
	}
}

func TestStepDecodeKeepsValues(t *testing.T) {
	var s Step
	err := json.Unmarshal([]byte(`{"Type":"KeyboardShortcut","Keys":["Ctrl","C"],"DelayMs":0,"X":5,"Y":7,"Text":"t","Note":"copy"}`), &s)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ctrl", "C"}, s.Keys)
	assert.Equal(t, 0, s.DelayMs)
	assert.Equal(t, 5, s.X)
	assert.Equal(t, 7, s.Y)
	assert.Equal(t, "copy", s.Note)
}

func TestMacroDecodeDefaults(t *testing.T) {
	var m Macro
	require.NoError(t, json.Unmarshal([]byte(`{"Name":"x","RepeatCount":-3}`), &m))
	assert.NotEmpty(t, m.ID)
	assert.Equal(t, 0, m.RepeatCount)
	assert.NotNil(t, m.Steps)

	var m2 Macro
	require.NoError(t, json.Unmarshal([]byte(`{"Id":"A"}`), &m2))
	assert.Equal(t, "A", m2.ID)
	assert.Equal(t, DefaultRepeatCount, m2.RepeatCount)
}

func TestDecodeDuplicateIDs(t *testing.T) {
	macros, err := Decode([]byte(`[{"Id":"X","Name":"a"},{"Id":"X","Name":"b"},{"Id":"Y"}]`))
	require.NoError(t, err)
	require.Len(t, macros, 3)
	assert.Equal(t, "X", macros[0].ID)
	assert.NotEqual(t, "X", macros[1].ID)
	assert.NotEmpty(t, macros[1].ID)
	assert.Equal(t, "b", macros[1].Name)
	assert.Equal(t, "Y", macros[2].ID)
}

func TestKeepStepIDs(t *testing.T) {
	prev := New()
	a, b := NewStep(Wait), NewStep(KeyboardShortcut)
	b.Keys = []string{"Ctrl", "C"}
	prev.Steps = []Step{a, b}
	other := New()
	other.Steps = []Step{NewStep(Wait)}

	data, err := Encode([]Macro{prev, other})
	require.NoError(t, err)
	next, err := Decode(data)
	require.NoError(t, err)
	next[0].Steps[1].Keys = []string{"Ctrl", "V"}
	next[0].Steps = append(next[0].Steps, NewStep(Wait))

	KeepStepIDs([]Macro{prev}, next)
	assert.Equal(t, a.ID, next[0].Steps[0].ID)
	assert.NotEqual(t, b.ID, next[0].Steps[1].ID)
	assert.NotEqual(t, other.Steps[0].ID, next[1].Steps[0].ID, "macros missing from prev are left alone")
}

func TestEncodeSortedKeys(t *testing.T) {
	m := Macro{ID: "A", Name: "n", Hotkey: "F6", RepeatCount: 2, Steps: []Step{{ID: "s", Type: Wait, DelayMs: 10}}}
	data, err := Encode([]Macro{m})
	require.NoError(t, err)

	out := string(data)
	order := []string{`"Hotkey"`, `"Id"`, `"Name"`, `"RepeatCount"`, `"Steps"`, `"DelayMs"`, `"Keys"`, `"Note"`, `"Text"`, `"Type"`, `"X"`, `"Y"`}
	last := -1
	for _, k := range order {
		i := strings.Index(out, k)
		require.Greater(t, i, last, "key %s out of order in %s", k, out)
		last = i
	}
	assert.NotContains(t, out, `"s"`, "step ids are not persisted")
	assert.True(t, strings.HasSuffix(out, "\n"))
	assert.Contains(t, out, "\n  {")

	got, err := Decode(data)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "A", got[0].ID)
	assert.Equal(t, 10, got[0].Steps[0].DelayMs)
	assert.Equal(t, []string{}, got[0].Steps[0].Keys)
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "Left Click at (1, 2)", Step{Type: LeftClick, X: 1, Y: 2}.Describe())
	assert.Equal(t, "Ctrl + C", Step{Type: KeyboardShortcut, Keys: []string{"Ctrl", "C"}}.Describe())
	assert.Equal(t, "Press F5", Step{Type: Keystroke, Keys: []string{"F5"}}.Describe())
	assert.Equal(t, "Wait 500 ms", Step{Type: Wait, DelayMs: 500}.Describe())
	assert.Equal(t, "Type Text", Step{Type: TypeText}.Describe())
}

func TestStoreLoad(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file is empty", func(t *testing.T) {
		s := NewStore(filepath.Join(dir, "missing.json"), nil)
		got := s.Load()
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("corrupt file is empty", func(t *testing.T) {
		path := filepath.Join(dir, "corrupt.json")
		require.NoError(t, os.WriteFile(path, []byte(`[{"Type":`), 0o600))
		assert.Empty(t, NewStore(path, nil).Load())
	})

	t.Run("save then load", func(t *testing.T) {
		path := filepath.Join(dir, "nested", "macros.json")
		s := NewStore(path, nil)
		m := New()
		m.Steps = append(m.Steps, NewStep(LeftClick))
		data, err := s.Save([]Macro{m})
		require.NoError(t, err)

		onDisk, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, data, onDisk)

		got := s.Load()
		require.Len(t, got, 1)
		assert.Equal(t, m.ID, got[0].ID)
		assert.Equal(t, LeftClick, got[0].Steps[0].Type)

		entries, err := os.ReadDir(filepath.Dir(path))
		require.NoError(t, err)
		assert.Len(t, entries, 1, "temp files are cleaned up")
	})
}

func TestImportReassignsIDs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"Id":"A","Name":"a","Steps":[]},{"Id":"B","Name":"b","Steps":[]}]`), 0o600))

	got, err := Import(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, m := range got {
		assert.NotEqual(t, "A", m.ID)
		assert.NotEqual(t, "B", m.ID)
	}
	assert.NotEqual(t, got[0].ID, got[1].ID)
	assert.Equal(t, "a", got[0].Name)
}

func TestExportPreservesIDs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, Export(path, []Macro{{ID: "keep", Name: "k", RepeatCount: 1}}))

	got, err := ReadFile(path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "keep", got[0].ID)
}

func TestImportMissingFile(t *testing.T) {
	_, err := Import(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
