package macro

import (
	"slices"
	"sync"

	"github.com/samber/lo"
)

// Library is the ordered in-memory macro list. All methods are safe for
// concurrent use and hand out copies, never references into the list.
type Library struct {
	mu     sync.RWMutex
	macros []Macro
}

// NewLibrary returns a library holding copies of macros.
func NewLibrary(macros []Macro) *Library {
	l := &Library{}
	l.Replace(macros)
	return l
}

// All returns a copy of every macro in order.
func (l *Library) All() []Macro {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return lo.Map(l.macros, func(m Macro, _ int) Macro { return m.Clone() })
}

// Len returns the number of macros.
func (l *Library) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.macros)
}

// Get returns the macro with the given id.
func (l *Library) Get(id string) (Macro, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	i := l.index(id)
	if i < 0 {
		return Macro{}, false
	}
	return l.macros[i].Clone(), true
}

// Select returns copies of the macros with the given ids, in library order.
// Unknown ids are ignored.
func (l *Library) Select(ids ...string) []Macro {
	l.mu.RLock()
	defer l.mu.RUnlock()
	want := lo.Keyify(ids)
	out := []Macro{}
	for _, m := range l.macros {
		if _, ok := want[m.ID]; ok {
			out = append(out, m.Clone())
		}
	}
	return out
}

// Replace swaps the whole list.
func (l *Library) Replace(macros []Macro) {
	cp := lo.Map(macros, func(m Macro, _ int) Macro { return m.Clone() })
	l.mu.Lock()
	l.macros = cp
	l.mu.Unlock()
}

// Add appends m.
func (l *Library) Add(m Macro) {
	l.mu.Lock()
	l.macros = append(l.macros, m.Clone())
	l.mu.Unlock()
}

// Append adds every macro in ms.
func (l *Library) Append(ms []Macro) {
	l.mu.Lock()
	for _, m := range ms {
		l.macros = append(l.macros, m.Clone())
	}
	l.mu.Unlock()
}

// Delete removes the macro with the given id.
func (l *Library) Delete(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.index(id)
	if i < 0 {
		return false
	}
	l.macros = slices.Delete(l.macros, i, i+1)
	return true
}

// Rename sets the macro name.
func (l *Library) Rename(id, name string) bool {
	return l.update(id, func(m *Macro) bool {
		m.Name = name
		return true
	})
}

// SetHotkey sets the macro hotkey string.
func (l *Library) SetHotkey(id, hotkey string) bool {
	return l.update(id, func(m *Macro) bool {
		m.Hotkey = hotkey
		return true
	})
}

// SetRepeatCount sets the repeat count; negative values are stored as 0.
func (l *Library) SetRepeatCount(id string, n int) bool {
	return l.update(id, func(m *Macro) bool {
		m.RepeatCount = ClampRepeat(n)
		return true
	})
}

// AddStep appends a default step of type t and returns it.
func (l *Library) AddStep(id string, t StepType) (Step, bool) {
	step := NewStep(t)
	ok := l.update(id, func(m *Macro) bool {
		m.Steps = append(m.Steps, step.Clone())
		return true
	})
	return step, ok
}

// DeleteStep removes a step.
func (l *Library) DeleteStep(id, stepID string) bool {
	return l.update(id, func(m *Macro) bool {
		i := m.StepIndex(stepID)
		if i < 0 {
			return false
		}
		m.Steps = slices.Delete(m.Steps, i, i+1)
		return true
	})
}

// MoveStepUp swaps a step with its predecessor.
func (l *Library) MoveStepUp(id, stepID string) bool {
	return l.update(id, func(m *Macro) bool {
		i := m.StepIndex(stepID)
		if i <= 0 {
			return false
		}
		m.Steps[i], m.Steps[i-1] = m.Steps[i-1], m.Steps[i]
		return true
	})
}

// MoveStepDown swaps a step with its successor.
func (l *Library) MoveStepDown(id, stepID string) bool {
	return l.update(id, func(m *Macro) bool {
		i := m.StepIndex(stepID)
		if i < 0 || i >= len(m.Steps)-1 {
			return false
		}
		m.Steps[i], m.Steps[i+1] = m.Steps[i+1], m.Steps[i]
		return true
	})
}

// UpdateStep applies fn to a copy of the step and stores the result. The
// step id always survives; an invalid type reverts to the previous one and a
// negative delay becomes 0.
func (l *Library) UpdateStep(id, stepID string, fn func(*Step)) bool {
	return l.update(id, func(m *Macro) bool {
		i := m.StepIndex(stepID)
		if i < 0 {
			return false
		}
		s := m.Steps[i].Clone()
		fn(&s)
		s.ID = m.Steps[i].ID
		if !s.Type.Valid() {
			s.Type = m.Steps[i].Type
		}
		if s.DelayMs < 0 {
			s.DelayMs = 0
		}
		m.Steps[i] = s.Clone()
		return true
	})
}

func (l *Library) update(id string, fn func(*Macro) bool) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.index(id)
	if i < 0 {
		return false
	}
	return fn(&l.macros[i])
}

func (l *Library) index(id string) int {
	return slices.IndexFunc(l.macros, func(m Macro) bool { return m.ID == id })
}
