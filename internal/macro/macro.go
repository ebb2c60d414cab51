// Package macro holds the macro data model, its JSON persistence and the
// in-memory macro library.
package macro

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
)

const (
	// DefaultDelayMs is the delay given to steps that do not carry one.
	DefaultDelayMs = 500
	// DefaultRepeatCount is the repeat count of a newly created macro.
	DefaultRepeatCount = 1
	// DefaultName is the name of a newly created macro.
	DefaultName = "New Macro"
)

// StepType identifies the action a step performs.
type StepType string

const (
	LeftClick        StepType = "LeftClick"
	DoubleClick      StepType = "DoubleClick"
	RightClick       StepType = "RightClick"
	KeyboardShortcut StepType = "KeyboardShortcut"
	Keystroke        StepType = "Keystroke"
	TypeText         StepType = "TypeText"
	Wait             StepType = "Wait"
)

// StepTypes lists every step type in editor order.
var StepTypes = []StepType{LeftClick, DoubleClick, RightClick, KeyboardShortcut, Keystroke, TypeText, Wait}

// Valid reports whether t is a known step type.
func (t StepType) Valid() bool {
	return slices.Contains(StepTypes, t)
}

// ParseStepType resolves a step type name case-insensitively.
func ParseStepType(s string) (StepType, error) {
	for _, t := range StepTypes {
		if strings.EqualFold(string(t), s) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown step type %q", s)
}

// Step is one recorded action. Only the fields relevant to Type are used
// during playback; the others are kept so edits and persistence preserve them.
type Step struct {
	ID      string // unique within its macro, not persisted
	Type    StepType
	X       int
	Y       int
	Keys    []string
	DelayMs int
	Text    string
	Note    string
}

// NewStep returns a step of type t with default field values.
func NewStep(t StepType) Step {
	return Step{
		ID:      uuid.NewString(),
		Type:    t,
		Keys:    []string{},
		DelayMs: DefaultDelayMs,
	}
}

// Clone returns a deep copy of s.
func (s Step) Clone() Step {
	s.Keys = slices.Clone(s.Keys)
	if s.Keys == nil {
		s.Keys = []string{}
	}
	return s
}

// Describe returns a one-line human readable summary of the step.
func (s Step) Describe() string {
	switch s.Type {
	case LeftClick:
		return fmt.Sprintf("Left Click at (%d, %d)", s.X, s.Y)
	case DoubleClick:
		return fmt.Sprintf("Double Click at (%d, %d)", s.X, s.Y)
	case RightClick:
		return fmt.Sprintf("Right Click at (%d, %d)", s.X, s.Y)
	case KeyboardShortcut:
		if len(s.Keys) == 0 {
			return "Keyboard Shortcut"
		}
		return strings.Join(s.Keys, " + ")
	case Keystroke:
		if len(s.Keys) == 0 {
			return "Keystroke"
		}
		return "Press " + s.Keys[0]
	case TypeText:
		if s.Text == "" {
			return "Type Text"
		}
		r := []rune(s.Text)
		if len(r) > 30 {
			return fmt.Sprintf("Type %q...", string(r[:30]))
		}
		return fmt.Sprintf("Type %q", s.Text)
	case Wait:
		return fmt.Sprintf("Wait %d ms", s.DelayMs)
	}
	return string(s.Type)
}

// SameContent reports whether s and o carry the same persisted fields. Ids
// are ignored.
func (s Step) SameContent(o Step) bool {
	return s.Type == o.Type && s.X == o.X && s.Y == o.Y &&
		slices.Equal(s.Keys, o.Keys) && s.DelayMs == o.DelayMs &&
		s.Text == o.Text && s.Note == o.Note
}

// Macro is a named, ordered list of steps bound to an optional hotkey.
type Macro struct {
	ID          string
	Name        string
	Hotkey      string
	RepeatCount int // 0 repeats forever
	Steps       []Step
}

// New returns an empty macro with a fresh id and default values.
func New() Macro {
	return Macro{
		ID:          uuid.NewString(),
		Name:        DefaultName,
		RepeatCount: DefaultRepeatCount,
		Steps:       []Step{},
	}
}

// Clone returns a deep copy of m.
func (m Macro) Clone() Macro {
	steps := make([]Step, len(m.Steps))
	for i, s := range m.Steps {
		steps[i] = s.Clone()
	}
	m.Steps = steps
	return m
}

// Infinite reports whether the macro repeats until stopped.
func (m Macro) Infinite() bool {
	return m.RepeatCount == 0
}

// RepeatText renders the repeat count, "∞" for infinite.
func (m Macro) RepeatText() string {
	if m.Infinite() {
		return "∞"
	}
	return fmt.Sprint(m.RepeatCount)
}

// StepIndex returns the index of the step with the given id, or -1.
func (m Macro) StepIndex(stepID string) int {
	return slices.IndexFunc(m.Steps, func(s Step) bool { return s.ID == stepID })
}

// KeepStepIDs copies step ids from prev into next wherever a macro with the
// same id has an unchanged step at the same index. next is modified in place.
func KeepStepIDs(prev, next []Macro) {
	byID := make(map[string]Macro, len(prev))
	for _, m := range prev {
		byID[m.ID] = m
	}
	for i := range next {
		old, ok := byID[next[i].ID]
		if !ok {
			continue
		}
		for j := range next[i].Steps {
			if j < len(old.Steps) && old.Steps[j].SameContent(next[i].Steps[j]) {
				next[i].Steps[j].ID = old.Steps[j].ID
			}
		}
	}
}

// ClampRepeat maps negative repeat counts to 0.
func ClampRepeat(n int) int {
	return max(0, n)
}
