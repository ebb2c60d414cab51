package macro

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// persistedStep is the JSON form of Step. Fields are declared in
// alphabetical order so the encoded keys come out sorted.
type persistedStep struct {
	DelayMs int      `json:"DelayMs"`
	Keys    []string `json:"Keys"`
	Note    string   `json:"Note"`
	Text    string   `json:"Text"`
	Type    StepType `json:"Type"`
	X       int      `json:"X"`
	Y       int      `json:"Y"`
}

// persistedMacro is the JSON form of Macro.
type persistedMacro struct {
	Hotkey      string `json:"Hotkey"`
	ID          string `json:"Id"`
	Name        string `json:"Name"`
	RepeatCount int    `json:"RepeatCount"`
	Steps       []Step `json:"Steps"`
}

// MarshalJSON encodes the persisted step fields. The step id is not written.
func (s Step) MarshalJSON() ([]byte, error) {
	keys := s.Keys
	if keys == nil {
		keys = []string{}
	}
	return json.Marshal(persistedStep{
		DelayMs: s.DelayMs,
		Keys:    keys,
		Note:    s.Note,
		Text:    s.Text,
		Type:    s.Type,
		X:       s.X,
		Y:       s.Y,
	})
}

// UnmarshalJSON decodes a step, substituting defaults for missing optional
// fields. Type is required. A fresh step id is assigned.
func (s *Step) UnmarshalJSON(data []byte) error {
	p := persistedStep{DelayMs: DefaultDelayMs}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if p.Type == "" {
		return fmt.Errorf("step: missing Type")
	}
	if !p.Type.Valid() {
		return fmt.Errorf("step: unknown Type %q", p.Type)
	}
	if p.Keys == nil {
		p.Keys = []string{}
	}
	*s = Step{
		ID:      uuid.NewString(),
		Type:    p.Type,
		X:       p.X,
		Y:       p.Y,
		Keys:    p.Keys,
		DelayMs: p.DelayMs,
		Text:    p.Text,
		Note:    p.Note,
	}
	return nil
}

// MarshalJSON encodes the macro with its steps.
func (m Macro) MarshalJSON() ([]byte, error) {
	steps := m.Steps
	if steps == nil {
		steps = []Step{}
	}
	return json.Marshal(persistedMacro{
		Hotkey:      m.Hotkey,
		ID:          m.ID,
		Name:        m.Name,
		RepeatCount: m.RepeatCount,
		Steps:       steps,
	})
}

// UnmarshalJSON decodes a macro. A missing id is replaced by a fresh one,
// a missing repeat count defaults to DefaultRepeatCount and negative counts
// are clamped to 0.
func (m *Macro) UnmarshalJSON(data []byte) error {
	var p struct {
		Hotkey      string `json:"Hotkey"`
		ID          string `json:"Id"`
		Name        string `json:"Name"`
		RepeatCount *int   `json:"RepeatCount"`
		Steps       []Step `json:"Steps"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	out := Macro{
		ID:          p.ID,
		Name:        p.Name,
		Hotkey:      p.Hotkey,
		RepeatCount: DefaultRepeatCount,
		Steps:       p.Steps,
	}
	if out.ID == "" {
		out.ID = uuid.NewString()
	}
	if p.RepeatCount != nil {
		out.RepeatCount = ClampRepeat(*p.RepeatCount)
	}
	if out.Steps == nil {
		out.Steps = []Step{}
	}
	*m = out
	return nil
}

// Encode renders macros as a pretty-printed JSON array with a trailing
// newline.
func Encode(macros []Macro) ([]byte, error) {
	if macros == nil {
		macros = []Macro{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(macros); err != nil {
		return nil, fmt.Errorf("encode macros: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses a JSON array of macros. A macro whose id repeats an earlier
// one gets a fresh id.
func Decode(data []byte) ([]Macro, error) {
	var macros []Macro
	if err := json.Unmarshal(data, &macros); err != nil {
		return nil, fmt.Errorf("decode macros: %w", err)
	}
	if macros == nil {
		macros = []Macro{}
	}
	seen := make(map[string]struct{}, len(macros))
	for i := range macros {
		if _, dup := seen[macros[i].ID]; dup {
			macros[i].ID = uuid.NewString()
		}
		seen[macros[i].ID] = struct{}{}
	}
	return macros, nil
}
