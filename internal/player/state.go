package player

import "fmt"

// Phase is the engine lifecycle position.
type Phase int

const (
	Idle Phase = iota
	Playing
	Stopping
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Playing:
		return "playing"
	case Stopping:
		return "stopping"
	}
	return "unknown"
}

// MarshalText renders the phase name in JSON.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText parses a phase name.
func (p *Phase) UnmarshalText(b []byte) error {
	for _, c := range []Phase{Idle, Playing, Stopping} {
		if c.String() == string(b) {
			*p = c
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", b)
}

// State is a snapshot of the engine.
type State struct {
	Phase     Phase  `json:"phase"`
	Status    string `json:"status"`
	MacroID   string `json:"macroId,omitempty"`
	MacroName string `json:"macroName,omitempty"`
	StepID    string `json:"stepId,omitempty"`
	StepIndex int    `json:"stepIndex"` // -1 when no step is running
	StepCount int    `json:"stepCount"`
	Iteration int    `json:"iteration"`
}

// Playing reports whether a run is active or unwinding.
func (s State) Playing() bool {
	return s.Phase != Idle
}

func idleState(status string) State {
	return State{Phase: Idle, Status: status, StepIndex: -1}
}
