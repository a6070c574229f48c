package pipeline

import (
	"fmt"
	"time"

	"github.com/go-sod/bandsense/pkg/math/vector"
)

type Mode uint8

const (
	ModeIdle Mode = iota
	ModeCollecting
	ModePredicting
)

func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeCollecting:
		return "collecting"
	case ModePredicting:
		return "predicting"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(text []byte) error {
	switch string(text) {
	case "idle":
		*m = ModeIdle
	case "collecting":
		*m = ModeCollecting
	case "predicting":
		*m = ModePredicting
	default:
		return fmt.Errorf("unknown mode %q", text)
	}
	return nil
}

// State is the engine mode, Label is set only while collecting.
type State struct {
	Mode  Mode `json:"mode"`
	Label int  `json:"label,omitempty"`
}

func (s State) String() string {
	if s.Mode == ModeCollecting {
		return fmt.Sprintf("%s(%d)", s.Mode, s.Label)
	}
	return s.Mode.String()
}

type ResultKind uint8

const (
	ResultOK ResultKind = iota
	// The window failed the noise gate and was dropped
	ResultArtifact
	// The pass failed, the window was dropped
	ResultFault
)

func (k ResultKind) String() string {
	switch k {
	case ResultOK:
		return "ok"
	case ResultArtifact:
		return "artifact"
	case ResultFault:
		return "fault"
	default:
		return fmt.Sprintf("result(%d)", uint8(k))
	}
}

// Result describes the outcome of one pipeline pass.
type Result struct {
	Kind     ResultKind
	State    State
	Features vector.V
	// Predicted label, set in predicting mode
	Label int
	Err   error
	At    time.Time
}

// Prediction is emitted for every clean window while predicting.
type Prediction struct {
	Label    int       `json:"label"`
	Features vector.V  `json:"features"`
	At       time.Time `json:"at"`
}
