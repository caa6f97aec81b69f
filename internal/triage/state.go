package triage

import (
	"encoding/json"
	"fmt"
)

// State is the position of a session in the triage cycle.
type State int

const (
	StateSubmission State = iota
	StateAnalyzing
	StateSolution
	StateConfirmed
)

// States lists every state in cycle order.
var States = []State{StateSubmission, StateAnalyzing, StateSolution, StateConfirmed}

func (s State) String() string {
	switch s {
	case StateSubmission:
		return "submission"
	case StateAnalyzing:
		return "analyzing"
	case StateSolution:
		return "solution"
	case StateConfirmed:
		return "confirmed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *State) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, candidate := range States {
		if candidate.String() == raw {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", raw)
}

func transition(from, to State) string {
	return from.String() + "->" + to.String()
}
