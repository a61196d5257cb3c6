package model

import (
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

var (
	ErrInvalidStepKind = goerr.New("invalid step kind")
	ErrDuplicateStep   = goerr.New("duplicate step in plan")
)

// StepKind is one kind of work the coordinator can schedule
type StepKind string

const (
	StepRecall   StepKind = "recall"
	StepResearch StepKind = "research"
	StepAnalyze  StepKind = "analyze"
)

// ParseStepKind normalizes and validates a step kind string
func ParseStepKind(s string) (StepKind, error) {
	switch StepKind(strings.ToLower(strings.TrimSpace(s))) {
	case StepRecall:
		return StepRecall, nil
	case StepResearch:
		return StepResearch, nil
	case StepAnalyze:
		return StepAnalyze, nil
	default:
		return "", goerr.Wrap(ErrInvalidStepKind, "unknown step", goerr.V("step", s))
	}
}

// Plan is the ordered sequence of steps to execute for a question.
// Steps never repeat within a plan.
type Plan []StepKind

// Validate checks that every step is a known kind and none repeats
func (p Plan) Validate() error {
	seen := make(map[StepKind]bool, len(p))
	for _, s := range p {
		if _, err := ParseStepKind(string(s)); err != nil {
			return err
		}
		if seen[s] {
			return goerr.Wrap(ErrDuplicateStep, "plan repeats step", goerr.V("step", s))
		}
		seen[s] = true
	}
	return nil
}

// Contains reports whether the plan includes the given step
func (p Plan) Contains(kind StepKind) bool {
	for _, s := range p {
		if s == kind {
			return true
		}
	}
	return false
}

func (p Plan) String() string {
	parts := make([]string, len(p))
	for i, s := range p {
		parts[i] = string(s)
	}
	return strings.Join(parts, ",")
}
