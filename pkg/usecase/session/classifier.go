package session

import (
	"context"
	"strings"

	"github.com/m-mizutani/kioku/pkg/model"
)

// Classifier turns a question into an execution plan. Implementations must
// always produce a valid plan; recoverable failures are handled internally.
type Classifier interface {
	Classify(ctx context.Context, question string) (model.Plan, error)
}

// Surface features of the question text. These are implementation constants;
// the contract is that the same normalized text always yields the same plan.
var (
	researchCues = []string{"research", "find", "look up", "papers", "information", "what are", "list"}
	analyzeCues  = []string{"analyze", "compare", "efficiency", "trade-off", "recommend", "which is better", "summarize"}
	recallCues   = []string{"what did we", "earlier", "previously", "remember", "recall"}
)

// RuleClassifier is the deterministic classification path. It is a pure
// function of the case-insensitive, whitespace-normalized question text.
type RuleClassifier struct{}

// NewRuleClassifier creates the deterministic classifier
func NewRuleClassifier() *RuleClassifier {
	return &RuleClassifier{}
}

func normalizeQuestion(question string) string {
	return strings.Join(strings.Fields(strings.ToLower(question)), " ")
}

func containsAny(text string, cues []string) bool {
	for _, cue := range cues {
		if strings.Contains(text, cue) {
			return true
		}
	}
	return false
}

// Classify never fails and never returns an empty plan
func (c *RuleClassifier) Classify(ctx context.Context, question string) (model.Plan, error) {
	q := normalizeQuestion(question)

	var plan model.Plan
	if containsAny(q, researchCues) {
		plan = append(plan, model.StepResearch)
	}
	if containsAny(q, analyzeCues) {
		plan = append(plan, model.StepAnalyze)
	}
	if containsAny(q, recallCues) {
		plan = append(model.Plan{model.StepRecall}, plan...)
	}
	if len(plan) == 0 {
		plan = model.Plan{model.StepResearch, model.StepAnalyze}
	}
	return plan, nil
}
