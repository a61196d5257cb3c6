package session

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"regexp"
	"strings"
	"text/template"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kioku/pkg/adapter"
	"github.com/m-mizutani/kioku/pkg/model"
	"github.com/m-mizutani/kioku/pkg/utils/logging"
	"google.golang.org/genai"
)

// DefaultClassifierTimeout bounds the external classifier call. The pipeline
// must always produce a plan, so a slow collaborator degrades to the rule
// path rather than blocking.
const DefaultClassifierTimeout = 2 * time.Second

//go:embed prompt/classify.md
var classifyPromptRaw string

var classifyPromptTmpl = template.Must(template.New("classify").Parse(classifyPromptRaw))

// maxPlanSteps caps validated external plans; one step of each kind at most
const maxPlanSteps = 3

// LLMClassifier decorates the rule classifier with an external LLM call.
// The LLM output is validated against the step-kind enum; any timeout, parse
// failure, or schema violation falls back to the deterministic path. The
// fallback is logged and never surfaces to the caller.
type LLMClassifier struct {
	gemini   adapter.Gemini
	fallback Classifier
	timeout  time.Duration
}

// NewLLMClassifier wraps fallback with the external collaborator
func NewLLMClassifier(gemini adapter.Gemini, fallback Classifier, timeout time.Duration) *LLMClassifier {
	if timeout <= 0 {
		timeout = DefaultClassifierTimeout
	}
	return &LLMClassifier{
		gemini:   gemini,
		fallback: fallback,
		timeout:  timeout,
	}
}

func (c *LLMClassifier) Classify(ctx context.Context, question string) (model.Plan, error) {
	plan, err := c.classifyExternal(ctx, question)
	if err != nil {
		logging.From(ctx).Warn("external classifier failed, using rule-based plan", "error", err)
		return c.fallback.Classify(ctx, question)
	}
	return plan, nil
}

func (c *LLMClassifier) classifyExternal(ctx context.Context, question string) (model.Plan, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var buf bytes.Buffer
	if err := classifyPromptTmpl.Execute(&buf, map[string]any{"Question": question}); err != nil {
		return nil, goerr.Wrap(err, "failed to execute classify prompt template")
	}

	temperature := float32(0)
	config := &genai.GenerateContentConfig{
		Temperature:      &temperature,
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type:        genai.TypeArray,
			Description: "Ordered execution steps",
			Items: &genai.Schema{
				Type: genai.TypeString,
				Enum: []string{string(model.StepRecall), string(model.StepResearch), string(model.StepAnalyze)},
			},
		},
	}

	contents := []*genai.Content{
		genai.NewContentFromText(buf.String(), genai.RoleUser),
	}
	resp, err := c.gemini.GenerateContent(ctx, contents, config)
	if err != nil {
		return nil, goerr.Wrap(err, "classifier call failed")
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, goerr.New("empty classifier response")
	}

	return ParsePlanOutput(resp.Candidates[0].Content.Parts[0].Text)
}

var fencedArrayRe = regexp.MustCompile("(?is)```(?:json)?\\s*(\\[.*?\\])\\s*```")

// extractJSONArray pulls the first JSON array out of raw model output, which
// may be fenced or wrapped in commentary.
func extractJSONArray(text string) (string, bool) {
	if m := fencedArrayRe.FindStringSubmatch(text); m != nil {
		return m[1], true
	}
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start >= 0 && end > start {
		return text[start : end+1], true
	}
	return "", false
}

// ParsePlanOutput validates raw classifier output against the strict plan
// schema: a JSON array of known step kinds, deduplicated preserving order,
// at most maxPlanSteps entries. Non-string and unknown entries are dropped;
// a plan that ends up empty is an error so the caller falls back.
func ParsePlanOutput(text string) (model.Plan, error) {
	raw, ok := extractJSONArray(text)
	if !ok {
		return nil, goerr.New("no JSON array in classifier output", goerr.V("output", text))
	}

	var items []any
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, goerr.Wrap(err, "malformed classifier output", goerr.V("output", raw))
	}

	plan := make(model.Plan, 0, maxPlanSteps)
	seen := make(map[model.StepKind]bool)
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			continue
		}
		kind, err := model.ParseStepKind(s)
		if err != nil {
			continue
		}
		if seen[kind] {
			continue
		}
		plan = append(plan, kind)
		seen[kind] = true
		if len(plan) >= maxPlanSteps {
			break
		}
	}

	if len(plan) == 0 {
		return nil, goerr.New("classifier output contains no valid steps", goerr.V("output", raw))
	}
	return plan, nil
}
