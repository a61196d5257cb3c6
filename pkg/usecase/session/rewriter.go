package session

import (
	"bytes"
	"context"
	_ "embed"
	"strings"
	"time"

	"text/template"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kioku/pkg/adapter"
	"github.com/m-mizutani/kioku/pkg/utils/logging"
	"google.golang.org/genai"
)

//go:embed prompt/rewrite.md
var rewritePromptRaw string

var rewritePromptTmpl = template.Must(template.New("rewrite").Parse(rewritePromptRaw))

// rewriter optionally polishes the synthesized answer with the LLM. Same
// contract as the classifier: time-bounded, and any failure keeps the raw
// synthesis.
type rewriter struct {
	gemini  adapter.Gemini
	timeout time.Duration
}

func newRewriter(gemini adapter.Gemini, timeout time.Duration) *rewriter {
	if timeout <= 0 {
		timeout = DefaultClassifierTimeout
	}
	return &rewriter{gemini: gemini, timeout: timeout}
}

// Rewrite returns the polished answer, or draft unchanged when the external
// call fails.
func (r *rewriter) Rewrite(ctx context.Context, question, draft string) string {
	rewritten, err := r.rewriteExternal(ctx, question, draft)
	if err != nil {
		logging.From(ctx).Warn("answer rewrite failed, keeping raw synthesis", "error", err)
		return draft
	}
	return rewritten
}

func (r *rewriter) rewriteExternal(ctx context.Context, question, draft string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var buf bytes.Buffer
	if err := rewritePromptTmpl.Execute(&buf, map[string]any{
		"Question": question,
		"Draft":    draft,
	}); err != nil {
		return "", goerr.Wrap(err, "failed to execute rewrite prompt template")
	}

	contents := []*genai.Content{
		genai.NewContentFromText(buf.String(), genai.RoleUser),
	}
	resp, err := r.gemini.GenerateContent(ctx, contents, &genai.GenerateContentConfig{})
	if err != nil {
		return "", goerr.Wrap(err, "rewrite call failed")
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", goerr.New("empty rewrite response")
	}

	text := strings.TrimSpace(resp.Candidates[0].Content.Parts[0].Text)
	if text == "" {
		return "", goerr.New("blank rewrite response")
	}
	return text, nil
}
