// Package session implements the coordinator: question classification, the
// ordered execution of agent steps, answer synthesis, and memory write-back.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kioku/pkg/adapter"
	"github.com/m-mizutani/kioku/pkg/agent"
	"github.com/m-mizutani/kioku/pkg/memory"
	"github.com/m-mizutani/kioku/pkg/model"
	"github.com/m-mizutani/kioku/pkg/utils/logging"
)

// State is the coordinator's position in the pipeline
type State string

const (
	StateIdle         State = "idle"
	StateClassified   State = "classified"
	StateExecuting    State = "executing"
	StateSynthesizing State = "synthesizing"
	StateDone         State = "done"
)

// Coordinator sequences the agents over one or more sessions. Each question
// runs end-to-end: classify, execute each plan step in order, synthesize,
// write the summary back into memory.
type Coordinator struct {
	memory     *memory.Service
	classifier Classifier
	rewrite    *rewriter
	storage    adapter.Storage

	research *agent.Research
	analysis *agent.Analysis
	memAgent *agent.Memory

	state State
}

// NewInput holds the coordinator's dependencies. Gemini and Storage are
// optional; without Gemini every question uses the deterministic classifier
// and raw synthesis.
type NewInput struct {
	Memory            *memory.Service
	Gemini            adapter.Gemini
	Storage           adapter.Storage
	ClassifierTimeout time.Duration
}

// New creates a coordinator and its agents
func New(input NewInput) *Coordinator {
	var classifier Classifier = NewRuleClassifier()
	var rw *rewriter
	if input.Gemini != nil {
		classifier = NewLLMClassifier(input.Gemini, classifier, input.ClassifierTimeout)
		rw = newRewriter(input.Gemini, input.ClassifierTimeout)
	}

	return &Coordinator{
		memory:     input.Memory,
		classifier: classifier,
		rewrite:    rw,
		storage:    input.Storage,
		research:   agent.NewResearch(input.Memory),
		analysis:   agent.NewAnalysis(input.Memory),
		memAgent:   agent.NewMemory(input.Memory),
		state:      StateIdle,
	}
}

// State returns the coordinator's current pipeline state
func (c *Coordinator) State() State {
	return c.state
}

// Handle answers one question. The returned answer is valid even when the
// final memory write-back fails; such failures are reported via
// Answer.Warning.
func (c *Coordinator) Handle(ctx context.Context, question string) (*model.Answer, error) {
	logger := logging.From(ctx)
	sessionID := model.NewSessionID()

	c.state = StateIdle
	c.memory.Remember(model.RoleUser, question, nil)

	plan, err := c.classifier.Classify(ctx, question)
	if err != nil {
		// Classifiers recover internally; reaching here is a wiring bug
		return nil, err
	}
	c.state = StateClassified
	logger.Info("plan produced", "session", sessionID, "question", question, "plan", plan.String())

	c.state = StateExecuting
	findings := make([]string, 0, len(plan))
	confidences := make([]float64, 0, len(plan))

	for i, step := range plan {
		result, err := c.executeStep(ctx, step, question, findings)
		if err != nil {
			// A failed step aborts only itself; later steps still run
			// with whatever context has accumulated.
			logger.Warn("step failed", "session", sessionID, "step", step, "index", i, "error", err)
			continue
		}
		if result == nil {
			continue
		}
		logger.Info("step completed", "session", sessionID, "step", step, "index", i,
			"confidence", result.Confidence)
		findings = append(findings, result.Content)
		confidences = append(confidences, result.Confidence)
	}

	c.state = StateSynthesizing
	answer := c.synthesize(ctx, question, findings, confidences)
	answer.SessionID = sessionID
	answer.Plan = plan
	logger.Info("answer synthesized", "session", sessionID, "confidence", answer.Confidence)

	if err := c.writeBack(ctx, question, answer); err != nil {
		logger.Warn("failed to persist session summary", "session", sessionID, "error", err)
		answer.Warning = "session summary could not be persisted"
	}
	c.archiveTranscript(ctx, sessionID)

	c.state = StateDone
	return answer, nil
}

func (c *Coordinator) executeStep(ctx context.Context, step model.StepKind, question string, findings []string) (*model.AgentResult, error) {
	switch step {
	case model.StepRecall:
		hits := c.memAgent.Recall(ctx, question)
		c.memory.RecordState(string(model.RoleMemory), question, map[string]any{"hits": len(hits)})
		if len(hits) == 0 {
			return nil, nil
		}
		lines := make([]string, 0, len(hits))
		for _, h := range hits {
			lines = append(lines, fmt.Sprintf("- %s: %s", h.Record.Topic, h.Record.Content))
		}
		return &model.AgentResult{
			Content:    "Recall:\n" + strings.Join(lines, "\n"),
			Confidence: 0.8,
			Meta:       map[string]any{"hits": len(hits)},
		}, nil

	case model.StepResearch:
		result, err := c.research.Run(ctx, question)
		if err != nil {
			return nil, err
		}
		c.memory.RecordState(string(model.RoleResearch), question, map[string]any{"confidence": result.Confidence})
		return result, nil

	case model.StepAnalyze:
		inputs := findings
		if len(inputs) == 0 {
			inputs = []string{question}
		}
		result, err := c.analysis.Run(ctx, inputs, question)
		if err != nil {
			return nil, err
		}
		c.memory.RecordState(string(model.RoleAnalysis), question, map[string]any{"confidence": result.Confidence})
		return result, nil

	default:
		// Plans are validated before execution
		panic(fmt.Sprintf("unknown plan step: %s", step))
	}
}

// synthesize joins accumulated findings into the final answer. With no
// findings at all the answer degrades to a neutral statement about the
// question itself.
func (c *Coordinator) synthesize(ctx context.Context, question string, findings []string, confidences []float64) *model.Answer {
	content := strings.Join(findings, "\n\n")
	if content == "" {
		content = "No relevant findings for: " + question
	}

	confidence := 0.5
	if len(confidences) > 0 {
		var sum float64
		for _, conf := range confidences {
			sum += conf
		}
		confidence = sum / float64(len(confidences))
	}

	if c.rewrite != nil {
		content = c.rewrite.Rewrite(ctx, question, content)
	}

	return &model.Answer{
		Content:    content,
		Confidence: confidence,
	}
}

// writeBack stores the final answer as knowledge and as a conversation turn.
// Both writes are best-effort; the answer is already final.
func (c *Coordinator) writeBack(ctx context.Context, question string, answer *model.Answer) error {
	if _, err := c.memAgent.Remember(ctx, question, answer.Content,
		string(model.RoleCoordinator), answer.Confidence, []string{"summary"}); err != nil {
		return err
	}
	c.memory.Remember(model.RoleCoordinator, answer.Content,
		map[string]any{"confidence": answer.Confidence})
	return nil
}

func transcriptKey(sessionID model.SessionID) string {
	return "sessions/" + string(sessionID) + ".json"
}

// LoadTranscript reads an archived session transcript back from object
// storage.
func LoadTranscript(ctx context.Context, st adapter.Storage, sessionID model.SessionID) ([]model.ConversationTurn, error) {
	reader, err := st.Get(ctx, transcriptKey(sessionID))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load transcript", goerr.V("session", sessionID))
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read transcript", goerr.V("session", sessionID))
	}

	var turns []model.ConversationTurn
	if err := json.Unmarshal(data, &turns); err != nil {
		return nil, goerr.Wrap(err, "failed to decode transcript", goerr.V("session", sessionID))
	}
	return turns, nil
}

// archiveTranscript saves the conversation so far to object storage when a
// bucket is configured. Failures are logged only.
func (c *Coordinator) archiveTranscript(ctx context.Context, sessionID model.SessionID) {
	if c.storage == nil {
		return
	}

	data, err := json.Marshal(c.memory.Conversation())
	if err != nil {
		logging.From(ctx).Warn("failed to marshal transcript", "session", sessionID, "error", err)
		return
	}

	key := transcriptKey(sessionID)
	writer, err := c.storage.Put(ctx, key)
	if err != nil {
		logging.From(ctx).Warn("failed to open transcript writer", "session", sessionID, "error", err)
		return
	}
	if _, err := writer.Write(data); err != nil {
		logging.From(ctx).Warn("failed to write transcript", "session", sessionID, "error", err)
	}
	if err := writer.Close(); err != nil {
		logging.From(ctx).Warn("failed to close transcript writer", "session", sessionID, "error", err)
	}
}
