package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ai-tutor-be/internal/constant"
	"ai-tutor-be/internal/entity"
	"ai-tutor-be/internal/pkg/apperror"
	"ai-tutor-be/internal/pkg/logger"
	"ai-tutor-be/pkg/llm"
)

var stopSentinels = []string{"FINAL_RESPONSE", "COMPLETE"}

// Reasoner runs a bounded thought/action/observation loop and then asks for the
// tutorial reply. It makes at most MaxSteps+1 LLM calls.
type Reasoner struct {
	llm      llm.LLMProvider
	maxSteps int
	timeout  time.Duration
	logger   logger.ILogger
}

func NewReasoner(provider llm.LLMProvider, maxSteps int, timeout time.Duration, log logger.ILogger) *Reasoner {
	if maxSteps <= 0 {
		maxSteps = 3
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Reasoner{llm: provider, maxSteps: maxSteps, timeout: timeout, logger: log}
}

func (r *Reasoner) Name() string { return SourceReAct }

func (r *Reasoner) MaxSteps() int { return r.maxSteps }

func (r *Reasoner) Run(ctx context.Context, state State) (Response, error) {
	start := time.Now()
	question := state.LastUserMessage()

	var steps []entity.ReActStep
	parseFailures := 0
	for i := 0; i < r.maxSteps; i++ {
		prompt := BuildStepPrompt(question, state.EmotionalState, state.Memories, steps)
		reply, err := generate(ctx, r.llm, r.timeout, []llm.Message{
			{Role: llm.RoleSystem, Content: constant.ReActSystemPrompt},
			{Role: llm.RoleUser, Content: prompt},
		})
		if err != nil {
			return failed(newResponse(SourceReAct, start), err), err
		}

		step, ok := ParseStep(reply)
		if !ok {
			parseFailures++
			r.logger.Warn("REACT", "Reasoning step had no recognisable sections", map[string]interface{}{
				"user_id": state.UserID,
				"step":    i + 1,
			})
		}
		steps = append(steps, step)
		if isFinal(step.Observation) {
			break
		}
	}

	final, err := generate(ctx, r.llm, r.timeout, []llm.Message{
		{Role: llm.RoleSystem, Content: constant.ReActSystemPrompt},
		{Role: llm.RoleUser, Content: fmt.Sprintf(constant.ReActFinalPrompt, question, renderSteps(steps))},
	})
	if err != nil {
		return failed(newResponse(SourceReAct, start), err), err
	}
	final = strings.TrimSpace(final)
	if final == "" {
		err := apperror.New(apperror.KindLLM, "empty final reply")
		return failed(newResponse(SourceReAct, start), err), err
	}

	resp := newResponse(SourceReAct, start)
	resp.StateDelta.ReActSteps = steps
	resp.StateDelta.Reply = &final
	if parseFailures > 0 {
		resp.Success = false
		resp.Error = fmt.Sprintf("ParseError: %d of %d steps unparsed", parseFailures, len(steps))
	}

	r.logger.Debug("REACT", "Reasoning finished", map[string]interface{}{
		"user_id": state.UserID,
		"steps":   len(steps),
	})
	return resp, nil
}

func isFinal(observation string) bool {
	for _, s := range stopSentinels {
		if strings.Contains(observation, s) {
			return true
		}
	}
	return false
}

// BuildStepPrompt renders the prompt for the next reasoning step.
func BuildStepPrompt(question string, emotion entity.EmotionalState, memories []string, previous []entity.ReActStep) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Current question: %s\n", question)
	if emotion.Mood != "" {
		fmt.Fprintf(&b, "Student emotional state: %s (confidence: %s)\n", emotion.Mood, emotion.Confidence)
	}

	if len(memories) > 0 {
		b.WriteString("\nRelevant past interactions:\n")
		for i, m := range memories {
			fmt.Fprintf(&b, "%d. %s\n", i+1, m)
		}
	}

	if len(previous) > 0 {
		b.WriteString("\nPrevious reasoning steps:\n")
		b.WriteString(renderSteps(previous))
	}

	b.WriteString("\n")
	b.WriteString(constant.ReActNextStepInstruction)
	return b.String()
}

func renderSteps(steps []entity.ReActStep) string {
	var b strings.Builder
	for i, s := range steps {
		fmt.Fprintf(&b, "Step %d:\nThought: %s\nAction: %s\nObservation: %s\n", i+1, s.Thought, s.Action, s.Observation)
	}
	return b.String()
}

// ParseStep splits a reply on the Thought:/Action:/Observation: headers, case
// insensitively. Missing sections are empty; the observation ends at the first
// blank line. It reports false when no header is present.
func ParseStep(reply string) (entity.ReActStep, bool) {
	lower := strings.ToLower(reply)
	headers := []string{"thought:", "action:", "observation:"}

	starts := make([]int, len(headers))
	for i, h := range headers {
		starts[i] = strings.Index(lower, h)
	}

	section := func(i int) string {
		if starts[i] < 0 {
			return ""
		}
		from := starts[i] + len(headers[i])
		end := len(reply)
		for j := range headers {
			if j != i && starts[j] > starts[i] && starts[j] < end {
				end = starts[j]
			}
		}
		text := reply[from:end]
		if i == 2 {
			if k := strings.Index(text, "\n\n"); k >= 0 {
				text = text[:k]
			}
		}
		return strings.TrimSpace(text)
	}

	step := entity.ReActStep{
		Thought:     section(0),
		Action:      section(1),
		Observation: section(2),
	}
	ok := starts[0] >= 0 || starts[1] >= 0 || starts[2] >= 0
	return step, ok
}
