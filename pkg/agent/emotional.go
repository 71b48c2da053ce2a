package agent

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"ai-tutor-be/internal/constant"
	"ai-tutor-be/internal/entity"
	"ai-tutor-be/internal/pkg/logger"
	"ai-tutor-be/pkg/llm"
)

const (
	DefaultMood       = "neutral"
	DefaultConfidence = "medium"
)

var (
	moodPattern       = regexp.MustCompile(`\b(joyful|curious|confused|frustrated|anxious|engaged|unmotivated|excited|uncertain|neutral)\b`)
	confidencePattern = regexp.MustCompile(`\b(high|medium|low|uncertain)\b`)
)

// EmotionalAgent classifies the latest user turn into the closed mood vocabulary.
type EmotionalAgent struct {
	llm     llm.LLMProvider
	timeout time.Duration
	logger  logger.ILogger
}

func NewEmotionalAgent(provider llm.LLMProvider, timeout time.Duration, log logger.ILogger) *EmotionalAgent {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &EmotionalAgent{llm: provider, timeout: timeout, logger: log}
}

func (a *EmotionalAgent) Name() string { return SourceEmotional }

func (a *EmotionalAgent) Run(ctx context.Context, state State) (Response, error) {
	start := time.Now()

	prompt := fmt.Sprintf(constant.EmotionalAnalysisPrompt, state.LastUserMessage())
	reply, err := generate(ctx, a.llm, a.timeout, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, llm.WithTemperature(0.2))
	if err != nil {
		return failed(newResponse(SourceEmotional, start), err), err
	}

	emotion, ok := ParseEmotion(reply)
	resp := newResponse(SourceEmotional, start)
	resp.StateDelta.EmotionalState = &emotion
	if !ok {
		// ParseError: keep going with the neutral default
		a.logger.Warn("EMOTION", "Could not parse emotional analysis, using default", map[string]interface{}{
			"user_id": state.UserID,
			"reply":   reply,
		})
		resp.Success = false
		resp.Confidence = 0
		resp.Error = "ParseError: unrecognised emotional analysis"
	}
	return resp, nil
}

// ParseEmotion reads a mood and a confidence level out of free text. It reports
// false, with the neutral/medium default, when no known mood is present.
func ParseEmotion(reply string) (entity.EmotionalState, bool) {
	lower := strings.ToLower(reply)

	moodText := lower
	confText := ""
	if i := strings.Index(lower, "confidence"); i >= 0 {
		confText = lower[i:]
		if j := strings.Index(lower, "mood:"); j < 0 || j > i {
			moodText = lower[:i]
		}
	}
	if j := strings.Index(moodText, "mood:"); j >= 0 {
		moodText = moodText[j+len("mood:"):]
		if k := strings.Index(moodText, "confidence"); k >= 0 {
			moodText = moodText[:k]
		}
	}

	loc := moodPattern.FindStringIndex(moodText)
	if loc == nil {
		return entity.EmotionalState{Mood: DefaultMood, Confidence: DefaultConfidence}, false
	}
	mood := moodText[loc[0]:loc[1]]

	confidence := confidencePattern.FindString(confText)
	if confidence == "" {
		confidence = confidencePattern.FindString(moodText[loc[1]:])
	}
	if confidence == "" {
		confidence = DefaultConfidence
	}
	return entity.EmotionalState{Mood: mood, Confidence: confidence}, true
}
