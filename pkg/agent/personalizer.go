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

// Personalizer rewrites the reasoner's reply for the learner's profile and mood.
type Personalizer struct {
	llm     llm.LLMProvider
	timeout time.Duration
	logger  logger.ILogger
}

func NewPersonalizer(provider llm.LLMProvider, timeout time.Duration, log logger.ILogger) *Personalizer {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Personalizer{llm: provider, timeout: timeout, logger: log}
}

func (p *Personalizer) Name() string { return SourcePersonalization }

func (p *Personalizer) Run(ctx context.Context, state State) (Response, error) {
	start := time.Now()
	if strings.TrimSpace(state.Reply) == "" {
		err := apperror.New(apperror.KindValidation, "nothing to personalize")
		return failed(newResponse(SourcePersonalization, start), err), err
	}

	prompt := BuildPersonalizationPrompt(state.Reply, state.Profile, state.EmotionalState)
	out, err := generate(ctx, p.llm, p.timeout, []llm.Message{{Role: llm.RoleUser, Content: prompt}})
	if err != nil {
		return failed(newResponse(SourcePersonalization, start), err), err
	}

	resp := newResponse(SourcePersonalization, start)
	out = strings.TrimSpace(out)
	if out == "" {
		p.logger.Warn("PERSONALIZE", "Empty rewrite, keeping the reasoned reply", map[string]interface{}{
			"user_id": state.UserID,
		})
		out = state.Reply
		resp.Success = false
		resp.Error = "ParseError: empty personalized reply"
	}
	resp.StateDelta.Reply = &out
	return resp, nil
}

func BuildPersonalizationPrompt(reply string, profile *entity.UserProfile, emotion entity.EmotionalState) string {
	style, difficulty, interests := entity.DefaultLearningStyle, entity.DefaultDifficultyPreference, entity.DefaultInterests
	if profile != nil {
		if profile.LearningStyle != nil && *profile.LearningStyle != "" {
			style = *profile.LearningStyle
		}
		if profile.DifficultyPreference != nil && *profile.DifficultyPreference != "" {
			difficulty = *profile.DifficultyPreference
		}
		if len(profile.Interests) > 0 {
			interests = strings.Join(profile.Interests, ", ")
		}
	}
	mood, confidence := emotion.Mood, emotion.Confidence
	if mood == "" {
		mood = DefaultMood
	}
	if confidence == "" {
		confidence = DefaultConfidence
	}
	return fmt.Sprintf(constant.PersonalizationPrompt, reply, style, difficulty, interests, mood, confidence)
}
