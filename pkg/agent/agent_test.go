package agent

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"ai-tutor-be/internal/entity"
	"ai-tutor-be/internal/pkg/apperror"
	"ai-tutor-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedLLM replies from a fixed script, repeating the last reply when exhausted.
type scriptedLLM struct {
	mu      sync.Mutex
	replies []string
	err     error
	calls   int
	prompts []string
}

func (s *scriptedLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.prompts = append(s.prompts, history[len(history)-1].Content)
	if s.err != nil {
		return "", s.err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(s.replies) == 0 {
		return "", nil
	}
	reply := s.replies[0]
	if len(s.replies) > 1 {
		s.replies = s.replies[1:]
	}
	return reply, nil
}

func (s *scriptedLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return s.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, options...)
}

func userState(content string) State {
	return State{
		UserID:   "u1",
		Messages: []entity.ChatTurn{{Id: "1", Role: entity.ChatRoleUser, Content: content}},
	}
}

func TestParseEmotion(t *testing.T) {
	tests := []struct {
		reply string
		want  entity.EmotionalState
		ok    bool
	}{
		{"Mood: curious\nConfidence: high", entity.EmotionalState{Mood: "curious", Confidence: "high"}, true},
		{"MOOD: Frustrated\nCONFIDENCE: Low", entity.EmotionalState{Mood: "frustrated", Confidence: "low"}, true},
		{"The student seems anxious and shows medium confidence", entity.EmotionalState{Mood: "anxious", Confidence: "medium"}, true},
		{"Mood: uncertain\nConfidence: low", entity.EmotionalState{Mood: "uncertain", Confidence: "low"}, true},
		{"Mood: engaged", entity.EmotionalState{Mood: "engaged", Confidence: "medium"}, true},
		{"I cannot tell.", entity.EmotionalState{Mood: "neutral", Confidence: "medium"}, false},
		{"", entity.EmotionalState{Mood: "neutral", Confidence: "medium"}, false},
	}
	for _, tt := range tests {
		got, ok := ParseEmotion(tt.reply)
		assert.Equal(t, tt.want, got, tt.reply)
		assert.Equal(t, tt.ok, ok, tt.reply)
	}
}

func TestEmotionalAgent_Run(t *testing.T) {
	t.Run("parsed", func(t *testing.T) {
		agent := NewEmotionalAgent(&scriptedLLM{replies: []string{"Mood: excited\nConfidence: high"}}, time.Second, nil)
		resp, err := agent.Run(context.Background(), userState("I finally solved it!"))
		require.NoError(t, err)
		assert.True(t, resp.Success)
		assert.Equal(t, SourceEmotional, resp.Source)
		assert.Equal(t, 0.8, resp.Confidence)
		assert.Equal(t, &entity.EmotionalState{Mood: "excited", Confidence: "high"}, resp.StateDelta.EmotionalState)
	})

	t.Run("unparseable falls back", func(t *testing.T) {
		agent := NewEmotionalAgent(&scriptedLLM{replies: []string{"¯\\_(ツ)_/¯"}}, time.Second, nil)
		resp, err := agent.Run(context.Background(), userState("hmm"))
		require.NoError(t, err)
		assert.False(t, resp.Success)
		assert.Equal(t, "neutral", resp.StateDelta.EmotionalState.Mood)
	})

	t.Run("llm error", func(t *testing.T) {
		agent := NewEmotionalAgent(&scriptedLLM{err: errors.New("503")}, time.Second, nil)
		resp, err := agent.Run(context.Background(), userState("hmm"))
		require.Error(t, err)
		assert.True(t, apperror.IsKind(err, apperror.KindLLM))
		assert.False(t, resp.Success)
	})
}

func TestParseStep(t *testing.T) {
	step, ok := ParseStep("Thought: they mix up area and perimeter\naction: give an example\nObservation: use a fence analogy FINAL_RESPONSE\n\nextra chatter")
	require.True(t, ok)
	assert.Equal(t, "they mix up area and perimeter", step.Thought)
	assert.Equal(t, "give an example", step.Action)
	assert.Equal(t, "use a fence analogy FINAL_RESPONSE", step.Observation)

	step, ok = ParseStep("Action: ask a question")
	require.True(t, ok)
	assert.Empty(t, step.Thought)
	assert.Equal(t, "ask a question", step.Action)
	assert.Empty(t, step.Observation)

	_, ok = ParseStep("just some text")
	assert.False(t, ok)
}

func TestReasoner_StopsOnSentinel(t *testing.T) {
	provider := &scriptedLLM{replies: []string{
		"Thought: a\nAction: b\nObservation: keep going",
		"Thought: c\nAction: d\nObservation: COMPLETE",
		"Here is your answer.",
	}}
	r := NewReasoner(provider, 3, time.Second, nil)

	resp, err := r.Run(context.Background(), userState("why is the sky blue?"))
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Len(t, resp.StateDelta.ReActSteps, 2)
	assert.Equal(t, "Here is your answer.", *resp.StateDelta.Reply)
	assert.Equal(t, 3, provider.calls)
	assert.Contains(t, provider.prompts[1], "Previous reasoning steps")
}

func TestReasoner_BoundedCalls(t *testing.T) {
	replies := []string{
		"Thought: x\nAction: y\nObservation: z",
		"no headers at all",
		"Observation: FINAL_RESPONSE is not the final word here",
	}
	for _, maxSteps := range []int{1, 2, 3, 5} {
		for _, reply := range replies {
			provider := &scriptedLLM{replies: []string{reply}}
			r := NewReasoner(provider, maxSteps, time.Second, nil)
			_, err := r.Run(context.Background(), userState("q"))
			require.NoError(t, err)
			assert.LessOrEqual(t, provider.calls, maxSteps+1, "max %d, reply %q", maxSteps, reply)
		}
	}
}

func TestReasoner_PromptCarriesMemories(t *testing.T) {
	provider := &scriptedLLM{replies: []string{"Observation: COMPLETE", "answer"}}
	r := NewReasoner(provider, 3, time.Second, nil)

	state := userState("Tell me about cameras")
	state.Memories = []string{"user: I love photography", "user: my camera is a film camera"}
	_, err := r.Run(context.Background(), state)
	require.NoError(t, err)
	assert.True(t, strings.Contains(provider.prompts[0], "I love photography"))
}

func TestReasoner_Failures(t *testing.T) {
	t.Run("empty final reply", func(t *testing.T) {
		provider := &scriptedLLM{replies: []string{"Observation: COMPLETE", "   "}}
		_, err := NewReasoner(provider, 3, time.Second, nil).Run(context.Background(), userState("q"))
		assert.True(t, apperror.IsKind(err, apperror.KindLLM))
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		provider := &scriptedLLM{replies: []string{"Observation: COMPLETE"}}
		_, err := NewReasoner(provider, 3, time.Second, nil).Run(ctx, userState("q"))
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, provider.calls)
	})
}

func TestPersonalizer(t *testing.T) {
	style := "visual"
	profile := &entity.UserProfile{UserId: "u1", LearningStyle: &style, Interests: []string{"chess", "music"}}

	prompt := BuildPersonalizationPrompt("Photosynthesis makes sugar.", profile, entity.EmotionalState{Mood: "curious", Confidence: "low"})
	assert.Contains(t, prompt, "visual learner")
	assert.Contains(t, prompt, "moderate difficulty")
	assert.Contains(t, prompt, "chess, music")
	assert.Contains(t, prompt, "curious")

	prompt = BuildPersonalizationPrompt("x", nil, entity.EmotionalState{})
	assert.Contains(t, prompt, "general learner")
	assert.Contains(t, prompt, "general topics")

	state := userState("q")
	state.Reply = "Original reply"
	resp, err := NewPersonalizer(&scriptedLLM{replies: []string{""}}, time.Second, nil).Run(context.Background(), state)
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, "Original reply", *resp.StateDelta.Reply)

	resp, err = NewPersonalizer(&scriptedLLM{replies: []string{"Adapted reply"}}, time.Second, nil).Run(context.Background(), state)
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "Adapted reply", *resp.StateDelta.Reply)
}

func TestStateApply(t *testing.T) {
	s := userState("q")
	reply := "r"
	s.Apply(Delta{EmotionalState: &entity.EmotionalState{Mood: "joyful", Confidence: "high"}})
	s.Apply(Delta{Reply: &reply, ReActSteps: []entity.ReActStep{{Thought: "t"}}})
	assert.Equal(t, "joyful", s.EmotionalState.Mood)
	assert.Equal(t, "r", s.Reply)
	assert.Len(t, s.ReActSteps, 1)
}
