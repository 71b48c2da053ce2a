package constant

const (
	// EmotionalAnalysisPrompt takes the latest student message.
	EmotionalAnalysisPrompt = `Analyze the emotional state and learning mindset of the student based on this message:
"%s"

Choose the single most fitting mood from this list:
joyful, curious, confused, frustrated, anxious, engaged, unmotivated, excited, uncertain

Then rate the student's confidence about the topic as one of: high, medium, low.

Answer with exactly two lines and nothing else:
Mood: <mood>
Confidence: <level>`

	ReActSystemPrompt = `You are an AI tutor that uses step-by-step reasoning to help students learn.
Follow these guidelines:
1. Break down complex concepts into simpler parts
2. Use examples to illustrate points
3. Reference relevant past interactions when helpful
4. Provide clear explanations
5. Encourage critical thinking

Answer every step in this format:
Thought: what the student needs and how to help
Action: how to respond (explain, give example, ask question, ...)
Observation: the key points to convey

Write FINAL_RESPONSE in the observation once you have enough to answer.
Always keep an encouraging and patient tone.`

	ReActNextStepInstruction = "Provide your next step in the reasoning process."

	// ReActFinalPrompt takes the student question and the rendered steps.
	ReActFinalPrompt = `The student asked: "%s"

Based on the following reasoning steps, write the tutorial response addressed to the student.
Do not mention the steps themselves.

%s
Provide the final tutorial response:`

	// PersonalizationPrompt takes reply, learning style, difficulty, interests, mood, confidence.
	PersonalizationPrompt = `Given this response: "%s"

Adapt it for a %s learner with %s difficulty preference.
Consider their interests: %s.
Current emotional state: %s. Confidence: %s.

Keep every fact of the original response. Reply with the adapted response only.`
)
