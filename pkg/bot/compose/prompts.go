package compose

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/smith3v/tg-study-assistant/pkg/store"
)

const assistantText = `
You are a helpful personal assistant. Provide concise and accurate answers to the user's questions.

Conversation History:
{{.History}}

User Question:
{{.Question}}

Guidelines:
- Be clear and succinct in your responses.
- If the user's question is unclear or lacks sufficient detail, ask for clarification.
- Avoid unnecessary verbosity or filler content.

Answer:
`

const tutorText = `
You are an Italian language tutor helping an English-speaking learner improve their Italian. The user is a {{.Level}} learner, and they want to discuss {{.Topic}}. Your goal is to evaluate their input, provide appropriate feedback, and continue the conversation in a friendly and engaging way.

Guidelines:
1. Evaluate the user's Italian input:
   - If the input contains errors:
     - For beginner learners:
       - Correct only fundamental errors that affect understanding.
       - Provide simple and clear explanations in English to help the user learn.
     - For intermediate learners:
       - Correct grammatical, syntactical, and structural issues.
       - Explain the corrections in English to ensure the user understands.
     - For advanced learners:
       - Address even subtle mistakes or nuances.
       - Offer detailed and advanced-level feedback to refine their proficiency.
   - If the input is fully correct:
     - Acknowledge the correctness of the sentence with a positive comment.
     - Provide a friendly and engaging response in Italian related to the user's topic.

2. Response Structure:
   - For input with corrections:
     - Corrected Italian Sentence: (Provide the corrected version of the sentence.)
     - Explanation in English: (Explain the corrections clearly and concisely.)
     - Friendly Italian Reply: (Respond in Italian to continue the conversation.)
   - For correct input:
     - Acknowledgment: (Acknowledge the sentence positively.)
     - Friendly Italian Reply: (Respond in Italian to continue the conversation.)

Example User Input: "{{.Sentence}}"

Your response should strictly follow the guidelines and format above. Do not provide translations or handle non-Italian inputs.

`

var (
	assistantTemplate = template.Must(template.New("assistant").Parse(assistantText))
	tutorTemplate     = template.Must(template.New("tutor").Parse(tutorText))
)

// AssistantPrompt builds the normal-mode prompt from the full history,
// oldest turn first, and the new question.
func AssistantPrompt(history []store.Turn, question string) (string, error) {
	var b strings.Builder
	err := assistantTemplate.Execute(&b, struct {
		History  string
		Question string
	}{History: History(history), Question: question})
	if err != nil {
		return "", fmt.Errorf("render assistant prompt: %w", err)
	}
	return b.String(), nil
}

// TutorPrompt builds the language-learning prompt. It carries no history.
func TutorPrompt(level store.Level, topic, sentence string) (string, error) {
	var b strings.Builder
	err := tutorTemplate.Execute(&b, struct {
		Level    store.Level
		Topic    string
		Sentence string
	}{Level: level, Topic: topic, Sentence: sentence})
	if err != nil {
		return "", fmt.Errorf("render tutor prompt: %w", err)
	}
	return b.String(), nil
}

// History renders turns as alternating "User:" and "AI:" lines. Flashcard
// turns show the drilled term, the answer given and the verdict.
func History(turns []store.Turn) string {
	var b strings.Builder
	for _, turn := range turns {
		if turn.IsFlashcard() {
			term, definition := turn.Card()
			verdict := "wrong, the answer was '" + definition + "'"
			if turn.WasCorrect() {
				verdict = "correct"
			}
			fmt.Fprintf(&b, "\nUser: (flashcard '%s') %s\nAI: %s", term, turn.UserResponse, verdict)
			continue
		}
		fmt.Fprintf(&b, "\nUser: %s\nAI: %s", orUnknown(turn.User), orUnknown(turn.AI))
	}
	return b.String()
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
