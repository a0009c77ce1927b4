package store

import (
	"fmt"
	"strings"
)

// Mode is the top-level conversational state of a user.
type Mode string

const (
	ModeNormal           Mode = "normal"
	ModeLanguageLearning Mode = "language_learning"
)

// Level is the learner proficiency used to tune tutoring strictness.
type Level string

const (
	LevelBeginner     Level = "beginner"
	LevelIntermediate Level = "intermediate"
	LevelAdvanced     Level = "advanced"
)

const DefaultTopic = "general"

// Levels lists the accepted levels in display order.
var Levels = []Level{LevelBeginner, LevelIntermediate, LevelAdvanced}

// ParseLevel accepts a level name in any case.
func ParseLevel(value string) (Level, error) {
	switch Level(strings.ToLower(strings.TrimSpace(value))) {
	case LevelBeginner:
		return LevelBeginner, nil
	case LevelIntermediate:
		return LevelIntermediate, nil
	case LevelAdvanced:
		return LevelAdvanced, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidLevel, value)
	}
}

type Settings struct {
	Mode  Mode   `json:"mode"`
	Level Level  `json:"level"`
	Topic string `json:"topic"`
}

func DefaultSettings() Settings {
	return Settings{Mode: ModeNormal, Level: LevelBeginner, Topic: DefaultTopic}
}

// LanguageLearning returns settings for tutoring at level on topic.
func LanguageLearning(level Level, topic string) Settings {
	return Settings{Mode: ModeLanguageLearning, Level: level, Topic: strings.ToLower(strings.TrimSpace(topic))}
}

const TurnTypeFlashcard = "flashcard"

// Turn is one entry of a user's conversation history. Chat turns carry User
// and AI; flashcard turns have Type "flashcard" and carry the drilled card,
// the given answer and the verdict.
type Turn struct {
	Type         string            `json:"type,omitempty"`
	User         string            `json:"user,omitempty"`
	AI           string            `json:"ai,omitempty"`
	Flashcard    map[string]string `json:"flashcard,omitempty"`
	UserResponse string            `json:"user_response,omitempty"`
	Correct      *bool             `json:"correct,omitempty"`
}

func ChatTurn(userText, reply string) Turn {
	return Turn{User: userText, AI: reply}
}

func FlashcardTurn(term, definition, response string, correct bool) Turn {
	return Turn{
		Type:         TurnTypeFlashcard,
		Flashcard:    map[string]string{term: definition},
		UserResponse: response,
		Correct:      &correct,
	}
}

func (t Turn) IsFlashcard() bool {
	return t.Type == TurnTypeFlashcard
}

// Card returns the single term/definition pair of a flashcard turn.
func (t Turn) Card() (string, string) {
	for term, definition := range t.Flashcard {
		return term, definition
	}
	return "", ""
}

func (t Turn) WasCorrect() bool {
	return t.Correct != nil && *t.Correct
}

func (t Turn) clone() Turn {
	out := t
	if t.Flashcard != nil {
		out.Flashcard = make(map[string]string, len(t.Flashcard))
		for k, v := range t.Flashcard {
			out.Flashcard[k] = v
		}
	}
	if t.Correct != nil {
		correct := *t.Correct
		out.Correct = &correct
	}
	return out
}
