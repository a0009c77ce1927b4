package session

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/smith3v/tg-study-assistant/pkg/bot/compose"
	"github.com/smith3v/tg-study-assistant/pkg/logger"
	"github.com/smith3v/tg-study-assistant/pkg/store"
)

const (
	DefaultDrillCount = 10
	SweeperInterval   = time.Minute
)

var (
	ErrDrillActive  = errors.New("flashcard drill already active")
	ErrNoFlashcards = errors.New("no flashcards to study")
	ErrInvalidCount = errors.New("drill count must be positive")
	ErrNoDrill      = errors.New("no active flashcard drill")
)

// Prompt is the card currently asked in a drill.
type Prompt struct {
	Position int
	Total    int
	Term     string
}

type Summary struct {
	Correct  int
	Answered int
	Total    int
}

// AnswerResult describes one evaluated drill answer. Exactly one of Next and
// Summary is set.
type AnswerResult struct {
	Card    store.Card
	Answer  string
	Correct bool
	Next    *Prompt
	Summary *Summary
}

type drill struct {
	chatID         int64
	cards          []store.Card
	index          int
	correct        int
	startedAt      time.Time
	lastActivityAt time.Time
}

func (d *drill) prompt() *Prompt {
	return &Prompt{Position: d.index + 1, Total: len(d.cards), Term: d.cards[d.index].Term}
}

func (d *drill) summary() *Summary {
	return &Summary{Correct: d.correct, Answered: d.index, Total: len(d.cards)}
}

// MessageSender abstracts message delivery for timeout sweeps.
type MessageSender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

type Options struct {
	Now         func() time.Time
	Perm        func(n int) []int
	IdleTimeout time.Duration
}

// Manager keeps the transient per-user state: pending clear-data
// confirmations and active flashcard drills. Nothing here is persisted.
type Manager struct {
	mu            sync.Mutex
	confirmations map[int64]time.Time
	drills        map[int64]*drill
	now           func() time.Time
	perm          func(n int) []int
	idleTimeout   time.Duration
}

func NewManager(opts Options) *Manager {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Perm == nil {
		opts.Perm = rand.Perm
	}
	return &Manager{
		confirmations: make(map[int64]time.Time),
		drills:        make(map[int64]*drill),
		now:           opts.Now,
		perm:          opts.Perm,
		idleTimeout:   opts.IdleTimeout,
	}
}

func (m *Manager) BeginConfirmation(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.confirmations[userID] = m.now()
}

func (m *Manager) AwaitingConfirmation(userID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.confirmations[userID]
	return ok
}

func (m *Manager) EndConfirmation(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.confirmations, userID)
}

// StartDrill samples min(count, len(cards)) cards uniformly without
// replacement. An active drill is never replaced. chatID is where the
// timeout notice goes.
func (m *Manager) StartDrill(userID, chatID int64, cards []store.Card, count int) (*Prompt, error) {
	if count <= 0 {
		return nil, ErrInvalidCount
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.drills[userID]; ok {
		return nil, ErrDrillActive
	}
	if len(cards) == 0 {
		return nil, ErrNoFlashcards
	}

	selected := sampleCards(cards, count, m.perm)
	now := m.now()
	d := &drill{chatID: chatID, cards: selected, startedAt: now, lastActivityAt: now}
	m.drills[userID] = d
	return d.prompt(), nil
}

func (m *Manager) DrillActive(userID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.drills[userID]
	return ok
}

// Current returns the card awaiting an answer.
func (m *Manager) Current(userID int64) (*Prompt, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drills[userID]
	if !ok {
		return nil, false
	}
	return d.prompt(), true
}

// Answer grades text against the current card. The comparison is exact after
// trimming and case folding. The drill is removed after its last card.
func (m *Manager) Answer(userID int64, text string) (AnswerResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.drills[userID]
	if !ok {
		return AnswerResult{}, ErrNoDrill
	}

	card := d.cards[d.index]
	answer := normalizeAnswer(text)
	result := AnswerResult{
		Card:    card,
		Answer:  answer,
		Correct: answer == normalizeAnswer(card.Definition),
	}
	if result.Correct {
		d.correct++
	}
	d.index++
	d.lastActivityAt = m.now()

	if d.index >= len(d.cards) {
		result.Summary = d.summary()
		delete(m.drills, userID)
		return result, nil
	}
	result.Next = d.prompt()
	return result, nil
}

// CancelDrill drops the user's drill and reports whether one existed.
func (m *Manager) CancelDrill(userID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.drills[userID]
	delete(m.drills, userID)
	return ok
}

// Forget drops every transient state of the user.
func (m *Manager) Forget(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drills, userID)
	delete(m.confirmations, userID)
}

// StartSweeper periodically expires idle drills until ctx is canceled.
func (m *Manager) StartSweeper(ctx context.Context, sender MessageSender) {
	if sender == nil || m.idleTimeout <= 0 {
		return
	}
	ticker := time.NewTicker(SweeperInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.SweepInactive(ctx, sender)
		}
	}
}

type expiredDrill struct {
	userID  int64
	chatID  int64
	summary Summary
}

// SweepInactive expires idle drills and notifies users without holding the lock.
func (m *Manager) SweepInactive(ctx context.Context, sender MessageSender) {
	if sender == nil {
		return
	}
	for _, expired := range m.collectInactive(m.now()) {
		s := expired.summary
		text := compose.DrillExpired(s.Correct, s.Answered, s.Total)
		if err := sender.SendMessage(ctx, expired.chatID, text); err != nil {
			logger.Error("failed to send drill timeout summary", "user_id", expired.userID, "chat_id", expired.chatID, "error", err)
		}
	}
}

func (m *Manager) collectInactive(now time.Time) []expiredDrill {
	if m.idleTimeout <= 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var expired []expiredDrill
	for userID, d := range m.drills {
		if now.Sub(d.lastActivityAt) < m.idleTimeout {
			continue
		}
		expired = append(expired, expiredDrill{userID: userID, chatID: d.chatID, summary: *d.summary()})
		delete(m.drills, userID)
		logger.Info("flashcard drill expired", "user_id", userID, "answered", d.index, "total", len(d.cards))
	}
	return expired
}

func sampleCards(cards []store.Card, limit int, perm func(int) []int) []store.Card {
	n := min(limit, len(cards))
	order := perm(len(cards))
	selected := make([]store.Card, 0, n)
	for _, idx := range order[:n] {
		selected = append(selected, cards[idx])
	}
	return selected
}

func normalizeAnswer(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
