package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/smith3v/tg-study-assistant/pkg/store"
)

type testClock struct {
	t time.Time
}

func (c *testClock) Now() time.Time {
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.t = c.t.Add(d)
}

func identityPerm(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func reversePerm(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = n - 1 - i
	}
	return out
}

type recordingSender struct {
	mu       sync.Mutex
	messages map[int64][]string
}

func (s *recordingSender) SendMessage(_ context.Context, chatID int64, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.messages == nil {
		s.messages = make(map[int64][]string)
	}
	s.messages[chatID] = append(s.messages[chatID], text)
	return nil
}

var testCards = []store.Card{
	{Term: "gatto", Definition: "cat"},
	{Term: "cane", Definition: "dog"},
}

func TestConfirmationLifecycle(t *testing.T) {
	m := NewManager(Options{})
	if m.AwaitingConfirmation(1) {
		t.Fatal("expected no pending confirmation")
	}
	m.BeginConfirmation(1)
	if !m.AwaitingConfirmation(1) || m.AwaitingConfirmation(2) {
		t.Fatal("confirmation must be scoped to the user")
	}
	m.EndConfirmation(1)
	m.EndConfirmation(1)
	if m.AwaitingConfirmation(1) {
		t.Fatal("expected confirmation to be cleared")
	}
}

func TestGattoCaneScenario(t *testing.T) {
	m := NewManager(Options{Perm: reversePerm})

	prompt, err := m.StartDrill(7, 7, testCards, 2)
	if err != nil {
		t.Fatalf("StartDrill returned error: %v", err)
	}
	if prompt.Position != 1 || prompt.Total != 2 || prompt.Term != "cane" {
		t.Fatalf("unexpected first prompt %+v", prompt)
	}

	res, err := m.Answer(7, "  FISH ")
	if err != nil {
		t.Fatalf("Answer returned error: %v", err)
	}
	if res.Correct || res.Answer != "fish" || res.Card.Term != "cane" {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Next == nil || res.Next.Term != "gatto" || res.Next.Position != 2 || res.Summary != nil {
		t.Fatalf("expected next prompt for gatto, got %+v", res)
	}

	res, err = m.Answer(7, "Cat")
	if err != nil {
		t.Fatalf("Answer returned error: %v", err)
	}
	if !res.Correct || res.Next != nil || res.Summary == nil {
		t.Fatalf("expected final correct answer, got %+v", res)
	}
	if res.Summary.Correct != 1 || res.Summary.Total != 2 {
		t.Fatalf("expected 1/2 summary, got %+v", res.Summary)
	}
	if m.DrillActive(7) {
		t.Fatal("drill must be destroyed after the last card")
	}
}

func TestAnswerRequiresExactMatch(t *testing.T) {
	m := NewManager(Options{Perm: identityPerm})
	if _, err := m.StartDrill(1, 1, []store.Card{{Term: "gatto", Definition: "cat"}}, 1); err != nil {
		t.Fatalf("StartDrill returned error: %v", err)
	}
	res, _ := m.Answer(1, "cats")
	if res.Correct {
		t.Fatal("partial matches must be wrong")
	}
}

func TestStartDrillRejectsWhileActive(t *testing.T) {
	m := NewManager(Options{Perm: identityPerm})
	if _, err := m.StartDrill(1, 1, testCards, 2); err != nil {
		t.Fatalf("StartDrill returned error: %v", err)
	}
	if _, err := m.Answer(1, "cat"); err != nil {
		t.Fatalf("Answer returned error: %v", err)
	}

	if _, err := m.StartDrill(1, 1, testCards, 2); !errors.Is(err, ErrDrillActive) {
		t.Fatalf("expected ErrDrillActive, got %v", err)
	}
	prompt, ok := m.Current(1)
	if !ok || prompt.Position != 2 || prompt.Term != "cane" {
		t.Fatalf("existing progress must be kept, got %+v", prompt)
	}
}

func TestStartDrillValidation(t *testing.T) {
	m := NewManager(Options{})
	if _, err := m.StartDrill(1, 1, nil, 10); !errors.Is(err, ErrNoFlashcards) {
		t.Fatalf("expected ErrNoFlashcards, got %v", err)
	}
	if _, err := m.StartDrill(1, 1, testCards, 0); !errors.Is(err, ErrInvalidCount) {
		t.Fatalf("expected ErrInvalidCount, got %v", err)
	}
	if m.DrillActive(1) {
		t.Fatal("failed starts must not create a drill")
	}
}

func TestStartDrillSamplesWithoutReplacement(t *testing.T) {
	cards := make([]store.Card, 20)
	for i := range cards {
		cards[i] = store.Card{Term: string(rune('a' + i)), Definition: "x"}
	}
	m := NewManager(Options{})
	prompt, err := m.StartDrill(1, 1, cards, 5)
	if err != nil {
		t.Fatalf("StartDrill returned error: %v", err)
	}
	if prompt.Total != 5 {
		t.Fatalf("expected 5 cards, got %d", prompt.Total)
	}

	m.mu.Lock()
	selected := m.drills[1].cards
	m.mu.Unlock()
	seen := make(map[string]bool)
	for _, card := range selected {
		if seen[card.Term] {
			t.Fatalf("card %q selected twice", card.Term)
		}
		seen[card.Term] = true
	}
}

func TestStartDrillCapsCountAtDeckSize(t *testing.T) {
	m := NewManager(Options{})
	prompt, err := m.StartDrill(1, 1, testCards, 10)
	if err != nil {
		t.Fatalf("StartDrill returned error: %v", err)
	}
	if prompt.Total != 2 {
		t.Fatalf("expected 2 cards, got %d", prompt.Total)
	}
}

func TestCancelDrillIsIdempotent(t *testing.T) {
	m := NewManager(Options{})
	if m.CancelDrill(1) {
		t.Fatal("expected no drill to cancel")
	}
	if _, err := m.StartDrill(1, 1, testCards, 1); err != nil {
		t.Fatalf("StartDrill returned error: %v", err)
	}
	if !m.CancelDrill(1) {
		t.Fatal("expected drill to be canceled")
	}
	if m.CancelDrill(1) {
		t.Fatal("second cancel must report no drill")
	}
	if _, err := m.Answer(1, "cat"); !errors.Is(err, ErrNoDrill) {
		t.Fatalf("expected ErrNoDrill, got %v", err)
	}
}

func TestForgetClearsBothStates(t *testing.T) {
	m := NewManager(Options{})
	m.BeginConfirmation(1)
	if _, err := m.StartDrill(1, 1, testCards, 1); err != nil {
		t.Fatalf("StartDrill returned error: %v", err)
	}
	m.Forget(1)
	if m.AwaitingConfirmation(1) || m.DrillActive(1) {
		t.Fatal("expected all transient state to be dropped")
	}
}

func TestSweepInactiveExpiresIdleDrills(t *testing.T) {
	clock := &testClock{t: time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC)}
	m := NewManager(Options{Now: clock.Now, Perm: identityPerm, IdleTimeout: 15 * time.Minute})
	sender := &recordingSender{}

	if _, err := m.StartDrill(1, 1, testCards, 2); err != nil {
		t.Fatalf("StartDrill returned error: %v", err)
	}
	if _, err := m.StartDrill(2, 2, testCards, 2); err != nil {
		t.Fatalf("StartDrill returned error: %v", err)
	}
	clock.Advance(10 * time.Minute)
	if _, err := m.Answer(1, "cat"); err != nil {
		t.Fatalf("Answer returned error: %v", err)
	}
	clock.Advance(6 * time.Minute)

	m.SweepInactive(context.Background(), sender)

	if !m.DrillActive(1) {
		t.Fatal("recently active drill must survive the sweep")
	}
	if m.DrillActive(2) {
		t.Fatal("idle drill must be expired")
	}
	msgs := sender.messages[2]
	if len(msgs) != 1 || !strings.Contains(msgs[0], "timed out after 0 of 2 cards") {
		t.Fatalf("unexpected timeout messages %v", msgs)
	}
	if len(sender.messages[1]) != 0 {
		t.Fatalf("active user must not be notified")
	}
}

func TestSweepDisabledWithoutTimeout(t *testing.T) {
	clock := &testClock{t: time.Now()}
	m := NewManager(Options{Now: clock.Now})
	if _, err := m.StartDrill(1, 1, testCards, 1); err != nil {
		t.Fatalf("StartDrill returned error: %v", err)
	}
	clock.Advance(24 * time.Hour)
	m.SweepInactive(context.Background(), &recordingSender{})
	if !m.DrillActive(1) {
		t.Fatal("drills must not expire when the timeout is disabled")
	}
}

func TestSweepNotifiesTheChatWhereTheDrillStarted(t *testing.T) {
	clock := &testClock{t: time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC)}
	m := NewManager(Options{Now: clock.Now, Perm: identityPerm, IdleTimeout: time.Minute})
	sender := &recordingSender{}

	const groupChatID = -100123
	if _, err := m.StartDrill(42, groupChatID, testCards, 2); err != nil {
		t.Fatalf("StartDrill returned error: %v", err)
	}
	clock.Advance(2 * time.Minute)
	m.SweepInactive(context.Background(), sender)

	if len(sender.messages[groupChatID]) != 1 {
		t.Fatalf("expected the group chat to get the timeout notice, got %v", sender.messages)
	}
	if len(sender.messages[42]) != 0 {
		t.Fatalf("the user's private chat must not be notified, got %v", sender.messages[42])
	}
}
