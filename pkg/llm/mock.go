package llm

import (
	"context"
	"sync"
)

// MockReply is a canned answer for Mock.
type MockReply struct {
	Text string
	Err  error
}

// Mock is a deterministic Completer for tests. It returns canned replies in
// FIFO order and records every prompt.
type Mock struct {
	mu      sync.Mutex
	replies []MockReply
	Prompts []string
}

func NewMock(replies ...MockReply) *Mock {
	return &Mock{replies: replies}
}

func (m *Mock) Complete(_ context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Prompts = append(m.Prompts, prompt)
	if len(m.replies) == 0 {
		return "", &ErrUnavailable{Err: ErrEmptyResponse}
	}
	reply := m.replies[0]
	m.replies = m.replies[1:]
	if reply.Err != nil {
		return "", reply.Err
	}
	return reply.Text, nil
}

func (m *Mock) AddReply(reply MockReply) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, reply)
}

func (m *Mock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Prompts)
}

// LastPrompt returns the most recent prompt, or "" when none was sent.
func (m *Mock) LastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Prompts) == 0 {
		return ""
	}
	return m.Prompts[len(m.Prompts)-1]
}
