package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
)

// MockToolCall describes one tool invocation a scripted response asks for.
type MockToolCall struct {
	ID   string
	Name string
	Args map[string]any
}

// MockMessenger provides scripted Anthropic API responses for testing the
// answer generation loop without network access. Responses are consumed in
// queue order; every request is recorded for inspection.
//
// Thread-safe for concurrent use.
type MockMessenger struct {
	mu    sync.Mutex
	queue []mockReply
	calls []anthropic.MessageNewParams
}

type mockReply struct {
	msg *anthropic.Message
	err error
}

// NewMockMessenger creates an empty mock. Queue responses before use; a
// request with nothing queued fails the call.
func NewMockMessenger() *MockMessenger {
	return &MockMessenger{}
}

// QueueText scripts a plain text response ending the turn.
func (m *MockMessenger) QueueText(text string) {
	m.queueMsg(TextMessage(text))
}

// QueueToolUse scripts a response requesting the given tool calls.
func (m *MockMessenger) QueueToolUse(calls ...MockToolCall) {
	m.queueMsg(ToolUseMessage(calls...))
}

// QueueMessage scripts a verbatim response.
func (m *MockMessenger) QueueMessage(msg *anthropic.Message) {
	m.queueMsg(msg)
}

// QueueError scripts a failed API call.
func (m *MockMessenger) QueueError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, mockReply{err: err})
}

func (m *MockMessenger) queueMsg(msg *anthropic.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, mockReply{msg: msg})
}

// CreateMessage pops the next scripted reply and records the request.
func (m *MockMessenger) CreateMessage(_ context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, params)
	if len(m.queue) == 0 {
		return nil, fmt.Errorf("mock messenger: no scripted response for call %d", len(m.calls))
	}
	reply := m.queue[0]
	m.queue = m.queue[1:]
	if reply.err != nil {
		return nil, reply.err
	}
	return reply.msg, nil
}

// Calls returns a copy of every recorded request in order.
func (m *MockMessenger) Calls() []anthropic.MessageNewParams {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]anthropic.MessageNewParams, len(m.calls))
	copy(cp, m.calls)
	return cp
}

// TextMessage builds an assistant message carrying one text block.
func TextMessage(text string) *anthropic.Message {
	return &anthropic.Message{
		StopReason: "end_turn",
		Content: []anthropic.ContentBlockUnion{
			{Type: "text", Text: text},
		},
	}
}

// ToolUseMessage builds an assistant message requesting tool calls. The
// stop reason is "tool_use", matching what the API returns when the model
// wants tools run.
func ToolUseMessage(calls ...MockToolCall) *anthropic.Message {
	blocks := make([]anthropic.ContentBlockUnion, 0, len(calls))
	for _, c := range calls {
		args := c.Args
		if args == nil {
			args = map[string]any{}
		}
		input, err := json.Marshal(args)
		if err != nil {
			panic(fmt.Sprintf("marshaling mock tool args: %v", err))
		}
		blocks = append(blocks, anthropic.ContentBlockUnion{
			Type:  "tool_use",
			ID:    c.ID,
			Name:  c.Name,
			Input: input,
		})
	}
	return &anthropic.Message{
		StopReason: "tool_use",
		Content:    blocks,
	}
}
