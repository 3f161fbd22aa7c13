package agent

import (
	"encoding/json"
	"fmt"

	"github.com/kitbuilder587/agentbots/internal/llm"
)

const DefaultMaxMessages = 20

// Memory is the rolling chat history of one user with one bot.
// Only user and assistant turns are kept; the system prompt is rebuilt each call.
type Memory struct {
	maxMessages int
	history     []llm.Message
}

func NewMemory(maxMessages int) *Memory {
	if maxMessages <= 0 {
		maxMessages = DefaultMaxMessages
	}
	return &Memory{maxMessages: maxMessages}
}

func (m *Memory) Add(role, content string) {
	m.history = append(m.history, llm.Message{Role: role, Content: content})
	if over := len(m.history) - m.maxMessages; over > 0 {
		m.history = append([]llm.Message(nil), m.history[over:]...)
	}
}

func (m *Memory) Messages() []llm.Message {
	return append([]llm.Message(nil), m.history...)
}

func (m *Memory) Len() int { return len(m.history) }

type memoryDump struct {
	MaxMessages int           `json:"max_messages"`
	History     []llm.Message `json:"history"`
}

func (m *Memory) Dump() ([]byte, error) {
	data, err := json.Marshal(memoryDump{MaxMessages: m.maxMessages, History: m.history})
	if err != nil {
		return nil, fmt.Errorf("dump memory: %w", err)
	}
	return data, nil
}

// LoadMemory restores a dump. Empty input yields an empty memory.
func LoadMemory(data []byte, maxMessages int) (*Memory, error) {
	m := NewMemory(maxMessages)
	if len(data) == 0 {
		return m, nil
	}

	var d memoryDump
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("load memory: %w", err)
	}
	for _, msg := range d.History {
		m.Add(msg.Role, msg.Content)
	}
	return m, nil
}
