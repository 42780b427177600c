package ports

import (
	"context"
	"errors"
)

// Message roles understood by the generator contract.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one conversational turn handed to the generator.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// UserMessage builds the single user-role turn the canonical pipeline sends.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// Reply is the generator's output for one exchange.
type Reply struct {
	Text string `json:"text"`
}

// Generator is the agent facade: given conversational content, it returns
// generated text or fails. Implementations may consult tools internally;
// callers see only the final text.
type Generator interface {
	Generate(ctx context.Context, messages []Message) (Reply, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, messages []Message) (Reply, error)

func (f GeneratorFunc) Generate(ctx context.Context, messages []Message) (Reply, error) {
	return f(ctx, messages)
}

// ErrUnconfigured signals that the generator cannot be constructed because
// its credential is absent or still the placeholder value. Steps match it
// with errors.Is and substitute the canned answer instead of calling out.
var ErrUnconfigured = errors.New("generator not configured")
