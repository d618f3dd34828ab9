package chat

import "sync"

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Greeting opens every transcript. It is shown but never sent upstream.
const Greeting = "Hi! I'm **GrantAI**, your AI-powered assistant for cybersecurity grants and hackathons. I can help you:\n\n" +
	"• Find the best funding opportunities\n" +
	"• Check eligibility requirements\n" +
	"• Track upcoming deadlines\n" +
	"• Suggest grants matching your project\n\n" +
	"What would you like to explore today?"

// FallbackReply replaces a failed exchange.
const FallbackReply = "Sorry, I encountered an error. Please try again."

var QuickPrompts = []string{
	"Find grants for AI cybersecurity startups",
	"What hackathons are happening in 2026?",
	"Suggest funding for student projects",
	"Compare NVIDIA programs vs Google grants",
}

// Transcript is the visible conversation. It is safe for concurrent use.
type Transcript struct {
	mu         sync.Mutex
	messages   []Message
	inProgress bool
}

func NewTranscript() *Transcript {
	return &Transcript{messages: []Message{{Role: RoleAssistant, Content: Greeting}}}
}

func (t *Transcript) AppendUser(content string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inProgress = false
	t.messages = append(t.messages, Message{Role: RoleUser, Content: content})
}

// ApplyAssistant sets the in-progress assistant turn to content, starting
// a new turn when the last message is not one.
func (t *Transcript) ApplyAssistant(content string) Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	last := len(t.messages) - 1
	if t.inProgress && last >= 0 && t.messages[last].Role == RoleAssistant {
		t.messages[last].Content = content
		return t.messages[last]
	}
	t.inProgress = true
	msg := Message{Role: RoleAssistant, Content: content}
	t.messages = append(t.messages, msg)
	return msg
}

// AppendAssistant adds a complete assistant turn.
func (t *Transcript) AppendAssistant(content string) Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inProgress = false
	msg := Message{Role: RoleAssistant, Content: content}
	t.messages = append(t.messages, msg)
	return msg
}

// Finish closes the in-progress assistant turn.
func (t *Transcript) Finish() {
	t.mu.Lock()
	t.inProgress = false
	t.mu.Unlock()
}

func (t *Transcript) Messages() []Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Message(nil), t.messages...)
}

// Outbound returns the messages sent upstream: everything but the greeting.
func (t *Transcript) Outbound() []Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Message, 0, len(t.messages))
	for i, m := range t.messages {
		if i == 0 && m.Role == RoleAssistant {
			continue
		}
		out = append(out, m)
	}
	return out
}
