package chat

// Conversation roles understood by the service.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single conversational turn. Order within a slice is
// semantically significant: the service reads it top-to-bottom as dialogue
// history. Messages are never mutated after being sent.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// System builds a system-role message.
func System(content string) Message { return Message{Role: RoleSystem, Content: content} }

// User builds a user-role message.
func User(content string) Message { return Message{Role: RoleUser, Content: content} }

// Assistant builds an assistant-role message.
func Assistant(content string) Message { return Message{Role: RoleAssistant, Content: content} }
