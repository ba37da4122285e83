package assistant

import "time"

// Role tags who produced a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Status is the lifecycle state of a stored message.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusSearching  Status = "searching"
	StatusPaused     Status = "paused"
	StatusError      Status = "error"
	StatusSuccess    Status = "success"
)

// Known reports whether the status belongs to the enumerated lifecycle set.
func (s Status) Known() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusSearching, StatusPaused, StatusError, StatusSuccess:
		return true
	default:
		return false
	}
}

// Terminal reports whether the status can no longer change.
func (s Status) Terminal() bool {
	switch s {
	case StatusPaused, StatusError, StatusSuccess:
		return true
	default:
		return false
	}
}

// Message is one conversation entry inside a topic.
type Message struct {
	ID         string    `json:"message_id"`
	TopicID    string    `json:"topic_id"`
	Role       Role      `json:"role"`
	Status     Status    `json:"status"`
	Content    string    `json:"content"`
	ErrorText  string    `json:"error_text,omitempty"`
	Model      string    `json:"model,omitempty"`
	SourceLang string    `json:"source_lang"`
	TargetLang string    `json:"target_lang"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// LastAssistantMessage returns the newest assistant-role entry of an
// ordered message list, or false when none exists.
func LastAssistantMessage(messages []Message) (Message, bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleAssistant {
			return messages[i], true
		}
	}
	return Message{}, false
}
