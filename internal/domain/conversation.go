package domain

import (
	"fmt"
	"time"
)

// Conversation is a transcript owned by a project. Ingesting one flattens
// its messages into canonical text.
type Conversation struct {
	ID        string
	ProjectID string
	Title     string
	CreatedAt time.Time
}

// ConversationMessage is a single turn in a conversation
type ConversationMessage struct {
	ID             string
	ConversationID string
	Role           string
	Content        string
	CreatedAt      time.Time
}

// ValidateConversation validates a Conversation instance
func ValidateConversation(c *Conversation) error {
	if c == nil {
		return fmt.Errorf("conversation cannot be nil")
	}

	if c.ID == "" {
		return fmt.Errorf("conversation ID is required")
	}

	if c.ProjectID == "" {
		return fmt.Errorf("conversation ProjectID is required")
	}

	return nil
}
