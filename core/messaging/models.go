package messaging

import "time"

type (
	// Message is a conversation root between two accounts. The body is
	// append-only; only the replies list grows.
	Message struct {
		ID          string    `json:"id"`
		SenderID    string    `json:"senderId"`
		RecipientID string    `json:"recipientId"`
		Category    string    `json:"type"`
		Body        string    `json:"message"`
		Timestamp   time.Time `json:"timestamp"` // UTC
		Replies     []Reply   `json:"replies"`
	}

	// Reply is appended to its parent Message in arrival order.
	Reply struct {
		ID        string    `json:"id"`
		MessageID string    `json:"messageId"`
		SenderID  string    `json:"senderId"`
		Body      string    `json:"message"`
		Timestamp time.Time `json:"timestamp"` // UTC
	}
)
