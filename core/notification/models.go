package notification

import "time"

type (
	// Notification is owned by a single account; only the owner may mark it
	// read or clear it.
	Notification struct {
		ID        string    `json:"id"`
		AccountID string    `json:"userId"`
		Title     string    `json:"title"`
		Message   string    `json:"message"`
		Timestamp time.Time `json:"timestamp"` // UTC
		Read      bool      `json:"read"`
	}

	// News is an admin broadcast; creation fans out one Notification and one
	// best-effort email to every other account.
	News struct {
		ID        string    `json:"id"`
		AuthorID  string    `json:"adminId"`
		Title     string    `json:"title"`
		Content   string    `json:"content"`
		Timestamp time.Time `json:"timestamp"` // UTC
	}

	// Recipient is the minimal account view the fan-out needs.
	Recipient struct {
		ID    string
		Email string
	}
)
