// Package models holds the client-side, already-decrypted views of
// conversation data. Nothing in this package is ever persisted: plaintext
// exists only in memory while a conversation view is open.
package models

import "time"

// Message is a decrypted chat message, either direct or group. Content holds
// the plaintext, or the decryption placeholder when the original ciphertext
// could not be recovered.
type Message struct {
	ID          string
	SenderID    string
	Content     string
	ContentType string
	FileURL     string
	FileName    string
	Read        bool
	CreatedAt   time.Time
}

// Member is one group member joined with profile display data.
type Member struct {
	UserID      string
	UserName    string
	DisplayName string
	Role        string
	PublicKey   string
	JoinedAt    time.Time
}
