package models

import "time"

// Content types shared by direct and group messages.
const (
	ContentTypeText     = "text"
	ContentTypeFile     = "file"
	ContentTypeDocument = "document"
)

// DirectMessage is one 1:1 message row. EncryptedContent is the opaque
// "ciphertext|wrapped-key" payload produced by the client; the server stores
// it untouched. ReadAt is nil until the recipient marks the message read;
// rows are never edited or soft-deleted.
type DirectMessage struct {
	ID               string
	SenderID         string
	RecipientID      string
	EncryptedContent string
	IV               string
	ContentType      string
	FileURL          string
	ReadAt           *time.Time
	CreatedAt        time.Time
}
