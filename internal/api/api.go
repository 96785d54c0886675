// Package api defines the JSON types exchanged between the cipherchat server
// and its clients, both over REST endpoints and the websocket realtime
// channel. Everything here is ciphertext-safe: no field ever carries
// plaintext message content or unwrapped key material.
package api

import "time"

// Message content types.
const (
	ContentTypeText     = "text"
	ContentTypeFile     = "file"
	ContentTypeDocument = "document"
)

// Profile is the public view of a user. PublicKey is the published
// base64(PKIX DER) encryption key.
type Profile struct {
	ID          string    `json:"id"`
	UserName    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	PublicKey   string    `json:"public_key"`
	CreatedAt   time.Time `json:"created_at"`
}

type DirectMessage struct {
	ID               string     `json:"id"`
	SenderID         string     `json:"sender_id"`
	RecipientID      string     `json:"recipient_id"`
	EncryptedContent string     `json:"encrypted_content"`
	IV               string     `json:"iv"`
	ContentType      string     `json:"content_type"`
	FileURL          string     `json:"file_url,omitempty"`
	ReadAt           *time.Time `json:"read_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

type ChatGroup struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Description       string    `json:"description,omitempty"`
	AvatarURL         string    `json:"avatar_url,omitempty"`
	CreatedBy         string    `json:"created_by"`
	EncryptedGroupKey string    `json:"encrypted_group_key"`
	CreatedAt         time.Time `json:"created_at"`
}

type GroupMember struct {
	GroupID           string    `json:"group_id"`
	UserID            string    `json:"user_id"`
	Role              string    `json:"role"`
	EncryptedGroupKey string    `json:"encrypted_group_key"`
	JoinedAt          time.Time `json:"joined_at"`
	UserName          string    `json:"username,omitempty"`
	DisplayName       string    `json:"display_name,omitempty"`
	PublicKey         string    `json:"public_key,omitempty"`
}

type GroupMessage struct {
	ID               string    `json:"id"`
	GroupID          string    `json:"group_id"`
	SenderID         string    `json:"sender_id"`
	EncryptedContent string    `json:"encrypted_content"`
	IV               string    `json:"iv"`
	ContentType      string    `json:"content_type"`
	FileURL          string    `json:"file_url,omitempty"`
	FileName         string    `json:"file_name,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// Requests and responses.

type RegisterRequest struct {
	UserName    string `json:"username"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
	PublicKey   string `json:"public_key"`
}

type LoginRequest struct {
	UserName string `json:"username"`
	Password string `json:"password"`
}

type TokenResponse struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	Profile      *Profile `json:"profile,omitempty"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type SendDirectMessageRequest struct {
	RecipientID      string `json:"recipient_id"`
	EncryptedContent string `json:"encrypted_content"`
	IV               string `json:"iv"`
	ContentType      string `json:"content_type"`
	FileURL          string `json:"file_url,omitempty"`
}

type CreateGroupRequest struct {
	Name              string             `json:"name"`
	Description       string             `json:"description,omitempty"`
	AvatarURL         string             `json:"avatar_url,omitempty"`
	EncryptedGroupKey string             `json:"encrypted_group_key"`
	Members           []WrappedMemberKey `json:"members"`
}

// WrappedMemberKey carries one invitee's wrapped copy of the group key.
type WrappedMemberKey struct {
	UserID            string `json:"user_id"`
	EncryptedGroupKey string `json:"encrypted_group_key"`
}

type AddMemberRequest struct {
	UserID            string `json:"user_id"`
	EncryptedGroupKey string `json:"encrypted_group_key"`
}

type SendGroupMessageRequest struct {
	EncryptedContent string `json:"encrypted_content"`
	IV               string `json:"iv"`
	ContentType      string `json:"content_type"`
	FileURL          string `json:"file_url,omitempty"`
	FileName         string `json:"file_name,omitempty"`
}

type UnreadCountResponse struct {
	Count int `json:"count"`
}

type PresignPutResponse struct {
	StorageKey string `json:"storage_key"`
	URL        string `json:"url"`
}

type PresignGetResponse struct {
	URL string `json:"url"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
