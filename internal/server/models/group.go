package models

import "time"

// Member roles.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// ChatGroup is a group conversation. EncryptedGroupKey is the creator's own
// wrapped copy of the group key, stored redundantly on the group row for
// bootstrap convenience; the authoritative per-member copies live on
// GroupMember rows. No plaintext group key is ever persisted.
type ChatGroup struct {
	ID                string
	Name              string
	Description       string
	AvatarURL         string
	CreatedBy         string
	EncryptedGroupKey string
	CreatedAt         time.Time
}

// GroupMember ties a user to a group with a role and that member's personal
// wrapped copy of the group key. Every current member's copy unwraps to the
// same key material; no two copies are interchangeable.
type GroupMember struct {
	GroupID           string
	UserID            string
	Role              string
	EncryptedGroupKey string
	JoinedAt          time.Time

	// Profile join, populated by list queries.
	UserName    string
	DisplayName string
	PublicKey   string
}

// GroupMessage is one message row encrypted under the group's symmetric key
// with a fresh IV. One ciphertext serves all members.
type GroupMessage struct {
	ID               string
	GroupID          string
	SenderID         string
	EncryptedContent string
	IV               string
	ContentType      string
	FileURL          string
	FileName         string
	CreatedAt        time.Time
}
