package models

import "time"

// Profile is a registered user. PublicKey is the published base64(PKIX DER)
// encryption key; anyone may read it, only the owner writes it. The server
// never holds private keys.
type Profile struct {
	ID           string
	UserName     string
	DisplayName  string
	PublicKey    string
	PasswordHash []byte
	Salt         []byte
	CreatedAt    time.Time
}
