package cli

import (
	"context"
	"fmt"
	"os"

	"cipherchat/internal/common"
	"cipherchat/internal/cryptox"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register creates an account: it generates a fresh key pair, publishes the
// public half with the profile, and seals the private half into the local
// keystore under a separate passphrase. The account password never protects
// the key material.
func (a *App) Register(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter username", os.Stdout)
	if err != nil {
		return err
	}
	displayName, err := getSimpleText(a.reader, "Enter display name", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout, "Enter account password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	passphrase, err := getPassword(os.Stdout, "Enter local key passphrase")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(passphrase)

	pair, err := cryptox.GenerateKeyPair()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pair.PrivateKey)

	profile, err := a.api.Register(ctx, userName, displayName, string(password), pair.PublicKey)
	if err != nil {
		fmt.Println("Registration failed:", err)
		return err
	}

	if err := a.keys.Put(ctx, profile.ID, pair.PrivateKey, passphrase); err != nil {
		fmt.Println("Warning: private key could not be stored locally:", err)
		return err
	}

	fmt.Println("Registered. You can now log in.")
	return nil
}

// Login authenticates against the backend and unlocks the local keystore for
// the session. A missing local key is not fatal: conversations stay locked
// until a key is available, which mirrors using a new device.
func (a *App) Login(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter username", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout, "Enter account password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	profile, err := a.api.Login(ctx, userName, string(password))
	if err != nil {
		fmt.Println("Login failed:", err)
		return err
	}

	passphrase, err := getPassword(os.Stdout, "Enter local key passphrase")
	if err != nil {
		return err
	}

	a.userID = profile.ID
	a.userName = profile.UserName
	a.passphrase = passphrase

	if err := a.startSession(ctx); err != nil {
		fmt.Println("Realtime connection failed:", err)
		a.teardownSession()
		return err
	}

	fmt.Printf("Logged in as %s. Unread messages: %d\n", a.userName, a.unread.Count())
	return nil
}

// Logout tears the session down, wiping the passphrase and any decrypted
// conversation state.
func (a *App) Logout(ctx context.Context) error {
	a.teardownSession()
	fmt.Println("Logged out.")
	return nil
}
