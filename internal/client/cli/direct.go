package cli

import (
	"context"
	"fmt"
	"strings"

	"cipherchat/internal/api"
)

// peers searches profiles by username or display name.
func (a *App) peers(ctx context.Context, query string) error {
	found, err := a.api.SearchProfiles(ctx, query)
	if err != nil {
		fmt.Println("Search failed:", err)
		return err
	}
	if len(found) == 0 {
		fmt.Println("No users found.")
		return nil
	}
	for _, p := range found {
		keyState := "key published"
		if p.PublicKey == "" {
			keyState = "no key"
		}
		fmt.Printf("  %s  %s (%s, %s)\n", p.ID, p.UserName, p.DisplayName, keyState)
	}
	return nil
}

// findProfile resolves a username to a profile via search.
func (a *App) findProfile(ctx context.Context, userName string) (*api.Profile, error) {
	found, err := a.api.SearchProfiles(ctx, userName)
	if err != nil {
		return nil, err
	}
	for _, p := range found {
		if strings.EqualFold(p.UserName, userName) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("user %q not found", userName)
}

// open selects a direct conversation with the named user.
func (a *App) open(ctx context.Context, userName string) error {
	peer, err := a.findProfile(ctx, userName)
	if err != nil {
		fmt.Println(err)
		return err
	}

	if err := a.direct.SelectPeer(ctx, peer); err != nil {
		fmt.Println("Could not open conversation:", err)
		return err
	}
	if a.direct.State() != "ready" {
		fmt.Println("Conversation locked: no private key available on this device.")
		return nil
	}

	fmt.Printf("Conversation with %s (%d messages). Use 'send <text>' and 'read'.\n",
		peer.UserName, len(a.direct.Messages()))
	return nil
}

// send posts an encrypted text message to the open conversation.
func (a *App) send(ctx context.Context, text string) error {
	if err := a.direct.Send(ctx, text, api.ContentTypeText, ""); err != nil {
		fmt.Println("Send failed:", err)
		return err
	}
	return nil
}

// read prints the open conversation and marks incoming messages as read.
func (a *App) read(ctx context.Context) error {
	peer := a.direct.Peer()
	if peer == nil {
		fmt.Println("No conversation open. Use 'open <username>'.")
		return nil
	}

	for _, m := range a.direct.Messages() {
		who := a.userName
		if m.SenderID == peer.ID {
			who = peer.UserName
		}
		fmt.Printf("[%s] %s: %s\n", m.CreatedAt.Format("15:04"), who, m.Content)

		if m.SenderID == peer.ID && !m.Read {
			if err := a.direct.MarkAsRead(ctx, m.ID); err == nil {
				a.unread.Reset()
			}
		}
	}
	return nil
}
