package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"cipherchat/internal/api"
)

// createGroup prompts for a name and invitees, then runs the key
// distribution protocol. Invitees without a published public key are
// reported, not silently dropped.
func (a *App) createGroup(ctx context.Context) error {
	name, err := getSimpleText(a.reader, "Group name", os.Stdout)
	if err != nil {
		return err
	}
	invitees, err := getSimpleText(a.reader, "Invite users (space-separated usernames)", os.Stdout)
	if err != nil {
		return err
	}

	var memberIDs []string
	names := make(map[string]string)
	for _, userName := range strings.Fields(invitees) {
		p, err := a.findProfile(ctx, userName)
		if err != nil {
			fmt.Println(err)
			continue
		}
		memberIDs = append(memberIDs, p.ID)
		names[p.ID] = p.UserName
	}

	group, skipped, err := a.group.CreateGroup(ctx, name, "", memberIDs)
	if err != nil {
		fmt.Println("Group creation failed:", err)
		return err
	}

	fmt.Printf("Created group %q (%s)\n", group.Name, group.ID)
	if len(skipped) > 0 {
		fmt.Printf("Skipped %d invitee(s) without a published key: %s\n",
			len(skipped), strings.Join(displayNames(skipped, names), ", "))
	}
	return nil
}

// displayNames maps skipped profile IDs back to the usernames the user
// typed, falling back to the raw ID when no name is known.
func displayNames(ids []string, names map[string]string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if n, ok := names[id]; ok {
			out = append(out, n)
		} else {
			out = append(out, id)
		}
	}
	return out
}

// openGroup selects a group by name from the caller's memberships.
func (a *App) openGroup(ctx context.Context, name string) error {
	groups, err := a.api.ListGroups(ctx)
	if err != nil {
		fmt.Println("Could not list groups:", err)
		return err
	}

	for _, g := range groups {
		if strings.EqualFold(g.Name, name) {
			if err := a.group.SelectGroup(ctx, g); err != nil {
				fmt.Println("Could not open group:", err)
				return err
			}
			fmt.Printf("Group %q open: %d members, %d messages. Use 'gsend <text>'.\n",
				g.Name, len(a.group.Members()), len(a.group.Messages()))
			return nil
		}
	}

	fmt.Printf("You are not a member of a group named %q.\n", name)
	return nil
}

func (a *App) listGroups(ctx context.Context) error {
	groups, err := a.api.ListGroups(ctx)
	if err != nil {
		fmt.Println("Could not list groups:", err)
		return err
	}
	if len(groups) == 0 {
		fmt.Println("No groups.")
		return nil
	}
	for _, g := range groups {
		fmt.Printf("  %s  %s\n", g.ID, g.Name)
	}
	return nil
}

func (a *App) members(ctx context.Context) error {
	if a.group.Group() == nil {
		fmt.Println("No group open. Use 'opengroup <name>'.")
		return nil
	}
	for _, m := range a.group.Members() {
		fmt.Printf("  %s (%s, %s)\n", m.UserName, m.DisplayName, m.Role)
	}
	return nil
}

// invite wraps the open group's key for a new member.
func (a *App) invite(ctx context.Context, userName string) error {
	p, err := a.findProfile(ctx, userName)
	if err != nil {
		fmt.Println(err)
		return err
	}
	if err := a.group.AddMember(ctx, p.ID); err != nil {
		fmt.Println("Invite failed:", err)
		return err
	}
	fmt.Printf("Added %s to the group.\n", userName)
	return nil
}

func (a *App) kick(ctx context.Context, userName string) error {
	p, err := a.findProfile(ctx, userName)
	if err != nil {
		fmt.Println(err)
		return err
	}
	if err := a.group.RemoveMember(ctx, p.ID); err != nil {
		fmt.Println("Remove failed:", err)
		return err
	}
	fmt.Printf("Removed %s from the group.\n", userName)
	return nil
}

func (a *App) leave(ctx context.Context) error {
	if err := a.group.Leave(ctx); err != nil {
		fmt.Println("Leave failed:", err)
		return err
	}
	fmt.Println("Left the group.")
	return nil
}

// gsend posts an encrypted message to the open group.
func (a *App) gsend(ctx context.Context, text string) error {
	if err := a.group.Send(ctx, text, api.ContentTypeText, "", ""); err != nil {
		fmt.Println("Send failed:", err)
		return err
	}
	return nil
}

// gread prints the open group conversation.
func (a *App) gread(ctx context.Context) error {
	group := a.group.Group()
	if group == nil {
		fmt.Println("No group open. Use 'opengroup <name>'.")
		return nil
	}

	names := make(map[string]string)
	for _, m := range a.group.Members() {
		names[m.UserID] = m.UserName
	}

	for _, m := range a.group.Messages() {
		who := names[m.SenderID]
		if who == "" {
			who = m.SenderID
		}
		fmt.Printf("[%s] %s: %s\n", m.CreatedAt.Format("15:04"), who, m.Content)
	}
	return nil
}
