package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
)

func (a *App) getStatus() string {
	s := ""
	if a.userName != "" {
		s = a.userName
		if a.unread != nil {
			if n := a.unread.Count(); n > 0 {
				s = fmt.Sprintf("%s, %d unread", s, n)
			}
		}
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

func (a *App) Root(ctx context.Context) {

	fmt.Println("Welcome to cipherchat CLI (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Printf("cc %s> ", a.getStatus())
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		cmd := parts[0]
		args := parts[1:]

		if !a.isLoggedIn() {
			switch cmd {
			case "help":
				fmt.Println("Available commands: register, login, exit")
			case "register":
				_ = a.Register(ctx)
			case "login":
				_ = a.Login(ctx)
			case "exit", "quit":
				fmt.Println("Bye!")
				return
			default:
				fmt.Println("Unknown command:", cmd)
			}
			continue
		}

		switch cmd {
		case "help":
			fmt.Println("Available commands: peers <query>, open <user>, send <text>, read,")
			fmt.Println("  groups, creategroup, opengroup <name>, gsend <text>, gread, members,")
			fmt.Println("  invite <user>, kick <user>, leave, sendfile <path>, getfile <key>,")
			fmt.Println("  logout, exit")
		case "peers":
			if len(args) == 0 {
				fmt.Println("Usage: peers <query>")
				continue
			}
			_ = a.peers(ctx, strings.Join(args, " "))
		case "open":
			if len(args) != 1 {
				fmt.Println("Usage: open <username>")
				continue
			}
			_ = a.open(ctx, args[0])
		case "send":
			if len(args) == 0 {
				fmt.Println("Usage: send <text>")
				continue
			}
			_ = a.send(ctx, strings.Join(args, " "))
		case "read":
			_ = a.read(ctx)
		case "groups":
			_ = a.listGroups(ctx)
		case "creategroup":
			_ = a.createGroup(ctx)
		case "opengroup":
			if len(args) == 0 {
				fmt.Println("Usage: opengroup <name>")
				continue
			}
			_ = a.openGroup(ctx, strings.Join(args, " "))
		case "gsend":
			if len(args) == 0 {
				fmt.Println("Usage: gsend <text>")
				continue
			}
			_ = a.gsend(ctx, strings.Join(args, " "))
		case "gread":
			_ = a.gread(ctx)
		case "members":
			_ = a.members(ctx)
		case "invite":
			if len(args) != 1 {
				fmt.Println("Usage: invite <username>")
				continue
			}
			_ = a.invite(ctx, args[0])
		case "kick":
			if len(args) != 1 {
				fmt.Println("Usage: kick <username>")
				continue
			}
			_ = a.kick(ctx, args[0])
		case "leave":
			_ = a.leave(ctx)
		case "sendfile":
			if len(args) != 1 {
				fmt.Println("Usage: sendfile <path>")
				continue
			}
			_ = a.sendFile(ctx, args[0])
		case "getfile":
			if len(args) != 1 {
				fmt.Println("Usage: getfile <storage key>")
				continue
			}
			_ = a.getFile(ctx, args[0])
		case "logout":
			_ = a.Logout(ctx)
		case "exit", "quit":
			fmt.Println("Bye!")
			return
		default:
			fmt.Println("Unknown command:", cmd)
		}
	}
}
