package cli

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"
)

func (a *App) getStatus() string {
	identity := a.sessions.Current()
	if identity == nil {
		return ""
	}
	s := identity.UserName
	if id := a.state.CurrentNoteID(); id != "" {
		if note, ok := a.cache.Get(id); ok {
			s = s + " / " + displayTitle(note)
		}
	}
	return fmt.Sprintf("(%s)", s)
}

func (a *App) Root(ctx context.Context) {

	log.Println("Welcome to quicknotes (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Printf("qn %s> ", a.getStatus())
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

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				fmt.Println("Available commands: (l)ist, search, open, new, edit, title, preview, back, delete, draft, setkey, logout, exit")
			} else {
				fmt.Println("Available commands: register, login, exit")
			}

		case "register":
			_ = a.Register(ctx)
		case "login":
			_ = a.Login(ctx)
		case "l", "list":
			a.list(ctx)
		case "search":
			a.search(ctx, args)
		case "open":
			a.open(ctx, args)
		case "new":
			a.newNote(ctx)
		case "edit":
			a.editContent(ctx)
		case "title":
			a.editTitle(ctx)
		case "preview", "p":
			a.preview(ctx)
		case "back", "b":
			a.back(ctx)
		case "delete":
			a.deleteNote(ctx, args)
		case "draft":
			a.draft(ctx)
		case "setkey":
			a.setAPIKey(ctx)
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
