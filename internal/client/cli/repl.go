package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for shell output.
var printlnFn = fmt.Println

// execIface is the command surface the shell dispatches to. App satisfies
// it; tests use a stub.
type execIface interface {
	isLoggedIn() bool
	// touch records user activity on the session.
	touch()

	Enroll(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Account(ctx context.Context, args []string) error
	History(ctx context.Context, args []string) error
	Transaction(ctx context.Context, args []string) error
	Cards(ctx context.Context, args []string) error
	Card(ctx context.Context, args []string) error
	Reveal(ctx context.Context, args []string) error
	Toggle(ctx context.Context, args []string) error
	Refresh(ctx context.Context) error
	Status(ctx context.Context) error
	Invalidate(ctx context.Context) error
	Background(ctx context.Context) error
	Foreground(ctx context.Context) error
	Reset(ctx context.Context) error
}

const (
	helpSignedOut = "Available commands: enroll, login, status, reset, exit"
	helpSignedIn  = "Available commands: account [-f], tx [page] [-f], txn <id>, cards [-f], card <id>, " +
		"reveal <id>, toggle <id> on|off, refresh, status, invalidate, enroll, bg, fg, logout, exit"
)

// runREPL reads one command per line and dispatches it until EOF, "exit" or
// the end of ctx. Handlers report their own errors.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		if ctx.Err() != nil {
			return
		}
		printlnFn(fmt.Sprintf("sb %s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]
		if cmd != "bg" && cmd != "fg" {
			a.touch()
		}

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn(helpSignedIn)
			} else {
				printlnFn(helpSignedOut)
			}

		case "enroll":
			_ = a.Enroll(ctx)

		case "login":
			_ = a.Login(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "account", "a":
			_ = a.Account(ctx, args)

		case "tx", "history":
			_ = a.History(ctx, args)

		case "txn":
			_ = a.Transaction(ctx, args)

		case "cards":
			_ = a.Cards(ctx, args)

		case "card":
			_ = a.Card(ctx, args)

		case "reveal":
			_ = a.Reveal(ctx, args)

		case "toggle":
			_ = a.Toggle(ctx, args)

		case "refresh", "sync":
			_ = a.Refresh(ctx)

		case "status":
			_ = a.Status(ctx)

		case "invalidate":
			_ = a.Invalidate(ctx)

		case "bg":
			_ = a.Background(ctx)

		case "fg":
			_ = a.Foreground(ctx)

		case "reset":
			_ = a.Reset(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
