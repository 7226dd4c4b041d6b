package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Signup(ctx context.Context) error
	Login(ctx context.Context) error
	Reissue(ctx context.Context) error
	Logout(ctx context.Context) error
	Ping(ctx context.Context) error
}

// runREPL starts a simple read-eval-print loop for the authkeeper CLI.
//
// It reads a line from reader, parses the first token as the command, and
// dispatches to methods on 'a'. The loop exits on EOF or when the user
// types "exit" or "quit".
//
//	Not logged in:
//	  - help           - show available commands
//	  - signup         - create an account
//	  - login          - authenticate
//	  - ping           - check the server
//	  - exit | quit    - leave the program
//
//	Logged in:
//	  - help           - show available commands
//	  - reissue        - get a new token pair
//	  - logout         - revoke the session
//	  - ping           - check the server
//	  - exit | quit    - leave the program
//
// Command errors are printed and the loop carries on.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		prompt := "ak> "
		if s := statusFn(); s != "" {
			prompt = fmt.Sprintf("ak (%s)> ", s)
		}
		printlnFn(prompt)

		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]

		var cmdErr error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: reissue, logout, ping, exit")
			} else {
				printlnFn("Available commands: signup, login, ping, exit")
			}

		case "signup", "register":
			cmdErr = a.Signup(ctx)

		case "login":
			cmdErr = a.Login(ctx)

		case "reissue":
			cmdErr = a.Reissue(ctx)

		case "logout":
			cmdErr = a.Logout(ctx)

		case "ping":
			cmdErr = a.Ping(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if cmdErr != nil {
			printlnFn("Error:", cmdErr)
		}
	}
}
