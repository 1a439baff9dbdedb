package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// chatter is the part of agentrelay.App the front-ends use.
type chatter interface {
	Chat(ctx context.Context, message string) (string, error)
}

func isTerminal(f *os.File) bool { return term.IsTerminal(int(f.Fd())) }

// chat reads one message per line from in and writes each reply to out. The
// prompt is only printed for interactive input. "exit" and "quit" end the
// session, as does EOF.
func chat(ctx context.Context, app chatter, in io.Reader, out io.Writer, interactive bool) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	prompt := func() {
		if interactive {
			fmt.Fprint(out, "> ")
		}
	}

	prompt()
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(line) {
		case "":
			prompt()
			continue
		case "exit", "quit":
			return nil
		}

		reply, err := app.Chat(ctx, line)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Fprintf(out, "error: %v\n", err)
		} else {
			fmt.Fprintln(out, reply)
		}
		prompt()
	}
	return scanner.Err()
}
