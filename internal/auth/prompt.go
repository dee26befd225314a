package auth

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// Provider supplies the interactive inputs a login can need. Commands
// depend on the interface so tests can substitute canned values.
type Provider interface {
	// Credentials returns the account email and password.
	Credentials(ctx context.Context) (email, password string, err error)
	// PIN returns the one-time client verification PIN.
	PIN(ctx context.Context) (string, error)
}

// Terminal prompts on stderr and reads from stdin. The password is read
// without echo when stdin is a terminal.
type Terminal struct {
	Email string // optional preset; skips the email prompt

	// Shared across prompts so piped input is not swallowed by
	// read-ahead buffering.
	in *bufio.Reader
}

func (t *Terminal) Credentials(ctx context.Context) (string, string, error) {
	email := t.Email
	if email == "" {
		var err error
		email, err = t.readLine(ctx, "Blink account email: ")
		if err != nil {
			return "", "", err
		}
	}

	password, err := t.readPassword(ctx, fmt.Sprintf("Password for %s: ", email))
	if err != nil {
		return "", "", err
	}

	return email, password, nil
}

func (t *Terminal) PIN(ctx context.Context) (string, error) {
	return t.readLine(ctx, "Verification PIN (sent by Blink): ")
}

func (t *Terminal) reader() *bufio.Reader {
	if t.in == nil {
		t.in = bufio.NewReader(os.Stdin)
	}
	return t.in
}

type lineResult struct {
	line string
	err  error
}

// readLine prompts and reads one trimmed line. The read itself cannot be
// interrupted, but a cancelled context abandons it.
func (t *Terminal) readLine(ctx context.Context, prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)

	ch := make(chan lineResult, 1)
	go func() {
		line, err := t.reader().ReadString('\n')
		ch <- lineResult{strings.TrimSpace(line), err}
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr)
		return "", ctx.Err()
	case res := <-ch:
		if res.line == "" {
			if res.err != nil {
				return "", res.err
			}
			return "", errors.New("empty input")
		}
		return res.line, nil
	}
}

func (t *Terminal) readPassword(ctx context.Context, prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return t.readLine(ctx, prompt)
	}

	fmt.Fprint(os.Stderr, prompt)

	ch := make(chan lineResult, 1)
	go func() {
		raw, err := term.ReadPassword(fd)
		ch <- lineResult{strings.TrimSpace(string(raw)), err}
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr)
		return "", ctx.Err()
	case res := <-ch:
		fmt.Fprintln(os.Stderr)
		if res.line == "" {
			if res.err != nil {
				return "", res.err
			}
			return "", errors.New("empty password")
		}
		return res.line, nil
	}
}
