// Package terminal reads user input for the interactive commands. On a
// TTY it uses golang.org/x/term for line editing and echo-free secret
// entry; otherwise it falls back to plain line reads so piped input and
// tests work.
package terminal

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Prompter reads lines and secrets from the user
type Prompter interface {
	// ReadLine shows prompt and returns the trimmed line. io.EOF signals
	// the user closed input.
	ReadLine(prompt string) (string, error)
	// ReadSecret is ReadLine without echoing the input
	ReadSecret(prompt string) (string, error)
}

// New returns a TTY prompter when in is a terminal, a line prompter otherwise
func New(in *os.File, out io.Writer) Prompter {
	fd := int(in.Fd())
	if term.IsTerminal(fd) {
		rw := struct {
			io.Reader
			io.Writer
		}{in, out}
		return &ttyPrompter{fd: fd, t: term.NewTerminal(rw, "")}
	}
	return NewLinePrompter(in, out)
}

type ttyPrompter struct {
	fd int
	t  *term.Terminal
}

func (p *ttyPrompter) ReadLine(prompt string) (string, error) {
	var line string
	err := p.raw(func() error {
		p.t.SetPrompt(prompt)
		var err error
		line, err = p.t.ReadLine()
		return err
	})
	return strings.TrimSpace(line), err
}

func (p *ttyPrompter) ReadSecret(prompt string) (string, error) {
	var secret string
	err := p.raw(func() error {
		var err error
		secret, err = p.t.ReadPassword(prompt)
		return err
	})
	return strings.TrimSpace(secret), err
}

func (p *ttyPrompter) raw(read func() error) error {
	oldState, err := term.MakeRaw(p.fd)
	if err != nil {
		return fmt.Errorf("failed to enter raw mode: %w", err)
	}
	if width, height, err := term.GetSize(p.fd); err == nil {
		_ = p.t.SetSize(width, height)
	}

	readErr := read()
	if err := term.Restore(p.fd, oldState); err != nil && readErr == nil {
		return fmt.Errorf("failed to restore terminal: %w", err)
	}
	return readErr
}

// LinePrompter reads newline-terminated input without terminal control
type LinePrompter struct {
	r *bufio.Reader
	w io.Writer
}

// NewLinePrompter creates a prompter over plain streams
func NewLinePrompter(r io.Reader, w io.Writer) *LinePrompter {
	return &LinePrompter{r: bufio.NewReader(r), w: w}
}

func (p *LinePrompter) ReadLine(prompt string) (string, error) {
	fmt.Fprint(p.w, prompt)
	line, err := p.r.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (p *LinePrompter) ReadSecret(prompt string) (string, error) {
	secret, err := p.ReadLine(prompt)
	if err == nil {
		fmt.Fprintln(p.w)
	}
	return secret, err
}
