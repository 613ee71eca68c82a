package security

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Prompter asks the user a yes/no question.
type Prompter interface {
	Confirm(ctx context.Context, question string) (bool, error)
}

// TerminalPrompter reads y/n answers from the command's input stream.
// When that stream is a real file that is not a terminal, for example
// a pipe in a render farm job, it refuses instead of blocking on a
// read nobody will answer.
type TerminalPrompter struct {
	in  io.Reader
	out io.Writer
}

func NewTerminalPrompter(in io.Reader, out io.Writer) *TerminalPrompter {
	return &TerminalPrompter{in: in, out: out}
}

func (p *TerminalPrompter) Confirm(_ context.Context, question string) (bool, error) {
	if f, ok := p.in.(*os.File); ok && !term.IsTerminal(int(f.Fd())) {
		return false, errors.New("standard input is not a terminal")
	}
	if _, err := fmt.Fprintf(p.out, "%s [y/N]: ", question); err != nil {
		return false, fmt.Errorf("writing prompt: %w", err)
	}
	line, err := bufio.NewReader(p.in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("reading answer: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
