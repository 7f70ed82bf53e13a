// Package chooser asks the operator to pick among paths.
package chooser

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"
)

// ErrNoneSelected is returned when there is nothing to choose from or the
// input ends before a choice is made.
var ErrNoneSelected = errors.New("no selection made")

// InvalidChoiceError reports input that does not name a candidate.
type InvalidChoiceError struct {
	Input string
	Max   int
}

func (e *InvalidChoiceError) Error() string {
	return fmt.Sprintf("invalid choice %q: enter a number between 1 and %d", e.Input, e.Max)
}

// Chooser picks one of candidates and returns its index. Candidates are
// ordered most recent first.
type Chooser interface {
	Choose(prompt string, candidates []string) (int, error)
}

// Latest always picks the first candidate.
type Latest struct{}

func (Latest) Choose(_ string, candidates []string) (int, error) {
	if len(candidates) == 0 {
		return -1, ErrNoneSelected
	}
	return 0, nil
}

// Prompt asks on a line-oriented terminal.
type Prompt struct {
	out io.Writer
	in  *bufio.Reader
}

// New returns a Prompt reading from in and writing to out.
func New(in io.Reader, out io.Writer) *Prompt {
	return &Prompt{out: out, in: bufio.NewReader(in)}
}

// Stdio returns a Prompt on the process's standard streams.
func Stdio() *Prompt {
	return New(os.Stdin, os.Stdout)
}

// Choose lists candidates with 1-based numbers and reads a choice. An
// empty answer picks the first candidate.
func (p *Prompt) Choose(prompt string, candidates []string) (int, error) {
	if len(candidates) == 0 {
		return -1, ErrNoneSelected
	}

	fmt.Fprintln(p.out, prompt)
	for i, c := range candidates {
		fmt.Fprintf(p.out, "  %d. %s\n", i+1, c)
	}
	fmt.Fprintf(p.out, "Enter a number, or press Enter for %q: ", candidates[0])

	line, err := p.readLine()
	if err != nil {
		return -1, err
	}
	if line == "" {
		return 0, nil
	}

	n, err := strconv.Atoi(line)
	if err != nil || n < 1 || n > len(candidates) {
		return -1, &InvalidChoiceError{Input: line, Max: len(candidates)}
	}
	return n - 1, nil
}

// ReadLine asks for a line of text. An empty answer returns def.
func (p *Prompt) ReadLine(prompt, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(p.out, "%s [%s]: ", prompt, def)
	} else {
		fmt.Fprintf(p.out, "%s: ", prompt)
	}
	line, err := p.readLine()
	if errors.Is(err, ErrNoneSelected) {
		return def, nil
	}
	if err != nil {
		return "", err
	}
	if line == "" {
		return def, nil
	}
	return line, nil
}

// Confirm asks a yes/no question. Anything but y or yes is a no.
func (p *Prompt) Confirm(prompt string) (bool, error) {
	fmt.Fprint(p.out, prompt+" [y/N]: ")
	line, err := p.readLine()
	if errors.Is(err, ErrNoneSelected) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	answer := strings.ToLower(line)
	return answer == "y" || answer == "yes", nil
}

func (p *Prompt) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) {
			if line == "" {
				return "", ErrNoneSelected
			}
			return strings.TrimSpace(line), nil
		}
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// IsInteractive reports whether f is a terminal.
func IsInteractive(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
