package ux

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Prompter is the blocking operator-input surface. The pipeline only ever
// needs free-text answers and yes/no decisions, and takes this as an
// interface so it can run without a live terminal in tests.
type Prompter interface {
	Ask(question string) (string, error)
	Confirm(question string) (bool, error)
}

// Console writes styled output and reads operator input from a terminal.
type Console struct {
	in  *bufio.Reader
	out io.Writer
}

// NewConsole creates a console over the given reader/writer pair.
func NewConsole(in io.Reader, out io.Writer) *Console {
	return &Console{in: bufio.NewReader(in), out: out}
}

// Ask prints a styled question with a skip hint and reads one line.
func (c *Console) Ask(question string) (string, error) {
	fmt.Fprint(c.out, QuestionStyle.Render(question))
	fmt.Fprint(c.out, HintStyle.Render(" (press Enter to skip): "))
	line, err := c.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Confirm asks a yes/no question; anything but y/yes is no.
func (c *Console) Confirm(question string) (bool, error) {
	fmt.Fprint(c.out, QuestionStyle.Render(question))
	fmt.Fprint(c.out, HintStyle.Render(" (y/n): "))
	line, err := c.in.ReadString('\n')
	if err != nil && line == "" {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

// Titlef prints a bold section heading.
func (c *Console) Titlef(format string, args ...interface{}) {
	fmt.Fprintln(c.out, TitleStyle.Render(fmt.Sprintf(format, args...)))
}

// Successf prints a success line.
func (c *Console) Successf(format string, args ...interface{}) {
	fmt.Fprintln(c.out, SuccessStyle.Render(fmt.Sprintf(format, args...)))
}

// Warnf prints a warning line.
func (c *Console) Warnf(format string, args ...interface{}) {
	fmt.Fprintln(c.out, WarnStyle.Render(fmt.Sprintf(format, args...)))
}

// Errorf prints an error line.
func (c *Console) Errorf(format string, args ...interface{}) {
	fmt.Fprintln(c.out, ErrorStyle.Render(fmt.Sprintf(format, args...)))
}

// Fieldf prints a labeled field value, label bold and value italic.
func (c *Console) Fieldf(label, format string, args ...interface{}) {
	fmt.Fprintln(c.out, LabelStyle.Render(label+": ")+ValueStyle.Render(fmt.Sprintf(format, args...)))
}

// Plainf prints an unstyled line.
func (c *Console) Plainf(format string, args ...interface{}) {
	fmt.Fprintf(c.out, format+"\n", args...)
}
