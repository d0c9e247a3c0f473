package app

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Prompter asks the operator questions on the console
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPrompter creates a prompter reading answers from in and writing questions to out
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

// Ask prints question and returns the trimmed answer line
func (p *Prompter) Ask(question string) (string, error) {
	fmt.Fprint(p.out, question)
	line, err := p.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// AskUntil repeats question until validate accepts the answer. The validation
// error is shown before asking again. Input ending returns io.EOF.
func (p *Prompter) AskUntil(question string, validate func(string) error) (string, error) {
	for {
		answer, err := p.Ask(question)
		if err != nil {
			return "", err
		}
		if verr := validate(answer); verr != nil {
			fmt.Fprintf(p.out, "Invalid input: %v\n", verr)
			continue
		}
		return answer, nil
	}
}
