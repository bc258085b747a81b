package chat

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/chzyer/readline"
)

// LineReader reads one line of user input after showing prompt. It returns
// io.EOF when there is no more input.
type LineReader interface {
	ReadLine(prompt string) (string, error)
}

// ScannerReader is a LineReader over any io.Reader. It is used when stdin
// is not a terminal.
type ScannerReader struct {
	scanner *bufio.Scanner
	out     io.Writer
}

// NewScannerReader reads lines from in and writes prompts to out.
func NewScannerReader(in io.Reader, out io.Writer) *ScannerReader {
	return &ScannerReader{
		scanner: bufio.NewScanner(in),
		out:     out,
	}
}

func (r *ScannerReader) ReadLine(prompt string) (string, error) {
	fmt.Fprint(r.out, prompt)

	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return "", fmt.Errorf("reading input: %w", err)
		}
		return "", io.EOF
	}
	return r.scanner.Text(), nil
}

// ReadlineReader is a LineReader with line editing and history.
type ReadlineReader struct {
	rl *readline.Instance
}

// NewReadlineReader opens a readline instance. historyFile may be empty.
func NewReadlineReader(historyFile string) (*ReadlineReader, error) {
	rl, err := readline.NewEx(&readline.Config{
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "/exit",
	})
	if err != nil {
		return nil, fmt.Errorf("initializing readline: %w", err)
	}
	return &ReadlineReader{rl: rl}, nil
}

// ReadLine maps Ctrl+C and Ctrl+D to io.EOF.
func (r *ReadlineReader) ReadLine(prompt string) (string, error) {
	r.rl.SetPrompt(prompt)

	line, err := r.rl.Readline()
	if errors.Is(err, readline.ErrInterrupt) {
		return "", io.EOF
	}
	return line, err
}

func (r *ReadlineReader) Close() error {
	return r.rl.Close()
}
