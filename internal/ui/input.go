package ui

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// LineReader reads one command per line. Output written through it stays in
// sync with the prompt.
type LineReader interface {
	io.Writer
	ReadLine() (string, error)
	Close() error
}

// NewLineReader returns an editable prompt with history when in and out are
// terminals, and a plain line scanner otherwise. Ctrl-C and Ctrl-D on an empty
// line end input with io.EOF.
func NewLineReader(in, out *os.File, prompt string) (LineReader, error) {
	inFd, outFd := int(in.Fd()), int(out.Fd())
	if !term.IsTerminal(inFd) || !term.IsTerminal(outFd) {
		return NewPlainReader(in, out, prompt), nil
	}

	state, err := term.MakeRaw(inFd)
	if err != nil {
		return nil, fmt.Errorf("entering raw mode: %w", err)
	}

	t := term.NewTerminal(struct {
		io.Reader
		io.Writer
	}{in, out}, prompt)
	if w, h, err := term.GetSize(outFd); err == nil {
		_ = t.SetSize(w, h)
	}
	return &terminalReader{fd: inFd, state: state, t: t}, nil
}

type terminalReader struct {
	fd    int
	state *term.State
	t     *term.Terminal
}

func (r *terminalReader) ReadLine() (string, error) {
	line, err := r.t.ReadLine()
	if errors.Is(err, term.ErrPasteIndicator) {
		err = nil
	}
	return line, err
}

func (r *terminalReader) Write(p []byte) (int, error) { return r.t.Write(p) }

func (r *terminalReader) Close() error {
	return term.Restore(r.fd, r.state)
}

type plainReader struct {
	scanner *bufio.Scanner
	out     io.Writer
	prompt  string
}

// NewPlainReader reads lines from in, printing prompt to out before each one.
func NewPlainReader(in io.Reader, out io.Writer, prompt string) LineReader {
	return &plainReader{scanner: bufio.NewScanner(in), out: out, prompt: prompt}
}

func (r *plainReader) ReadLine() (string, error) {
	if r.prompt != "" {
		fmt.Fprint(r.out, r.prompt)
	}
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return r.scanner.Text(), nil
}

func (r *plainReader) Write(p []byte) (int, error) { return r.out.Write(p) }

func (r *plainReader) Close() error { return nil }
