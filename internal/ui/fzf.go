package ui

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

var (
	ErrNoPicker  = errors.New("fzf not found in PATH")
	ErrCancelled = errors.New("selection cancelled")
)

// Row is one pickable entry. Only Title is searched; Detail is shown beside it.
type Row struct {
	Title  string
	Detail string
}

// fieldSep splits the hidden index from the visible columns of a record.
const fieldSep = "\x1f"

var rowCleaner = strings.NewReplacer("\x00", "", fieldSep, " ", "\n", " ", "\r", " ")

// Picker chooses one row out of many with fzf.
type Picker struct {
	path string

	// Header is printed above the list. Empty means no header.
	Header string
}

// NewPicker locates fzf and returns ErrNoPicker when it is missing.
func NewPicker() (*Picker, error) {
	path, err := exec.LookPath("fzf")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoPicker, err)
	}
	return &Picker{path: path}, nil
}

// Pick returns the index of the chosen row. Esc, Ctrl-C and an empty
// selection all yield ErrCancelled; a cancelled ctx kills fzf.
func (p *Picker) Pick(ctx context.Context, prompt string, rows []Row) (int, error) {
	if len(rows) == 0 {
		return -1, errors.New("no rows to pick from")
	}

	// Records are NUL-terminated so titles can never split a row.
	var input bytes.Buffer
	for i, r := range rows {
		input.WriteString(strconv.Itoa(i))
		input.WriteString(fieldSep)
		input.WriteString(rowCleaner.Replace(r.Title))
		input.WriteString(fieldSep)
		input.WriteString(rowCleaner.Replace(r.Detail))
		input.WriteByte(0)
	}

	args := []string{
		"--read0", "--print0",
		"--delimiter", fieldSep,
		"--with-nth", "2..",
		"--nth", "1",
		"--prompt", prompt + " > ",
		"--height", "40%",
		"--layout", "reverse",
		"--no-multi",
	}
	if p.Header != "" {
		args = append(args, "--header", p.Header)
	}

	cmd := exec.CommandContext(ctx, p.path, args...)
	cmd.Stdin = &input
	cmd.Stderr = os.Stderr
	var out bytes.Buffer
	cmd.Stdout = &out

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return -1, ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			switch exitErr.ExitCode() {
			case 1, 130:
				return -1, ErrCancelled
			}
		}
		return -1, fmt.Errorf("fzf failed: %w", err)
	}

	record, _, _ := strings.Cut(out.String(), "\x00")
	record = strings.TrimSpace(record)
	if record == "" {
		return -1, ErrCancelled
	}
	field, _, _ := strings.Cut(record, fieldSep)
	idx, err := strconv.Atoi(field)
	if err != nil || idx < 0 || idx >= len(rows) {
		return -1, fmt.Errorf("unexpected fzf selection %q", record)
	}
	return idx, nil
}
