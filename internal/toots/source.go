// Package toots reads post payloads from a line-oriented text file.
package toots

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"
)

// ErrInvalidEncoding is returned when a line is not valid UTF-8.
var ErrInvalidEncoding = errors.New("line is not valid UTF-8")

// Source is a toots file. Lines are zero-indexed.
type Source struct {
	path string
}

// NewSource returns a Source reading from path.
func NewSource(path string) *Source {
	return &Source{path: path}
}

// Path returns the file path.
func (s *Source) Path() string {
	return s.path
}

// Line returns the line at index idx without its terminator.
// The boolean is false when the file has fewer than idx+1 lines.
func (s *Source) Line(idx int) (string, bool, error) {
	if idx < 0 {
		return "", false, fmt.Errorf("negative line index %d", idx)
	}

	f, err := os.Open(s.path)
	if err != nil {
		return "", false, fmt.Errorf("open toots: %w", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	for i := 0; ; i++ {
		line, ok, err := readLine(r, i+1)
		if err != nil {
			return "", false, err
		}
		if !ok {
			return "", false, nil
		}
		if i == idx {
			return line, true, nil
		}
	}
}

// Count returns the number of lines in the file.
func (s *Source) Count() (int, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return 0, fmt.Errorf("open toots: %w", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	n := 0
	for {
		_, ok, err := readLine(r, n+1)
		if err != nil {
			return 0, err
		}
		if !ok {
			return n, nil
		}
		n++
	}
}

// readLine reads one line. A final line without a newline still counts;
// end of input with nothing read reports ok=false.
func readLine(r *bufio.Reader, lineNo int) (string, bool, error) {
	line, err := r.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", false, fmt.Errorf("read toots line %d: %w", lineNo, err)
	}
	if errors.Is(err, io.EOF) && line == "" {
		return "", false, nil
	}

	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")

	if !utf8.ValidString(line) {
		return "", false, fmt.Errorf("read toots line %d: %w", lineNo, ErrInvalidEncoding)
	}

	return line, true, nil
}
