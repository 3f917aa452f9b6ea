package recognizer

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Charset maps CTC class indices to tokens. Class 0 is the CTC blank, so
// class i (i >= 1) is Tokens[i-1].
type Charset struct {
	Tokens []string
}

// LoadCharset reads a dictionary with one token per line. A leading BOM is
// dropped. A line holding a single space is a valid token; other blank lines are
// skipped.
func LoadCharset(path string) (*Charset, error) {
	if path == "" {
		return nil, errors.New("dictionary path cannot be empty")
	}
	f, err := os.Open(path) //nolint:gosec // G304: dictionary path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("failed to open dictionary: %w", err)
	}
	defer func() { _ = f.Close() }()

	tokens := make([]string, 0, 512)
	scanner := bufio.NewScanner(f)
	first := true
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if first {
			line = strings.TrimPrefix(line, "\uFEFF")
			first = false
		}
		if line != " " {
			line = strings.TrimSpace(line)
		}
		if line == "" {
			continue
		}
		tokens = append(tokens, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed reading dictionary: %w", err)
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("dictionary is empty: %s", path)
	}
	return &Charset{Tokens: tokens}, nil
}

// Size returns the number of tokens, excluding the blank.
func (c *Charset) Size() int { return len(c.Tokens) }

// Token returns the token for CTC class idx, or "" for the blank and unknown
// classes. When the model has one class more than the dictionary, that last
// class is a space.
func (c *Charset) Token(idx int) string {
	switch {
	case idx <= 0:
		return ""
	case idx <= len(c.Tokens):
		return c.Tokens[idx-1]
	case idx == len(c.Tokens)+1:
		return " "
	}
	return ""
}

// Decode joins the tokens for a collapsed index sequence.
func (c *Charset) Decode(indices []int) string {
	var b strings.Builder
	for _, i := range indices {
		b.WriteString(c.Token(i))
	}
	return b.String()
}
