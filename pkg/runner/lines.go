package runner

import (
	"bufio"
	"bytes"
	"io"
	"regexp"
	"strings"
)

const maxLineBytes = 1024 * 1024

// csiPattern matches terminal CSI sequences: ESC [ params intermediates final.
var csiPattern = regexp.MustCompile(`\x1b\[[0-?]*[ -/]*[@-~]`)

// Clean strips CSI sequences and surrounding whitespace from a raw line.
func Clean(raw string) string {
	return strings.TrimSpace(csiPattern.ReplaceAllString(raw, ""))
}

// scanLines reads terminal lines from r and calls fn with each cleaned,
// non-empty line. On a read error the rest of r is drained so the writer
// never blocks, and the error is returned.
func scanLines(r io.Reader, fn func(string)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	scanner.Split(splitTerminalLines)
	for scanner.Scan() {
		if line := Clean(scanner.Text()); line != "" {
			fn(line)
		}
	}
	if err := scanner.Err(); err != nil {
		_, _ = io.Copy(io.Discard, r)
		return err
	}
	return nil
}

// splitTerminalLines is a bufio.SplitFunc that ends a line at '\n' or '\r'.
// A "\r\n" pair yields an empty token, which Clean then suppresses.
func splitTerminalLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
