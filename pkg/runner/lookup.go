package runner

import (
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
)

// ErrToolNotFound is returned when the wallet tool cannot be located.
var ErrToolNotFound = errors.New("tool not found")

// LookPath resolves the tool through the executable search path, or checks an
// explicit path. The result is absolute.
func LookPath(tool string) (string, error) {
	if tool == "" {
		return "", fmt.Errorf("%w: no tool configured", ErrToolNotFound)
	}
	path, err := exec.LookPath(tool)
	if err != nil {
		return "", fmt.Errorf("%w: %s is not in PATH (%v)", ErrToolNotFound, tool, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	return abs, nil
}
