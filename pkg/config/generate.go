package config

import (
	"fmt"
	"os/exec"
	"path/filepath"
)

// Generate creates a starter config for tool. When the tool resolves on the
// executable search path its absolute location is recorded, so later runs do
// not depend on PATH; otherwise the bare name is kept and found is false.
func Generate(tool string) (cfg *Config, found bool, err error) {
	if tool == "" {
		tool = DefaultTool
	}
	cfg = Default()
	cfg.Tool = tool

	path, err := exec.LookPath(tool)
	if err != nil {
		return cfg, false, nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, false, fmt.Errorf("resolve %s: %w", path, err)
	}
	cfg.Tool = abs
	return cfg, true, nil
}
