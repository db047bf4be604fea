// Package process maps process ids to application names.
package process

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/shirou/gopsutil/v4/process"
)

// Resolver looks up process names through gopsutil.
type Resolver struct{}

func NewResolver() *Resolver {
	return &Resolver{}
}

// Name returns the short process name for pid, falling back to the base
// name of its executable.
func (r *Resolver) Name(pid int32) (string, error) {
	if pid <= 0 {
		return "", fmt.Errorf("invalid pid %d", pid)
	}

	p, err := process.NewProcess(pid)
	if err != nil {
		return "", fmt.Errorf("failed to open process %d: %w", pid, err)
	}

	if name, err := p.Name(); err == nil && strings.TrimSpace(name) != "" {
		return strings.TrimSpace(name), nil
	}

	exe, err := p.Exe()
	if err != nil {
		return "", fmt.Errorf("failed to resolve process %d: %w", pid, err)
	}
	return filepath.Base(exe), nil
}
