package guard

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/majorcontext/keepsake/internal/log"
)

// Process guards against a running program identified by executable name,
// for example "devenv.exe" or "code".
type Process struct {
	Name string
}

// IsBlocking reports whether any process with the guarded name is running.
func (p Process) IsBlocking(ctx context.Context) (bool, error) {
	pids, err := findProcesses(ctx, p.Name)
	if err != nil {
		return false, err
	}
	return len(pids) > 0, nil
}

// RequestClose asks every process with the guarded name to exit.
func (p Process) RequestClose(ctx context.Context) (bool, error) {
	pids, err := findProcesses(ctx, p.Name)
	if err != nil {
		return false, err
	}
	if len(pids) == 0 {
		return false, nil
	}
	log.Debug("requesting process exit", "name", p.Name, "pids", pids)
	if err := terminate(ctx, p.Name, pids); err != nil {
		return false, err
	}
	return true, nil
}

// sameName reports whether an observed process name refers to want.
// The comparison ignores case and a trailing ".exe" so one config works
// on every platform.
func sameName(observed, want string) bool {
	norm := func(s string) string {
		s = strings.ToLower(filepath.Base(strings.TrimSpace(s)))
		return strings.TrimSuffix(s, ".exe")
	}
	return norm(observed) == norm(want)
}
