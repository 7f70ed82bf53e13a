//go:build unix && !linux

package guard

import (
	"context"
	"errors"
	"os/exec"
	"strconv"
	"strings"
)

func findProcesses(ctx context.Context, name string) ([]int, error) {
	out, err := exec.CommandContext(ctx, "pgrep", "-x", name).Output()
	if err != nil {
		var exitErr *exec.ExitError
		// pgrep exits 1 when nothing matched.
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return nil, nil
		}
		return nil, err
	}

	var pids []int
	for _, field := range strings.Fields(string(out)) {
		pid, err := strconv.Atoi(field)
		if err != nil {
			continue
		}
		pids = append(pids, pid)
	}
	return pids, nil
}
