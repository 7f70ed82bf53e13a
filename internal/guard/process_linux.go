package guard

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// commLen is the kernel's limit on /proc/<pid>/comm, minus the NUL.
const commLen = 15

func findProcesses(ctx context.Context, name string) ([]int, error) {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return nil, err
	}
	want := strings.TrimSuffix(filepath.Base(name), ".exe")
	if len(want) > commLen {
		want = want[:commLen]
	}

	var pids []int
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pid, err := strconv.Atoi(e.Name())
		if err != nil || pid == os.Getpid() {
			continue
		}
		comm, err := os.ReadFile(filepath.Join("/proc", e.Name(), "comm"))
		if err != nil {
			// Exited while scanning.
			continue
		}
		if sameName(string(comm), want) {
			pids = append(pids, pid)
		}
	}
	return pids, nil
}
