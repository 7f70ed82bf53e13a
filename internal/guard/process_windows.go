package guard

import (
	"context"
	"encoding/csv"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

func imageName(name string) string {
	if strings.HasSuffix(strings.ToLower(name), ".exe") {
		return name
	}
	return name + ".exe"
}

func findProcesses(ctx context.Context, name string) ([]int, error) {
	image := imageName(name)
	out, err := exec.CommandContext(ctx, "tasklist", "/FI", "IMAGENAME eq "+image, "/FO", "CSV", "/NH").Output()
	if err != nil {
		return nil, fmt.Errorf("tasklist: %w", err)
	}

	// With no match tasklist prints an INFO line instead of CSV rows.
	records, err := csv.NewReader(strings.NewReader(string(out))).ReadAll()
	if err != nil {
		return nil, nil
	}
	var pids []int
	for _, rec := range records {
		if len(rec) < 2 || !sameName(rec[0], image) {
			continue
		}
		pid, err := strconv.Atoi(rec[1])
		if err != nil {
			continue
		}
		pids = append(pids, pid)
	}
	return pids, nil
}

func terminate(ctx context.Context, name string, _ []int) error {
	out, err := exec.CommandContext(ctx, "taskkill", "/F", "/IM", imageName(name)).CombinedOutput()
	if err != nil {
		return fmt.Errorf("taskkill %s: %w: %s", name, err, strings.TrimSpace(string(out)))
	}
	return nil
}
