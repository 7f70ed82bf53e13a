//go:build unix

package guard

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

func terminate(_ context.Context, name string, pids []int) error {
	var errs []error
	for _, pid := range pids {
		if err := unix.Kill(pid, unix.SIGTERM); err != nil && !errors.Is(err, unix.ESRCH) {
			errs = append(errs, fmt.Errorf("signal %s (pid %d): %w", name, pid, err))
		}
	}
	return errors.Join(errs...)
}
