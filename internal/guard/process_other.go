//go:build !unix && !windows

package guard

import (
	"context"
	"errors"
	"runtime"
)

var errUnsupported = errors.New("process guard not supported on " + runtime.GOOS)

func findProcesses(context.Context, string) ([]int, error) {
	return nil, errUnsupported
}

func terminate(context.Context, string, []int) error {
	return errUnsupported
}
