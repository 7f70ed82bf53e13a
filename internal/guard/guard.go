// Package guard keeps backups and restores away from trees that another
// application holds open.
//
// A Guard only reports and requests; the decision to wait, close or give up
// belongs to the caller and is expressed as a Policy.
package guard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/majorcontext/keepsake/internal/log"
)

var (
	// ErrStillBlocked is returned when the blocking application is still
	// running after the wait timeout.
	ErrStillBlocked = errors.New("blocking application is still running")

	// ErrBlocked is returned when the policy forbids proceeding while the
	// blocking application runs.
	ErrBlocked = errors.New("blocking application is running")
)

// Guard reports whether a foreign application blocks mutation of the tree
// and can ask it to close.
type Guard interface {
	// IsBlocking reports whether the application is running.
	IsBlocking(ctx context.Context) (bool, error)
	// RequestClose asks the application to exit. It reports whether a
	// request was delivered; it does not wait for the exit.
	RequestClose(ctx context.Context) (bool, error)
}

// None never blocks.
type None struct{}

func (None) IsBlocking(context.Context) (bool, error)   { return false, nil }
func (None) RequestClose(context.Context) (bool, error) { return false, nil }

// Policy says what to do when the guard reports a blocking application.
type Policy string

const (
	// PolicyClose closes the application and waits for it to exit.
	PolicyClose Policy = "close"
	// PolicyAsk asks the operator first. A refusal aborts.
	PolicyAsk Policy = "ask"
	// PolicyAbort gives up straight away.
	PolicyAbort Policy = "abort"
)

// ParsePolicy validates a policy name. The empty string means PolicyAsk.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(s); p {
	case "":
		return PolicyAsk, nil
	case PolicyClose, PolicyAsk, PolicyAbort:
		return p, nil
	default:
		return "", fmt.Errorf("unknown guard policy %q (want close, ask or abort)", s)
	}
}

// Default wait settings.
const (
	DefaultTimeout  = 2 * time.Minute
	DefaultInterval = 5 * time.Second
)

// WaitOptions bounds WaitClear.
type WaitOptions struct {
	// Timeout is the longest WaitClear waits. Zero means DefaultTimeout.
	Timeout time.Duration
	// Interval is the delay between checks. Zero means DefaultInterval.
	Interval time.Duration
}

func (o WaitOptions) withDefaults() WaitOptions {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	return o
}

// WaitClear polls g until it stops blocking. It returns ErrStillBlocked
// once opts.Timeout has passed, or the context error if ctx ends first.
func WaitClear(ctx context.Context, g Guard, opts WaitOptions) error {
	opts = opts.withDefaults()

	blocking, err := g.IsBlocking(ctx)
	if err != nil {
		return err
	}
	if !blocking {
		return nil
	}

	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()
	timeout := time.NewTimer(opts.Timeout)
	defer timeout.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timeout.C:
			return fmt.Errorf("%w after %s", ErrStillBlocked, opts.Timeout)
		case <-ticker.C:
			blocking, err := g.IsBlocking(ctx)
			if err != nil {
				return err
			}
			if !blocking {
				return nil
			}
			log.Debug("waiting for blocking application to exit")
		}
	}
}

// Gate is the precondition check run before a backup or restore touches
// the filesystem. It returns nil when it is safe to go on.
//
// confirm is consulted only under PolicyAsk; a nil confirm counts as a
// refusal.
func Gate(ctx context.Context, g Guard, policy Policy, opts WaitOptions, confirm func(prompt string) (bool, error)) error {
	if g == nil {
		return nil
	}
	blocking, err := g.IsBlocking(ctx)
	if err != nil {
		return fmt.Errorf("checking for blocking application: %w", err)
	}
	if !blocking {
		return nil
	}

	switch policy {
	case PolicyAbort:
		return ErrBlocked
	case PolicyAsk:
		if confirm == nil {
			return ErrBlocked
		}
		ok, err := confirm("A blocking application is running. Close it to proceed?")
		if err != nil {
			return err
		}
		if !ok {
			return ErrBlocked
		}
	case PolicyClose:
	default:
		return fmt.Errorf("unknown guard policy %q", policy)
	}

	log.Info("requesting blocking application to close")
	if _, err := g.RequestClose(ctx); err != nil {
		return fmt.Errorf("closing blocking application: %w", err)
	}
	return WaitClear(ctx, g, opts)
}
