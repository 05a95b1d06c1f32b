package ui

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/vvka-141/d1sql/internal/tui"
)

// ForcedApprover approves after a countdown. It is used when --force is given.
type ForcedApprover struct {
	countdown time.Duration
	output    io.Writer
	sleepFn   func(time.Duration)
}

// NewForcedApprover creates a ForcedApprover writing to output.
// A zero countdown approves immediately.
func NewForcedApprover(countdown time.Duration, output io.Writer) Approver {
	return &ForcedApprover{
		countdown: countdown,
		output:    output,
		sleepFn:   time.Sleep,
	}
}

// RequestApproval prints a warning, counts down one second at a time and approves.
func (a *ForcedApprover) RequestApproval(ctx context.Context, databaseID string) (bool, error) {
	fmt.Fprintln(a.output, tui.WarningStyle.Render(
		fmt.Sprintf("DANGER: every table and view in D1 database '%s' will be dropped.", databaseID)))

	for i := int(a.countdown.Seconds()); i > 0; i-- {
		if err := ctx.Err(); err != nil {
			fmt.Fprintln(a.output)
			return false, err
		}
		fmt.Fprintf(a.output, "\rDropping in: %d seconds... (Press Ctrl+C to cancel)", i)
		a.sleepFn(time.Second)
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	fmt.Fprintf(a.output, "\r%s Proceeding...                                      \n", tui.SymbolCheck)
	return true, nil
}

var _ Approver = (*ForcedApprover)(nil)
