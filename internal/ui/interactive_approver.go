package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/vvka-141/d1sql/internal/tui"
)

// InteractiveApprover asks the user to type the database ID.
type InteractiveApprover struct {
	input  io.Reader
	output io.Writer
}

// NewInteractiveApprover creates an InteractiveApprover reading the answer from input.
func NewInteractiveApprover(input io.Reader, output io.Writer) Approver {
	return &InteractiveApprover{input: input, output: output}
}

// RequestApproval approves only when the typed line equals databaseID.
func (a *InteractiveApprover) RequestApproval(ctx context.Context, databaseID string) (bool, error) {
	fmt.Fprintln(a.output, tui.WarningStyle.Render(
		fmt.Sprintf("WARNING: you are about to drop every table and view in D1 database '%s'.", databaseID)))
	fmt.Fprintln(a.output, "This will permanently delete all data in this database!")
	fmt.Fprintf(a.output, "\nTo confirm, type the database ID '%s' and press Enter: ", databaseID)

	inputChan := make(chan string, 1)
	errChan := make(chan error, 1)

	go func() {
		input, err := bufio.NewReader(a.input).ReadString('\n')
		if err != nil {
			errChan <- err
			return
		}
		inputChan <- strings.TrimSpace(input)
	}()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case err := <-errChan:
		return false, fmt.Errorf("failed to read input: %w", err)
	case input := <-inputChan:
		if input == databaseID {
			fmt.Fprintln(a.output, tui.SymbolCheck+" Confirmed.")
			return true, nil
		}
		fmt.Fprintf(a.output, "%s Input '%s' does not match '%s'. Operation cancelled.\n", tui.SymbolCross, input, databaseID)
		return false, nil
	}
}

var _ Approver = (*InteractiveApprover)(nil)
