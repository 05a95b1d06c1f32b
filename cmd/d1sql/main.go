package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/vvka-141/d1sql/internal/cli"
	"github.com/vvka-141/d1sql/pkg/d1sql"
)

func main() {
	// Recover from panics to ensure graceful exits with stack traces
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "panic: %v\n%s\n", r, debug.Stack())
			os.Exit(d1sql.ExitPanic)
		}
	}()

	if err := cli.Execute(); err != nil {
		os.Exit(d1sql.ExitCodeForError(err))
	}
}
