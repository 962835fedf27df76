package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"coldstakepool/internal/cliutil"
)

func main() {
	cmd := newRootCommand()
	cmd.SetArgs(cliutil.NormalizeArgs(os.Args[1:]))
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
