package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/matchlog/internal/usecase"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	c := newCLI(stdout, stderr)
	defer c.close()

	root := c.rootCommand()
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	c.finish(err)
	if err != nil {
		printError(stderr, err)
		return 1
	}
	return 0
}

// printError writes "error: <kind>: <message>" followed by any hints attached to err.
func printError(w io.Writer, err error) {
	kind := usecase.KindOf(err)
	fmt.Fprintf(w, "error: %s: %s\n", kind, err.Error())
	for _, hint := range crerr.GetAllHints(err) {
		hint = strings.TrimSpace(hint)
		if hint != "" {
			fmt.Fprintf(w, "hint: %s\n", hint)
		}
	}
}
