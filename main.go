// tcpreq - a blocking TCP request/response tool.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"tcpreq/cmd"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.Execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "tcpreq: %v\n", err)
		os.Exit(1)
	}
}
