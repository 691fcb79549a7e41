// Command clovertg sends notifications through a CloverTg relay.
//
// Usage:
//
//	clovertg send "deploy finished"
//	clovertg photo 12345 https://example.com/chart.png --caption "weekly load"
//	clovertg callback "approve release?" https://example.com/ack --button yes=Approve
//
// Run "clovertg help" for the full command list.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/kart-io/clovertg/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}
