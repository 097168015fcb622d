package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/zeebo/errs"
)

var usageErr = errs.Class("usage")

func cmdCtx() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt)
	go func() {
		sig := <-ch
		fmt.Fprintf(os.Stderr, "Signal %q received\n", sig)
		cancel()
	}()
	return ctx
}

func checkCmd(err error) error {
	switch {
	case err == nil:
		return nil
	case usageErr.Has(err):
		// Returned as is so cobra prints the usage.
		return err
	}
	// other errors exit with 2
	fmt.Fprintf(os.Stderr, "error: %+v\n", err)
	os.Exit(2)
	return err
}
