package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"

	mkcmd "mediakiller/internal/cli/cmd"
	"mediakiller/internal/interrupt"
)

func main() {
	// First interrupt stops gracefully; a second within the window kills the encoder.
	ctl := interrupt.New(interrupt.DefaultWindow)
	stop := ctl.Notify(os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx := interrupt.NewContext(context.Background(), ctl)
	if err := mkcmd.Execute(ctx); err != nil {
		var ee *mkcmd.ExitError
		if errors.As(err, &ee) {
			if ee.Err != nil {
				fmt.Fprintln(os.Stderr, ee.Err)
			}
			stop()
			os.Exit(ee.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(mkcmd.ExitCLIError)
	}
	stop()
	os.Exit(mkcmd.ExitOK)
}
