//go:build !js

package main

import (
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"hackvm/pkg/driver"
)

var (
	verbose bool
	trace   bool
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "hackvm",
		Short: "Translate VM stack code to Hack assembly, assemble it and run it",
		Long: `hackvm translates programs written in the stack-based VM language into
Hack assembly, assembles Hack assembly into machine words and runs them on
an emulated Hack computer.

A .vm file is translated on its own; a directory is translated as one
program made of all of its .vm files in name order.
`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging()
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log per-unit details")
	root.PersistentFlags().BoolVar(&trace, "trace", false, "log every translated command")

	root.AddCommand(
		newTranslateCmd(),
		newAssembleCmd(),
		newRunCmd(),
		newCheckCmd(),
	)
	return root
}

func setupLogging() {
	level := slog.LevelInfo
	switch {
	case trace:
		level = driver.LevelTrace
	case verbose:
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

func main() {
	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt)
	go func() {
		<-interrupts
		slog.Warn("interrupted")
		atexit.Exit(130)
	}()

	if err := newRootCmd().Execute(); err != nil {
		atexit.Fatalf("hackvm: %v", err)
	}
	atexit.Exit(0)
}
