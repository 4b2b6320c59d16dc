package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Derive corrective statements and store them as pending jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		_, err = a.pipe.Generate(ctx)
		return err
	},
}

var executeCmd = &cobra.Command{
	Use:   "execute",
	Short: "Run every stored job against the data source",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		_, err = a.pipe.Execute(ctx)
		return err
	},
}

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Generate jobs and validate them offline without executing",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		_, _, err = a.pipe.Test(ctx)
		return err
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Continuously generate and execute, waiting between cycles",
	Long: `run loops generate then execute until interrupted. Between cycles it
waits check_again_after seconds; sending SIGHUP to the process starts the
next cycle immediately.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		trigger := make(chan struct{}, 1)
		hup := make(chan os.Signal, 1)
		signal.Notify(hup, syscall.SIGHUP)
		defer signal.Stop(hup)
		go func() {
			for range hup {
				select {
				case trigger <- struct{}{}:
				default: // a trigger is already pending
				}
			}
		}()
		a.pipe.Trigger = trigger

		err = a.pipe.Continuous(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}
