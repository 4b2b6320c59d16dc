package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"batchfix/internal/sqlparse"
	"batchfix/internal/synth"
	"batchfix/internal/testdata"
)

var testCount int

var setupTestCmd = &cobra.Command{
	Use:   "setup-test",
	Short: "Insert synthetic rows so a repair run has work to find",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		conn, err := a.openSource(ctx)
		if err != nil {
			return err
		}
		defer conn.Close()

		// Match the county column to what a later repair run will compare
		// against.
		strat := synth.StrategyCounty
		if a.cfg.Strategy == string(synth.StrategyFIPS) {
			strat = synth.StrategyFIPS
		}

		n, err := testdata.Setup(ctx, conn, testdata.Params{
			Table:       sqlparse.TableName(a.cfg.SelectionQuery),
			KeyField:    a.cfg.KeyFieldName,
			ZipField:    a.cfg.ZipFieldName,
			CountyField: a.cfg.CountyFieldName,
			Strategy:    strat,
			Count:       testCount,
		}, a.log)
		if err != nil {
			return err
		}
		fmt.Printf("Inserted %d test records\n", n)
		return nil
	},
}

var cleanTestCmd = &cobra.Command{
	Use:   "clean-test",
	Short: "Delete every synthetic row inserted by setup-test",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		conn, err := a.openSource(ctx)
		if err != nil {
			return err
		}
		defer conn.Close()

		n, err := testdata.Clean(ctx, conn, sqlparse.TableName(a.cfg.SelectionQuery), a.cfg.KeyFieldName)
		if err != nil {
			return err
		}
		fmt.Printf("Deleted %d test records\n", n)
		return nil
	},
}

func init() {
	setupTestCmd.Flags().IntVar(&testCount, "count", 100, "Number of rows to insert")
}
