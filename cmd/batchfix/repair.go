package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"batchfix/internal/synth"
)

var assumeYes bool

var repairCountyCmd = &cobra.Command{
	Use:   "repair-county",
	Short: "Repair county values to the 3-digit FIPS code for each row's zip code",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return a.pipe.Repair(ctx, synth.StrategyFIPS, nil)
	},
}

var repairCountyCodeCmd = &cobra.Command{
	Use:   "repair-county-code",
	Short: "Repair county values to the 2-digit county code for each row's zip code",
	Long: `repair-county-code derives one update statement per row whose county
value disagrees with the reference table, then asks before executing them.
Declining keeps the statements as pending jobs; a later execute run applies
them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		confirm := func() bool {
			if assumeYes {
				return true
			}
			fmt.Print("Do you want to execute the update queries now? [y/N] ")
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil {
				return false
			}
			answer := strings.ToLower(strings.TrimSpace(line))
			return answer == "y" || answer == "yes"
		}

		return a.pipe.Repair(ctx, synth.StrategyCounty, confirm)
	},
}

func init() {
	repairCountyCodeCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Skip the confirmation prompt")
}
