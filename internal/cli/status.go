package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quantumchildren/propsim/challenge"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the latest snapshot's challenge state",
	RunE: func(cmd *cobra.Command, args []string) error {
		ch, store, err := latestChallenge(dataDir)
		if err != nil {
			return err
		}
		fmt.Printf("Snapshot: %s\n\n", store.Path())
		printStats(ch.Stats())
		if reason := ch.FailReason(); reason != "" {
			fmt.Printf("Fail reason: %s\n", reason)
		}
		return nil
	},
}

var certCmd = &cobra.Command{
	Use:   "cert",
	Short: "Print the pass certificate for the latest snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		ch, _, err := latestChallenge(dataDir)
		if err != nil {
			return err
		}
		cert, ok := ch.Certificate()
		if !ok {
			return fmt.Errorf("challenge %s is %s, no certificate", ch.Config().Name, ch.Status())
		}
		fmt.Println(cert)
		return nil
	},
}

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List the built-in challenge presets",
	Run: func(cmd *cobra.Command, args []string) {
		for _, name := range challenge.PresetNames() {
			p := challenge.Presets[name]
			fmt.Printf("%-18s $%-9.0f target %.0f%%  daily DD %.0f%%  total DD %.0f%%  %d days min %d\n",
				name, p.InitialBalance, p.ProfitTargetPct*100,
				p.MaxDailyDrawdownPct*100, p.MaxTotalDrawdownPct*100,
				p.TimeLimitDays, p.MinTradingDays)
		}
	},
}

func init() {
	rootCmd.AddCommand(statusCmd, certCmd, presetsCmd)
}

func printStats(s challenge.Stats) {
	fmt.Printf("Challenge:     %s (%s)\n", s.Challenge, s.Status)
	fmt.Printf("Balance:       $%.2f\n", s.Balance)
	fmt.Printf("Equity:        $%.2f\n", s.Equity)
	fmt.Printf("Profit:        $%+.2f (%.2f%% of %.0f%% target, %.1f%%)\n",
		s.Profit, s.ProfitPct*100, s.TargetPct*100, s.Progress)
	fmt.Printf("Drawdown:      daily %.2f%%, total %.2f%%\n",
		s.DailyDrawdownPct*100, s.TotalDrawdownPct*100)
	fmt.Printf("Trading days:  %d (min %d)\n", s.TradingDays, s.MinTradingDays)
	fmt.Printf("Trades:        %d total, %d open\n", s.TotalTrades, s.OpenTrades)
	fmt.Printf("Days elapsed:  %d\n", s.DaysElapsed)
}
