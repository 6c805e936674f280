package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/quantumchildren/propsim/challenge"
	"github.com/quantumchildren/propsim/config"
	"github.com/quantumchildren/propsim/telemetry"
	"github.com/quantumchildren/propsim/trader"
	"github.com/quantumchildren/propsim/venue/sim"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a simulated challenge attempt",
	Long: `Run a simulated prop-firm challenge against the random-walk venue.

A fresh attempt starts from the configured preset; --resume picks up
the most recent snapshot in the data directory instead.

Example:
  propsim run -f config.yaml
  propsim run --resume`,
	RunE: runRun,
}

var (
	runConfigPath string
	runResume     bool
	runSeed       int64
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "config", "f", "", "path to config file (YAML or JSON)")
	runCmd.Flags().BoolVar(&runResume, "resume", false, "resume the latest snapshot instead of starting fresh")
	runCmd.Flags().Int64Var(&runSeed, "seed", 0, "venue random seed (0 uses the current time)")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if runConfigPath != "" {
		loaded, err := config.LoadFromFile(runConfigPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	var opts []challenge.Option
	var reporter trader.Reporter
	if cfg.Telemetry.Enabled {
		client, err := telemetry.NewClient(cfg.Telemetry.ServerURL, cfg.Telemetry.DataDir)
		if err != nil {
			return fmt.Errorf("telemetry: %w", err)
		}
		opts = append(opts, challenge.WithNotifier(telemetry.NewNotifier(client)))
		reporter = client
		fmt.Printf("Telemetry node: %s\n", client.NodeID())
	}

	var ch *challenge.Challenge
	if runResume {
		restored, store, err := latestChallenge(dataDir, opts...)
		if err != nil {
			return fmt.Errorf("resume: %w", err)
		}
		ch = restored
		fmt.Printf("Resumed %s from %s\n", ch.Config().Name, store.Path())
	} else {
		store, err := newChallengeStore(dataDir)
		if err != nil {
			return err
		}
		created, err := challenge.New(cfg.Challenge, store, opts...)
		if err != nil {
			return fmt.Errorf("new challenge: %w", err)
		}
		ch = created
		fmt.Printf("Started %s ($%.2f), snapshots in %s\n",
			cfg.Challenge.Name, cfg.Challenge.InitialBalance, store.Path())
	}

	seed := runSeed
	if seed == 0 {
		seed = cfg.Trader.Seed
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	v := sim.New(seed)

	tropts := []trader.Option{}
	if reporter != nil {
		tropts = append(tropts, trader.WithReporter(reporter))
	}
	t := trader.New(cfg.Trader, ch, v, tropts...)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	status, err := t.Run(ctx)
	if err != nil {
		fmt.Printf("Stopped: %v\n", err)
	}

	printStats(ch.Stats())
	if status == challenge.Passed {
		if cert, ok := ch.Certificate(); ok {
			fmt.Println()
			fmt.Println(cert)
		}
	} else if reason := ch.FailReason(); reason != "" {
		fmt.Printf("Fail reason: %s\n", reason)
	}
	return nil
}
