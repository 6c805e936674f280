// Package cli wires the propsim subcommands.
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/quantumchildren/propsim/challenge"
	"github.com/quantumchildren/propsim/snapshot"
)

var dataDir string

var rootCmd = &cobra.Command{
	Use:           "propsim",
	Short:         "Propsim — simulated prop-firm challenge runner",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "./challenge_data", "directory for challenge snapshots")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("propsim (dev)")
		},
	})
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// latestChallenge restores the most recent snapshot in the data dir.
// The returned challenge keeps writing to the snapshot file it came
// from.
func latestChallenge(dir string, opts ...challenge.Option) (*challenge.Challenge, *snapshot.FileStore, error) {
	path, err := snapshot.FindLatest(dir)
	if err != nil {
		return nil, nil, err
	}
	store := snapshot.NewFileStore(path)
	snap, err := store.Load()
	if err != nil {
		return nil, nil, err
	}
	ch, err := challenge.Restore(snap, store, opts...)
	if err != nil {
		return nil, nil, err
	}
	return ch, store, nil
}

// newChallengeStore creates a fresh timestamped snapshot file.
func newChallengeStore(dir string) (*snapshot.FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return snapshot.NewFileStore(snapshot.DefaultPath(dir, time.Now())), nil
}
