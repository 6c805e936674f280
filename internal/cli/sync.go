package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quantumchildren/propsim/telemetry"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Upload spooled telemetry to the collection server",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := telemetry.NewClient(syncServerURL, syncDataDir)
		if err != nil {
			return err
		}

		local, err := client.LocalStats()
		if err != nil {
			return err
		}
		for category, n := range local {
			fmt.Printf("spooled %s: %d\n", category, n)
		}

		synced, failed, err := client.Sync()
		if err != nil {
			return err
		}
		fmt.Printf("synced %d records, %d failed\n", synced, failed)
		if failed > 0 {
			return fmt.Errorf("%d records not accepted", failed)
		}
		return nil
	},
}

var (
	syncServerURL string
	syncDataDir   string
)

func init() {
	rootCmd.AddCommand(syncCmd)

	syncCmd.Flags().StringVar(&syncServerURL, "server", "http://localhost:8088", "collection server URL")
	syncCmd.Flags().StringVar(&syncDataDir, "telemetry-dir", "./telemetry_data", "local telemetry spool directory")
}
