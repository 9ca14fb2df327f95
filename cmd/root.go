package cmd

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "report_service",
	Short: "Production timeline reporting for shop-floor machines",
	Long: `A service that ingests machine event logs over HTTP and Azure Service Bus,
reconstructs per-work-order production cycles, and serves classified
timeline reports backed by a cache and precomputed daily snapshots.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := cmd.Help(); err != nil {
			log.Error().Err(err).Msg("Failed to display help")
		}
	},
}

// Execute executes the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize()
}
