package cmd

import (
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "campuslink-broker",
	Short: "CampusLink realtime broker: chat fan-out and WebRTC call signaling",
	Long:  `HTTP + WebSocket API. Commands: serve, migrate.`,
	RunE:  runServe, // default: run the server (same as "campuslink-broker serve")
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default: ./config.yaml)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}

// Execute runs the root command and returns the error (for main to log.Fatal).
func Execute() error {
	return rootCmd.Execute()
}
