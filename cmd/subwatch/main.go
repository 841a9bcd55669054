package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/subwatch/subwatch/internal/app"
	"github.com/subwatch/subwatch/internal/config"
	"github.com/subwatch/subwatch/internal/version"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:     "subwatch",
	Short:   "Certificate-transparency subdomain monitor",
	Long:    "Watches certificate transparency logs for new subdomains of the configured domains and notifies the configured sinks.",
	Version: version.Version,
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.New(configFile).Run()
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the monitor (same as the bare command)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.New(configFile).Run()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", config.DefaultFile,
		"path to the configuration file")
	rootCmd.AddCommand(runCmd, resetCmd, checkCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
