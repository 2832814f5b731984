package main

import (
	"github.com/spf13/cobra"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:           "logdaemon",
	Short:         "A high-throughput structured-logging daemon",
	Long:          "logdaemon validates framed JSON log records against a schema, batches them, and persists them to Parquet.",
	SilenceUsage:  true,
	SilenceErrors: true,
	Version:       version,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(validateSchemaCmd)
	rootCmd.AddCommand(ingestCmd)
}
