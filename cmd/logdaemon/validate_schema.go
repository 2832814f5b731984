package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/axonops/logdaemon/internal/schema"
)

var validateSchemaCmd = &cobra.Command{
	Use:   "validate-schema <path>",
	Short: "Compile a schema file and report success or failure",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := schema.FromFile(args[0]); err != nil {
			return fmt.Errorf("schema invalid: %w", err)
		}
		fmt.Println("schema OK")
		return nil
	},
}
