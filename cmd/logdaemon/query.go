package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/axonops/logdaemon/internal/query"
)

var (
	queryStorageDir string
	queryCountOnly  bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Scan the storage directory for analytical reads",
	RunE:  runQuery,
}

func init() {
	f := queryCmd.Flags()
	f.StringVar(&queryStorageDir, "storage-dir", "./data", "Parquet storage directory to scan")
	f.BoolVar(&queryCountOnly, "count", false, "Print only the total row count")
}

func runQuery(cmd *cobra.Command, args []string) error {
	if queryCountOnly {
		n, err := query.Count(queryStorageDir)
		if err != nil {
			return err
		}
		fmt.Println(n)
		return nil
	}
	return query.Scan(queryStorageDir, os.Stdout)
}
