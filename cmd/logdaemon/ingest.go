package main

import (
	"bufio"
	"fmt"
	"net"
	"os"

	"github.com/spf13/cobra"

	"github.com/axonops/logdaemon/internal/frame"
)

var ingestSocketPath string

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Read newline-delimited JSON from stdin and frame it to the ingest socket (test helper)",
	RunE:  runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestSocketPath, "socket", "/tmp/logdaemon.sock", "Unix domain socket to write frames to")
}

func runIngest(cmd *cobra.Command, args []string) error {
	conn, err := net.Dial("unix", ingestSocketPath)
	if err != nil {
		return fmt.Errorf("dialing %s: %w", ingestSocketPath, err)
	}
	defer conn.Close()

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 64*1024), frame.MaxFrameSize)

	var sent int
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if _, err := conn.Write(frame.Encode(line)); err != nil {
			return fmt.Errorf("writing frame: %w", err)
		}
		sent++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading stdin: %w", err)
	}

	fmt.Fprintf(os.Stderr, "sent %d records\n", sent)
	return nil
}
