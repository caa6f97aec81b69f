package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	server   string
	clientID string
	timeout  time.Duration
}

var rootCmd = &cobra.Command{
	Use:   "triage",
	Short: "Describe an IT issue and get a suggested fix",
	Long:  "triage drives one session against the triage API: describe the issue,\nreview the suggested solution, and report whether it helped.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage: true,
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&rootFlags.server, "server", envOr("TRIAGE_SERVER", "http://localhost:8080"), "API base URL")
	f.StringVar(&rootFlags.clientID, "client-id", envOr("TRIAGE_CLIENT_ID", ""), "value sent as X-Client-Id")
	f.DurationVar(&rootFlags.timeout, "timeout", 60*time.Second, "overall time limit per command")

	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(similarCmd)
	rootCmd.Version = version
}

func newClient() *Client {
	return NewClient(rootFlags.server, rootFlags.clientID)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
