package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	kerrors "github.com/vango-dev/kinesis/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ╦╔═┬┌┐┌┌─┐┌─┐┬┌─┐
  ╠╩╗││││├┤ └─┐│└─┐
  ╩ ╩┴┘└┘└─┘└─┘┴└─┘
`

func main() {
	rootCmd := &cobra.Command{
		Use:   "kinesis",
		Short: "Serve and replay nested component trees",
		Long: `Kinesis hosts trees of nested components behind a WebSocket.

Browser events are routed down the tree by path, handlers report which
children changed, and only the affected scopes are re-rendered and
pushed back. Every pass can be journaled and replayed later.

  • serve    run the demo tree over WebSocket
  • replay   re-run a stored journal against a fresh tree
  • inspect  print the records of a stored journal`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		replayCmd(),
		inspectCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		kerrors.PrintError(err)
		os.Exit(1)
	}
}

// printBanner prints the Kinesis ASCII art banner.
func printBanner() {
	fmt.Print(banner)
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(format string, args ...any) {
	fmt.Printf("\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}

// errorMsg prints an error message.
func errorMsg(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "\033[31m✗\033[0m %s\n", fmt.Sprintf(format, args...))
}
