package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "permock",
	Short: "Rewrite Factorial permission flags in intercepted browser responses",
	Long: `permock attaches to a running Chromium browser over the DevTools protocol
and rewrites JSON response bodies from the Factorial API before they reach
the page, so permission-gated UI paths can be tested without server
cooperation. Unrecognized or unparseable responses pass through untouched.

The browser must be started with remote debugging enabled, e.g.:
  chromium --remote-debugging-port=9222`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
