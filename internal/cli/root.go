// Package cli wires the sessionguard commands.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "sessionguard",
	Short: "Capability authorization kernel for Echo Sound Lab",
	Long:  "Default-deny authorization for every action a driver attempts inside the audio workstation: scoped, time-bounded grants, composite-chain escalation, and a hash-chained audit trail.",
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
