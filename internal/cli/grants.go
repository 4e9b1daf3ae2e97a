package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/echosoundlab/sessionguard/internal/clock"
	"github.com/echosoundlab/sessionguard/internal/preset"
)

var (
	grantsApp     string
	grantsTTL     time.Duration
	grantsPresets string
	grantsFormat  string
)

func init() {
	rootCmd.AddCommand(grantsCmd)
	grantsCmd.Flags().StringVar(&grantsApp, "app", "echo-sound-lab", "Application id for the grant scope")
	grantsCmd.Flags().DurationVar(&grantsTTL, "ttl", 15*time.Minute, "Grant validity duration")
	grantsCmd.Flags().StringVar(&grantsPresets, "presets", "", "Path to custom preset YAML (optional)")
	grantsCmd.Flags().StringVarP(&grantsFormat, "format", "f", "text", "Output format (text|json)")
}

var grantsCmd = &cobra.Command{
	Use:   "grants <preset>",
	Short: "Show the grants a preset would issue",
	Long: "Resolves a preset name (built-in or from --presets) and prints the\n" +
		"grant bundle it produces: capability, scope, expiry, and whether each\n" +
		"use needs active-consent confirmation.",
	Args: cobra.ExactArgs(1),
	RunE: runGrants,
}

func runGrants(cmd *cobra.Command, args []string) error {
	cfg, err := preset.LoadConfig(grantsPresets)
	if err != nil {
		return err
	}

	grants, err := cfg.Resolve(args[0], grantsApp, grantsTTL, clock.System())
	if err != nil {
		return err
	}

	if grantsFormat == "json" {
		out, err := json.MarshalIndent(grants, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	fmt.Printf("Preset %q for app %q (ttl %s):\n", args[0], grantsApp, grantsTTL)
	for _, g := range grants {
		acc := ""
		if g.RequiresACC {
			acc = "  [requires consent per use]"
		}
		scope := ""
		if g.Scope.WindowID != "" {
			scope += " window=" + g.Scope.WindowID
		}
		if len(g.Scope.ResourceIDs) > 0 {
			scope += " resources=" + strings.Join(g.Scope.ResourceIDs, ",")
		}
		fmt.Printf("  %-14s%s%s\n", g.Capability, scope, acc)
	}
	return nil
}
