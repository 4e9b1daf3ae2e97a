package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	guardmcp "github.com/echosoundlab/sessionguard/internal/mcp"
)

var (
	mcpApp      string
	mcpPresets  string
	mcpAuditLog string
	mcpTTL      time.Duration
)

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().StringVar(&mcpApp, "app", "echo-sound-lab", "Application id for the grant scope")
	mcpCmd.Flags().StringVar(&mcpPresets, "presets", "", "Path to custom preset YAML (hot-reloaded on change)")
	mcpCmd.Flags().StringVar(&mcpAuditLog, "audit-log", "", "Path to hash-chained JSONL audit log")
	mcpCmd.Flags().DurationVar(&mcpTTL, "ttl", 15*time.Minute, "Default grant validity for session_grant_preset")
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP tool server for agent drivers",
	Long: "Runs sessionguard as an MCP (Model Context Protocol) server over stdio.\n" +
		"Exposes kernel tools: session_check, session_grant_preset, session_grants,\n" +
		"session_revoke_all.",
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	srv, err := guardmcp.New(guardmcp.Config{
		AppID:        mcpApp,
		PresetPath:   mcpPresets,
		AuditLogPath: mcpAuditLog,
		DefaultTTL:   mcpTTL,
	})
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nShutting down MCP server...")
		cancel()
	}()

	reloader, err := guardmcp.NewReloader(srv)
	if err != nil {
		return fmt.Errorf("failed to watch preset config: %w", err)
	}
	if reloader != nil {
		go reloader.Run(ctx)
	}

	fmt.Fprintln(os.Stderr, "sessionguard MCP server running on stdio")
	return srv.Run(ctx)
}
