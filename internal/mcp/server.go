// Package mcp exposes the authorization kernel to automated agent drivers
// over MCP stdio. This is the semi-trusted driver surface: agents can grant
// presets, dry-run checks, and inspect or revoke the active grant set, but
// every decision still flows through the same authority and audit sink as
// the interactive application.
package mcp

import (
	"context"
	"fmt"
	"sync"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/echosoundlab/sessionguard/internal/adapter"
	"github.com/echosoundlab/sessionguard/internal/audit"
	"github.com/echosoundlab/sessionguard/internal/authority"
	"github.com/echosoundlab/sessionguard/internal/clock"
	"github.com/echosoundlab/sessionguard/internal/preset"
)

// Config holds MCP server configuration.
type Config struct {
	AppID        string
	PresetPath   string
	AuditLogPath string
	DefaultTTL   time.Duration
}

// Server wraps the MCP SDK server around one authority instance. The server
// is the host in the sense of the concurrency contract: it serializes
// grant/revoke writers behind its mutex while reads stay lock-free inside
// the authority.
type Server struct {
	mcpServer  *mcpsdk.Server
	auth       *authority.Authority
	ad         *adapter.Adapter
	presets    *preset.Config
	presetPath string
	appID      string
	defaultTTL time.Duration
	now        clock.Clock
	auditLog   *audit.Log
	mu         sync.Mutex
}

// New creates an MCP server with a fresh authority, loaded presets, and an
// optional file-backed audit log.
func New(cfg Config) (*Server, error) {
	if cfg.AppID == "" {
		return nil, fmt.Errorf("mcp: app id is required")
	}

	presets, err := preset.LoadConfig(cfg.PresetPath)
	if err != nil {
		return nil, fmt.Errorf("mcp: load presets: %w", err)
	}

	var sink audit.Sink = audit.Discard{}
	var auditLog *audit.Log
	if cfg.AuditLogPath != "" {
		auditLog, err = audit.Open(cfg.AuditLogPath)
		if err != nil {
			return nil, fmt.Errorf("mcp: open audit log: %w", err)
		}
		sink = auditLog
	}

	ttl := cfg.DefaultTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}

	now := clock.System()
	s := &Server{
		auth:       authority.New(now, sink),
		ad:         adapter.New(cfg.AppID, sink, now),
		presets:    presets,
		presetPath: cfg.PresetPath,
		appID:      cfg.AppID,
		defaultTTL: ttl,
		now:        now,
		auditLog:   auditLog,
	}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    "sessionguard",
			Version: "0.2.0",
		},
		nil,
	)

	s.registerTools()
	return s, nil
}

// Run starts the MCP server on stdio transport. Blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

// Close closes the audit log if configured.
func (s *Server) Close() error {
	if s.auditLog != nil {
		return s.auditLog.Close()
	}
	return nil
}

// ReloadPresets re-reads the preset config file. Called by the fsnotify
// reloader; a parse failure keeps the previous presets.
func (s *Server) ReloadPresets() error {
	presets, err := preset.LoadConfig(s.presetPath)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.presets = presets
	s.mu.Unlock()
	return nil
}

// registerTools adds all sessionguard tools to the MCP server.
func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "session_check",
		Description: "Dry-run a capability check for an application operation without executing anything. Returns the decision and reason.",
	}, s.handleCheck)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "session_grant_preset",
		Description: "Grant a named preset (browse-only, full-mixing, export-only, or a custom preset) to the current session.",
	}, s.handleGrantPreset)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "session_grants",
		Description: "List the active (unexpired) grants with remaining TTL.",
	}, s.handleGrants)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "session_revoke_all",
		Description: "Revoke every grant unconditionally. The session starts over from default-deny.",
	}, s.handleRevokeAll)
}
