package mcp

import (
	"context"
	"errors"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/echosoundlab/sessionguard/internal/adapter"
	"github.com/echosoundlab/sessionguard/internal/authority"
	"github.com/echosoundlab/sessionguard/internal/capability"
	"github.com/echosoundlab/sessionguard/internal/composite"
	"github.com/echosoundlab/sessionguard/internal/execute"
)

// --- Input/Output types ---

// CheckInput defines parameters for the session_check tool.
type CheckInput struct {
	Op            string   `json:"op" jsonschema:"operation: save/autosave/parameter/processing/batch_export/file_write/text_input/transport/chain"`
	Target        string   `json:"target,omitempty" jsonschema:"parameter id, action id, path, field id, or transport control"`
	Reversibility string   `json:"reversibility,omitempty" jsonschema:"processing reversibility: full/partial/none"`
	Class         string   `json:"class,omitempty" jsonschema:"text field class: free_text/parameter/path/command"`
	Jobs          []string `json:"jobs,omitempty" jsonschema:"batch export job ids"`
	Descriptions  []string `json:"descriptions,omitempty" jsonschema:"chain step descriptions, all assumed fully reversible"`
}

// CheckOutput contains the kernel decision for a dry-run check.
type CheckOutput struct {
	Decision   string `json:"decision"`
	Capability string `json:"capability,omitempty"`
	Reason     string `json:"reason"`
}

// GrantPresetInput defines parameters for the session_grant_preset tool.
type GrantPresetInput struct {
	Preset     string `json:"preset" jsonschema:"preset name"`
	TTLSeconds int    `json:"ttl_seconds,omitempty" jsonschema:"grant validity in seconds, default 900"`
}

// GrantPresetOutput confirms the granted bundle.
type GrantPresetOutput struct {
	Preset  string   `json:"preset"`
	Granted []string `json:"granted"`
}

// GrantsInput is empty; no parameters needed.
type GrantsInput struct{}

// GrantItem describes one active grant.
type GrantItem struct {
	ID           string   `json:"id"`
	Capability   string   `json:"capability"`
	WindowID     string   `json:"window_id,omitempty"`
	ResourceIDs  []string `json:"resource_ids,omitempty"`
	RequiresACC  bool     `json:"requires_acc"`
	TTLRemaining string   `json:"ttl_remaining"`
}

// GrantsOutput lists active grants.
type GrantsOutput struct {
	SessionID string      `json:"session_id"`
	Grants    []GrantItem `json:"grants"`
}

// RevokeAllInput is empty; no parameters needed.
type RevokeAllInput struct{}

// RevokeAllOutput confirms the revocation.
type RevokeAllOutput struct {
	Revoked int `json:"revoked"`
}

// --- Handlers ---

func (s *Server) handleCheck(ctx context.Context, req *mcpsdk.CallToolRequest, input CheckInput) (*mcpsdk.CallToolResult, CheckOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var r capability.Request
	switch input.Op {
	case "autosave":
		if s.ad.AutosaveAllowed(s.auth, nil) {
			return nil, CheckOutput{Decision: string(capability.Granted), Capability: string(capability.FileWrite), Reason: "autosave permitted"}, nil
		}
		return &mcpsdk.CallToolResult{IsError: true},
			CheckOutput{Decision: string(capability.Denied), Capability: string(capability.FileWrite), Reason: "autosave skipped: no matching grant"}, nil
	case "save":
		r = s.ad.SaveRequest()
	case "parameter":
		r = s.ad.ParameterRequest(input.Target)
	case "processing":
		r = s.ad.ProcessingRequest(input.Target, capability.Reversibility(input.Reversibility))
	case "chain":
		actions := make([]composite.Action, 0, len(input.Descriptions))
		for _, d := range input.Descriptions {
			actions = append(actions, composite.Action{
				Reversibility: capability.ReversibleFull,
				Description:   d,
			})
		}
		r = s.ad.ChainRequest(actions)
	case "batch_export":
		var err error
		r, err = s.ad.BatchExportRequest(input.Jobs)
		if err != nil {
			return violationResult(err)
		}
	case "file_write":
		var err error
		r, err = s.ad.WriteRequest(input.Target, "mcp check")
		if err != nil {
			return violationResult(err)
		}
	case "text_input":
		r = s.ad.TextInputRequest(input.Target, adapter.FieldClass(input.Class))
	case "transport":
		r = s.ad.TransportRequest(input.Target)
	default:
		return &mcpsdk.CallToolResult{IsError: true},
			CheckOutput{Decision: "error", Reason: "unknown op " + input.Op}, nil
	}

	_, err := execute.Run(s.auth, r, nil, func() (struct{}, error) {
		return struct{}{}, nil
	})
	out := CheckOutput{Capability: string(r.Capability)}
	switch {
	case err == nil:
		out.Decision = string(capability.Granted)
		out.Reason = "allowed: " + r.Reason
		return nil, out, nil
	default:
		out.Decision = decisionOf(err)
		out.Reason = err.Error()
		return &mcpsdk.CallToolResult{IsError: true}, out, nil
	}
}

func (s *Server) handleGrantPreset(ctx context.Context, req *mcpsdk.CallToolRequest, input GrantPresetInput) (*mcpsdk.CallToolResult, GrantPresetOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ttl := s.defaultTTL
	if input.TTLSeconds > 0 {
		ttl = time.Duration(input.TTLSeconds) * time.Second
	}

	grants, err := s.presets.Resolve(input.Preset, s.appID, ttl, s.now)
	if err != nil {
		return nil, GrantPresetOutput{}, err
	}

	out := GrantPresetOutput{Preset: input.Preset}
	for _, g := range grants {
		if err := s.auth.Grant(g); err != nil {
			return nil, GrantPresetOutput{}, err
		}
		out.Granted = append(out.Granted, string(g.Capability))
	}
	return nil, out, nil
}

func (s *Server) handleGrants(ctx context.Context, req *mcpsdk.CallToolRequest, input GrantsInput) (*mcpsdk.CallToolResult, GrantsOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := GrantsOutput{SessionID: s.auth.SessionID()}
	for _, g := range s.auth.ActiveGrants() {
		out.Grants = append(out.Grants, GrantItem{
			ID:           g.ID,
			Capability:   string(g.Capability),
			WindowID:     g.Scope.WindowID,
			ResourceIDs:  g.Scope.ResourceIDs,
			RequiresACC:  g.RequiresACC,
			TTLRemaining: s.auth.RemainingTTL(g).Round(time.Second).String(),
		})
	}
	return nil, out, nil
}

func (s *Server) handleRevokeAll(ctx context.Context, req *mcpsdk.CallToolRequest, input RevokeAllInput) (*mcpsdk.CallToolResult, RevokeAllOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.auth.ActiveGrants())
	s.auth.RevokeAll()
	return nil, RevokeAllOutput{Revoked: n}, nil
}

func violationResult(err error) (*mcpsdk.CallToolResult, CheckOutput, error) {
	var viol *adapter.ViolationError
	if errors.As(err, &viol) {
		return &mcpsdk.CallToolResult{IsError: true}, CheckOutput{
			Decision:   string(capability.Violation),
			Capability: string(viol.Request.Capability),
			Reason:     viol.Reason,
		}, nil
	}
	return nil, CheckOutput{}, err
}

func decisionOf(err error) string {
	var consent *execute.ConsentRequiredError
	var denied *authority.DeniedError
	var halt *authority.HaltError
	switch {
	case errors.As(err, &consent):
		return string(capability.ConsentRequired)
	case errors.As(err, &denied):
		return string(capability.Denied)
	case errors.As(err, &halt):
		return string(capability.Halted)
	}
	return "error"
}
