package scenario

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/echosoundlab/sessionguard/internal/adapter"
	"github.com/echosoundlab/sessionguard/internal/audit"
	"github.com/echosoundlab/sessionguard/internal/authority"
	"github.com/echosoundlab/sessionguard/internal/capability"
	"github.com/echosoundlab/sessionguard/internal/clock"
	"github.com/echosoundlab/sessionguard/internal/composite"
	"github.com/echosoundlab/sessionguard/internal/execute"
	"github.com/echosoundlab/sessionguard/internal/preset"
)

const defaultTTL = 5 * time.Minute

// Run evaluates all cases. Each case gets a fresh authority granted from the
// scenario's preset, so ordering between cases carries no hidden state.
func Run(s *Scenario, presets *preset.Config) *RunResult {
	result := &RunResult{Name: s.Name, Total: len(s.Cases)}

	ttl := defaultTTL
	if s.TTLSeconds > 0 {
		ttl = time.Duration(s.TTLSeconds) * time.Second
	}

	for i, c := range s.Cases {
		actual, reason := evaluate(s, c, presets, ttl)
		expected := strings.ToLower(strings.TrimSpace(c.Expect))

		cr := CaseResult{
			Index:    i + 1,
			Op:       c.Op,
			Target:   c.Target,
			Expected: expected,
			Actual:   actual,
			Reason:   reason,
		}

		if actual == expected {
			cr.Passed = true
			result.Passed++
		} else {
			result.Failed++
		}

		result.Cases = append(result.Cases, cr)
	}

	return result
}

func evaluate(s *Scenario, c Case, presets *preset.Config, ttl time.Duration) (decision, reason string) {
	now := clock.System()
	auth := authority.New(now, audit.Discard{})

	grants, err := presets.Resolve(s.Preset, s.AppID, ttl, now)
	if err != nil {
		return "error", err.Error()
	}
	for _, g := range grants {
		if err := auth.Grant(g); err != nil {
			return "error", err.Error()
		}
	}

	ad := adapter.New(s.AppID, audit.Discard{}, now)

	req, err := buildRequest(ad, auth, c)
	if err != nil {
		var viol *adapter.ViolationError
		if errors.As(err, &viol) {
			return string(capability.Violation), viol.Reason
		}
		return "error", err.Error()
	}
	if req == nil {
		// autosave op resolved to a boolean inside buildRequest
		return decisionFromBool(ad.AutosaveAllowed(auth, nil)), "autosave boolean check"
	}

	_, err = execute.Run(auth, *req, nil, func() (struct{}, error) {
		return struct{}{}, nil
	})
	switch {
	case err == nil:
		return string(capability.Granted), "action ran"
	default:
		var consent *execute.ConsentRequiredError
		var denied *authority.DeniedError
		var halt *authority.HaltError
		switch {
		case errors.As(err, &consent):
			return string(capability.ConsentRequired), err.Error()
		case errors.As(err, &denied):
			return string(capability.Denied), err.Error()
		case errors.As(err, &halt):
			return string(capability.Halted), err.Error()
		}
		return "error", err.Error()
	}
}

// buildRequest maps a case to a capability request. A nil request with nil
// error marks the autosave op, which is a boolean check rather than a
// request-producing operation.
func buildRequest(ad *adapter.Adapter, auth *authority.Authority, c Case) (*capability.Request, error) {
	switch strings.ToLower(c.Op) {
	case "autosave":
		return nil, nil
	case "save":
		req := ad.SaveRequest()
		return &req, nil
	case "parameter":
		req := ad.ParameterRequest(c.Target)
		return &req, nil
	case "processing":
		req := ad.ProcessingRequest(c.Target, capability.Reversibility(c.Reversibility))
		return &req, nil
	case "chain":
		actions := make([]composite.Action, 0, len(c.Actions))
		for _, step := range c.Actions {
			actions = append(actions, composite.Action{
				Reversibility: capability.Reversibility(step.Reversibility),
				Description:   step.Description,
			})
		}
		req := ad.ChainRequest(actions)
		return &req, nil
	case "batch_export":
		req, err := ad.BatchExportRequest(c.Jobs)
		if err != nil {
			return nil, err
		}
		return &req, nil
	case "file_write":
		req, err := ad.WriteRequest(c.Target, "scenario case")
		if err != nil {
			return nil, err
		}
		return &req, nil
	case "text_input":
		req := ad.TextInputRequest(c.Target, adapter.FieldClass(c.Class))
		return &req, nil
	case "transport":
		req := ad.TransportRequest(c.Target)
		return &req, nil
	default:
		return nil, fmt.Errorf("unknown op %q", c.Op)
	}
}

func decisionFromBool(allowed bool) string {
	if allowed {
		return string(capability.Granted)
	}
	return string(capability.Denied)
}

// LoadAndRun loads a scenario YAML file and an optional preset config, then
// runs every case.
func LoadAndRun(path, presetPath string) (*RunResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}

	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if s.AppID == "" {
		return nil, fmt.Errorf("scenario %s: app_id is required", path)
	}
	if s.Preset == "" {
		return nil, fmt.Errorf("scenario %s: preset is required", path)
	}

	presets, err := preset.LoadConfig(presetPath)
	if err != nil {
		return nil, fmt.Errorf("load presets: %w", err)
	}

	result := Run(&s, presets)
	result.File = path
	return result, nil
}
