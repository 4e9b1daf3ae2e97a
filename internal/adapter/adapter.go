// Package adapter is the only place that maps concrete application
// operations (autosave, parameter changes, batch export, file I/O, text
// entry, transport) onto capability requests, and the only place that
// applies domain escalation rules. The kernel never reaches the DSP
// pipeline, file system, or batch renderer directly; everything funnels
// through here and then through the execution wrapper.
package adapter

import (
	"fmt"

	"github.com/echosoundlab/sessionguard/internal/audit"
	"github.com/echosoundlab/sessionguard/internal/authority"
	"github.com/echosoundlab/sessionguard/internal/capability"
	"github.com/echosoundlab/sessionguard/internal/clock"
	"github.com/echosoundlab/sessionguard/internal/composite"
)

// Well-known resource ids used by save paths.
const (
	AutosaveResource     = "autosave"
	ExplicitSaveResource = "explicit-save"
)

// ViolationError is a structural violation: rejected before any capability
// check runs, and no grant can bypass it.
type ViolationError struct {
	Rule    string
	Reason  string
	Request capability.Request
}

func (e *ViolationError) Error() string {
	return fmt.Sprintf("structural violation (%s): %s", e.Rule, e.Reason)
}

// Adapter builds capability requests for one application instance.
type Adapter struct {
	appID string
	sink  audit.Sink
	now   clock.Clock
}

// New creates an Adapter for the given application id.
func New(appID string, sink audit.Sink, now clock.Clock) *Adapter {
	if sink == nil {
		sink = audit.Discard{}
	}
	return &Adapter{appID: appID, sink: sink, now: now}
}

// AutosaveAllowed checks whether the periodic autosave may write. A denial
// silently skips the autosave, the timer fires again later; an identity
// halt still takes effect through the underlying check.
func (ad *Adapter) AutosaveAllowed(auth *authority.Authority, current *capability.ProcessIdentity) bool {
	req := capability.Request{
		Capability: capability.FileWrite,
		Scope:      capability.Scope{AppID: ad.appID, ResourceIDs: []string{AutosaveResource}},
		Reason:     "periodic autosave",
	}
	return auth.IsAllowed(req, current)
}

// SaveRequest builds the request for a user-initiated save. Always returned
// to the caller; the matching grant may carry ACC.
func (ad *Adapter) SaveRequest() capability.Request {
	return capability.Request{
		Capability: capability.FileWrite,
		Scope:      capability.Scope{AppID: ad.appID, ResourceIDs: []string{ExplicitSaveResource}},
		Reason:     "explicit save",
	}
}

// ProcessingRequest classifies a processing-action execution by its
// reversibility tag. Anything short of fully reversible, including
// ambiguous "partial", is export-level.
func (ad *Adapter) ProcessingRequest(actionID string, rev capability.Reversibility) capability.Request {
	kind := capability.RenderExport
	if rev == capability.ReversibleFull {
		kind = capability.ParamAdjust
	}
	return capability.Request{
		Capability: kind,
		Scope:      capability.Scope{AppID: ad.appID, ResourceIDs: []string{actionID}},
		Reason:     fmt.Sprintf("processing action %s (%s reversibility)", actionID, rev),
	}
}

// ChainRequest classifies an ordered chain of actions through the composite
// guard and builds one request at the escalated level.
func (ad *Adapter) ChainRequest(actions []composite.Action) capability.Request {
	kind := composite.RequiredCapability(actions)
	return capability.Request{
		Capability: kind,
		Scope:      capability.Scope{AppID: ad.appID},
		Reason:     fmt.Sprintf("composite chain of %d actions classified %s", len(actions), kind),
	}
}

// BatchExportRequest builds the export-level request for one batch job.
// Enqueuing more than one job id in a single call is a structural violation:
// batch operations must not expand beyond individually-confirmed items.
func (ad *Adapter) BatchExportRequest(jobIDs []string) (capability.Request, error) {
	req := capability.Request{
		Capability: capability.RenderExport,
		Scope:      capability.Scope{AppID: ad.appID, ResourceIDs: jobIDs},
		Reason:     fmt.Sprintf("batch export of %d job(s)", len(jobIDs)),
	}

	if len(jobIDs) == 0 {
		return capability.Request{}, ad.violation("batch_chaining", "no job id supplied", req)
	}
	if len(jobIDs) > 1 {
		return capability.Request{}, ad.violation("batch_chaining",
			fmt.Sprintf("%d job ids in one enqueue; jobs must be confirmed individually", len(jobIDs)), req)
	}

	return req, nil
}

// TransportRequest builds the coarse, unscoped request for play/stop/seek.
// Transport has no lasting effect, so one capability covers all controls.
func (ad *Adapter) TransportRequest(control string) capability.Request {
	return capability.Request{
		Capability: capability.Transport,
		Scope:      capability.Scope{AppID: ad.appID},
		Reason:     "transport control: " + control,
	}
}

// violation records the rejected request with its error, then returns the
// error for propagation. Structural violations are audited like any other
// outcome.
func (ad *Adapter) violation(rule, reason string, req capability.Request) error {
	err := &ViolationError{Rule: rule, Reason: reason, Request: req}
	e := audit.NewEvent(capability.Violation, req, rule+": "+reason)
	e.Timestamp = audit.Stamp(ad.now())
	ad.sink.Record(e)
	return err
}
