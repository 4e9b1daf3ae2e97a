// Package authority is the single source of truth for "is this allowed now".
// It holds the active grant set and the bound process identity, and answers
// every capability request with a tagged result: granted, denied, or halted.
//
// Default-deny: absence of a matching grant is denial, never implicit
// allowance. Grant storage is append/filter-only; the host serializes
// writers (single-threaded event loop), so reads take no lock.
package authority

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/echosoundlab/sessionguard/internal/audit"
	"github.com/echosoundlab/sessionguard/internal/capability"
	"github.com/echosoundlab/sessionguard/internal/clock"
)

// Result is the outcome of one capability check. Callers branch on Decision
// explicitly; Grant is set only when Decision is Granted, and the caller is
// responsible for inspecting Grant.RequiresACC before acting.
type Result struct {
	Decision capability.Decision
	Grant    *capability.Grant
	Reason   string
}

// Authority gates every governed action. Construct one per session with an
// injected clock and audit sink; multiple isolated authorities are cheap and
// the intended way to test.
type Authority struct {
	now       clock.Clock
	sink      audit.Sink
	sessionID string
	identity  *capability.ProcessIdentity
	grants    []capability.Grant
}

// New creates an Authority with no grants and no bound identity.
func New(now clock.Clock, sink audit.Sink) *Authority {
	if sink == nil {
		sink = audit.Discard{}
	}
	return &Authority{
		now:       now,
		sink:      sink,
		sessionID: "sess-" + uuid.NewString()[:8],
	}
}

// SessionID identifies this authority's audit stream.
func (a *Authority) SessionID() string {
	return a.sessionID
}

// Grant adds g to the active set. Grants are additive and independent: no
// merge, no upgrade. Issuance is refused if the expiry is not strictly in
// the future.
func (a *Authority) Grant(g capability.Grant) error {
	if !g.ExpiresAt.After(a.now()) {
		return fmt.Errorf("grant %s for %s: %w", g.ID, g.Capability, ErrExpiredGrant)
	}
	a.grants = append(a.grants, g)
	return nil
}

// RevokeAll clears every grant unconditionally. Once it returns, no prior
// grant is valid, including for checks already in flight that have not yet
// reached the authority.
func (a *Authority) RevokeAll() {
	a.grants = nil
}

// BindIdentity records the process identity for future comparison.
// Idempotent; last writer wins.
func (a *Authority) BindIdentity(id capability.ProcessIdentity) {
	bound := id
	a.identity = &bound
}

// BoundIdentity returns the currently bound identity, or nil.
func (a *Authority) BoundIdentity() *capability.ProcessIdentity {
	if a.identity == nil {
		return nil
	}
	bound := *a.identity
	return &bound
}

// Check answers one request. Order is fixed:
//  1. if current is supplied and an identity is bound, any mismatch on pid
//     or launch timestamp revokes everything and halts, before the request
//     is even considered
//  2. scan active grants for capability + liveness + scope; first match wins
//  3. no match is a denial with full context
//
// Every outcome is forwarded to the audit sink.
func (a *Authority) Check(req capability.Request, current *capability.ProcessIdentity) Result {
	if current != nil && a.identity != nil && !a.identity.Matches(*current) {
		bound := *a.identity
		a.halt()
		res := Result{
			Decision: capability.Halted,
			Reason: fmt.Sprintf("process identity changed (pid %d→%d); all grants revoked",
				bound.PID, current.PID),
		}
		a.record(capability.Halted, req, res.Reason)
		return res
	}

	now := a.now()
	for i := range a.grants {
		g := a.grants[i]
		if g.Capability != req.Capability {
			continue
		}
		if g.Expired(now) {
			continue
		}
		if !g.Scope.Covers(req.Scope) {
			continue
		}
		a.record(capability.Granted, req, "grant "+g.ID)
		return Result{Decision: capability.Granted, Grant: &g, Reason: "matched grant " + g.ID}
	}

	res := Result{
		Decision: capability.Denied,
		Reason:   denialReason(req),
	}
	a.record(capability.Denied, req, "")
	return res
}

// AssertAllowed is Check with an error-typed surface: the matching grant on
// success, *HaltError or *DeniedError otherwise. The action must not run on
// any error.
func (a *Authority) AssertAllowed(req capability.Request, current *capability.ProcessIdentity) (capability.Grant, error) {
	var bound capability.ProcessIdentity
	if a.identity != nil {
		bound = *a.identity
	}

	res := a.Check(req, current)
	switch res.Decision {
	case capability.Granted:
		return *res.Grant, nil
	case capability.Halted:
		cur := capability.ProcessIdentity{}
		if current != nil {
			cur = *current
		}
		return capability.Grant{}, &HaltError{Bound: bound, Current: cur}
	default:
		return capability.Grant{}, &DeniedError{Request: req}
	}
}

// IsAllowed reports whether the request would be granted. A real denial has
// no further side effect, but an identity-mismatch halt still revokes all
// grants; the halt is a property of the underlying check, not of the
// calling convention.
func (a *Authority) IsAllowed(req capability.Request, current *capability.ProcessIdentity) bool {
	return a.Check(req, current).Decision == capability.Granted
}

// ActiveGrants returns the unexpired grants, defensively copied.
func (a *Authority) ActiveGrants() []capability.Grant {
	now := a.now()
	out := make([]capability.Grant, 0, len(a.grants))
	for _, g := range a.grants {
		if !g.Expired(now) {
			out = append(out, g)
		}
	}
	return out
}

// RemainingTTL returns the grant's time to expiry, floored at zero.
func (a *Authority) RemainingTTL(g capability.Grant) time.Duration {
	left := g.ExpiresAt.Sub(a.now())
	if left < 0 {
		return 0
	}
	return left
}

// HasCapability reports whether any unexpired grant carries the kind,
// ignoring scope. A coarse existence check, never a substitute for Check.
func (a *Authority) HasCapability(k capability.Kind) bool {
	now := a.now()
	for _, g := range a.grants {
		if g.Capability == k && !g.Expired(now) {
			return true
		}
	}
	return false
}

// RecordConsentRequired forwards a consent-required outcome to the audit
// sink. The execution wrapper calls it when a matching grant demands ACC and
// the action is therefore withheld.
func (a *Authority) RecordConsentRequired(req capability.Request, g capability.Grant) {
	a.record(capability.ConsentRequired, req, "grant "+g.ID+" requires active consent")
}

// halt revokes all grants and clears the bound identity. Authority is
// non-transferable across crash/reload; the host starts over.
func (a *Authority) halt() {
	a.grants = nil
	a.identity = nil
}

func (a *Authority) record(d capability.Decision, req capability.Request, detail string) {
	e := audit.NewEvent(d, req, detail)
	e.SessionID = a.sessionID
	e.Timestamp = audit.Stamp(a.now())
	a.sink.Record(e)
}

func denialReason(req capability.Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "no active grant for %s in app %q", req.Capability, req.Scope.AppID)
	if req.Scope.WindowID != "" {
		fmt.Fprintf(&b, " window %q", req.Scope.WindowID)
	}
	if len(req.Scope.ResourceIDs) > 0 {
		fmt.Fprintf(&b, " resources %v", req.Scope.ResourceIDs)
	}
	return b.String()
}
