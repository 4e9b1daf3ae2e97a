// Package capability defines the shared vocabulary of the authorization
// kernel: capability kinds, scopes, grants, requests, process identity, and
// the decision taxonomy. Pure data contracts; no behavior beyond matching.
package capability

import (
	"fmt"
	"strings"
	"time"
)

// Kind is an enumerated permission kind. Every effect the application can
// produce maps to exactly one Kind; nothing is ungoverned.
type Kind string

const (
	Navigate     Kind = "navigate"
	TextEntry    Kind = "text_entry"
	ParamAdjust  Kind = "param_adjust"
	FileRead     Kind = "file_read"
	FileWrite    Kind = "file_write"
	Transport    Kind = "transport"
	RenderExport Kind = "render_export"
)

// Kinds lists every capability kind, for config validation and exhaustive
// iteration.
var Kinds = []Kind{
	Navigate, TextEntry, ParamAdjust, FileRead, FileWrite, Transport, RenderExport,
}

// ParseKind maps a config/scenario string to a Kind, rejecting unknowns.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown capability kind %q", s)
}

// Scope is the boundary within which a grant or request is valid.
// AppID is mandatory and matched exactly: no cross-application bleed, ever.
// WindowID and ResourceIDs are optional narrowings.
type Scope struct {
	AppID       string   `json:"app_id" yaml:"app_id"`
	WindowID    string   `json:"window_id,omitempty" yaml:"window_id,omitempty"`
	ResourceIDs []string `json:"resource_ids,omitempty" yaml:"resource_ids,omitempty"`
}

// Covers reports whether a grant with this scope satisfies the request scope.
// The grant scope is a superset constraint: app id exact; if the grant names
// a window, the request's must equal it (absent means any window); if the
// grant names resources, every requested resource must appear in the grant's
// list (an empty request resource list vacuously satisfies).
func (s Scope) Covers(req Scope) bool {
	if s.AppID != req.AppID {
		return false
	}
	if s.WindowID != "" && s.WindowID != req.WindowID {
		return false
	}
	if len(s.ResourceIDs) > 0 {
		for _, want := range req.ResourceIDs {
			if !containsID(s.ResourceIDs, want) {
				return false
			}
		}
	}
	return true
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// Grant is an immutable, time-bounded authorization for one capability.
// Grants are never mutated after issuance; revocation removes rather than
// edits. ExpiresAt is absolute, against the kernel's injected clock.
type Grant struct {
	ID          string    `json:"id"`
	Capability  Kind      `json:"capability"`
	Scope       Scope     `json:"scope"`
	ExpiresAt   time.Time `json:"expires_at"`
	RequiresACC bool      `json:"requires_acc"`
}

// Expired reports whether the grant is dead at the given instant.
func (g Grant) Expired(now time.Time) bool {
	return !now.Before(g.ExpiresAt)
}

// Request is one attempted use of a capability. Reason is free text and is
// always written to the audit sink, on allow and on deny alike.
type Request struct {
	Capability Kind   `json:"capability"`
	Scope      Scope  `json:"scope"`
	Reason     string `json:"reason"`
}

// ProcessIdentity ties authority validity to one running process instance.
// A pid recycled after an in-place restart has a different launch timestamp,
// so authority never survives a crash/reload.
type ProcessIdentity struct {
	PID        int       `json:"pid"`
	LaunchedAt time.Time `json:"launched_at"`
}

// Matches reports whether two identities denote the same process instance.
func (p ProcessIdentity) Matches(other ProcessIdentity) bool {
	return p.PID == other.PID && p.LaunchedAt.Equal(other.LaunchedAt)
}

// Decision is the tagged outcome of a kernel check. Callers branch on it
// explicitly; no outcome is signalled through panics or sentinel nils.
type Decision string

const (
	Granted         Decision = "granted"
	Denied          Decision = "denied"
	ConsentRequired Decision = "consent_required"
	Halted          Decision = "halted"
	Violation       Decision = "violation"
)

// Reversibility tags how undoable a processing action is. Anything short of
// fully reversible is treated as irreversible.
type Reversibility string

const (
	ReversibleFull    Reversibility = "full"
	ReversiblePartial Reversibility = "partial"
	ReversibleNone    Reversibility = "none"
)
