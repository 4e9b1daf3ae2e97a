package authority

import (
	"errors"
	"fmt"

	"github.com/echosoundlab/sessionguard/internal/capability"
)

// ErrExpiredGrant is returned by Grant when the grant's expiry is not
// strictly in the future. Expired grants are rejected at issuance and never
// stored.
var ErrExpiredGrant = errors.New("grant expiry is not in the future")

// DeniedError reports that no active grant matched the request. Recoverable:
// the caller can obtain a grant and retry, or abandon the action.
type DeniedError struct {
	Request capability.Request
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("denied: no grant for %s in app %q (reason: %s)",
		e.Request.Capability, e.Request.Scope.AppID, e.Request.Reason)
}

// HaltError reports that the supplied process identity no longer matches the
// bound one. All grants have been revoked as a side effect; the caller must
// re-establish authority from scratch. Intentionally severe.
type HaltError struct {
	Bound   capability.ProcessIdentity
	Current capability.ProcessIdentity
}

func (e *HaltError) Error() string {
	return fmt.Sprintf("halted: process identity changed (bound pid %d launched %s, current pid %d launched %s); all grants revoked",
		e.Bound.PID, e.Bound.LaunchedAt.UTC().Format("15:04:05.000"),
		e.Current.PID, e.Current.LaunchedAt.UTC().Format("15:04:05.000"))
}
