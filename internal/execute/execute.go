// Package execute is the single call-path permitted to run a governed
// action. It combines check-then-act atomically: the wrapped action runs
// exactly once, and only on an unconditional grant. Nothing here ever runs
// an action on partial or inferred allowance.
package execute

import (
	"context"
	"fmt"

	"github.com/echosoundlab/sessionguard/internal/authority"
	"github.com/echosoundlab/sessionguard/internal/capability"
)

// ConsentRequiredError reports that a matching grant exists but demands
// active-consent confirmation before each use. The action did not run; the
// caller must obtain out-of-band confirmation and retry through a path that
// proves consent.
type ConsentRequiredError struct {
	Grant   capability.Grant
	Request capability.Request
}

func (e *ConsentRequiredError) Error() string {
	return fmt.Sprintf("consent required: grant %s for %s demands confirmation before use",
		e.Grant.ID, e.Request.Capability)
}

// Run checks the request against the authority and, only on an unconditional
// grant, invokes fn exactly once, returning its result unmodified. On denial
// or halt the authority's error propagates untouched and fn never runs. A
// grant carrying RequiresACC fails with *ConsentRequiredError instead of
// running fn.
func Run[T any](auth *authority.Authority, req capability.Request, current *capability.ProcessIdentity, fn func() (T, error)) (T, error) {
	var zero T

	grant, err := auth.AssertAllowed(req, current)
	if err != nil {
		return zero, err
	}

	if grant.RequiresACC {
		auth.RecordConsentRequired(req, grant)
		return zero, &ConsentRequiredError{Grant: grant, Request: req}
	}

	return fn()
}

// RunCtx is Run for actions that take a context. The check itself is not
// suspendable; only the wrapped action observes cancellation. A context
// already cancelled before the check still goes through the check, so the
// audit trail records the attempt either way.
func RunCtx[T any](ctx context.Context, auth *authority.Authority, req capability.Request, current *capability.ProcessIdentity, fn func(context.Context) (T, error)) (T, error) {
	return Run(auth, req, current, func() (T, error) {
		return fn(ctx)
	})
}
