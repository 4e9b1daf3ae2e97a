package authority

import (
	"errors"
	"testing"
	"time"

	"github.com/echosoundlab/sessionguard/internal/audit"
	"github.com/echosoundlab/sessionguard/internal/capability"
	"github.com/echosoundlab/sessionguard/internal/clock"
)

var t0 = time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

func testAuthority() (*Authority, *clock.Fake, *audit.Memory) {
	fake := clock.NewFake(t0)
	sink := audit.NewMemory()
	return New(fake.Now, sink), fake, sink
}

func paramGrant(scope capability.Scope, ttl time.Duration) capability.Grant {
	return capability.Grant{
		ID:         "g-param",
		Capability: capability.ParamAdjust,
		Scope:      scope,
		ExpiresAt:  t0.Add(ttl),
	}
}

func paramRequest(scope capability.Scope) capability.Request {
	return capability.Request{
		Capability: capability.ParamAdjust,
		Scope:      scope,
		Reason:     "test adjustment",
	}
}

func TestGrantThenAssertAllowed(t *testing.T) {
	auth, _, _ := testAuthority()
	if err := auth.Grant(paramGrant(capability.Scope{AppID: "app1"}, time.Minute)); err != nil {
		t.Fatalf("grant failed: %v", err)
	}

	g, err := auth.AssertAllowed(paramRequest(capability.Scope{AppID: "app1"}), nil)
	if err != nil {
		t.Fatalf("expected grant, got %v", err)
	}
	if g.ID != "g-param" {
		t.Errorf("expected the issued grant back, got %s", g.ID)
	}
}

func TestDefaultDeny(t *testing.T) {
	auth, _, sink := testAuthority()

	_, err := auth.AssertAllowed(paramRequest(capability.Scope{AppID: "app1"}), nil)
	if err == nil {
		t.Fatal("empty authority must deny")
	}
	var denied *DeniedError
	if !errors.As(err, &denied) {
		t.Fatalf("expected DeniedError, got %T", err)
	}
	if auth.IsAllowed(paramRequest(capability.Scope{AppID: "app1"}), nil) {
		t.Error("IsAllowed must be false on denial")
	}

	if sink.LastDecision() != "denied" {
		t.Errorf("denial must be audited, last decision %q", sink.LastDecision())
	}
}

func TestExpiredGrantIssuanceRejected(t *testing.T) {
	auth, _, _ := testAuthority()

	err := auth.Grant(paramGrant(capability.Scope{AppID: "app1"}, 0))
	if !errors.Is(err, ErrExpiredGrant) {
		t.Fatalf("expected ErrExpiredGrant, got %v", err)
	}
	if len(auth.ActiveGrants()) != 0 {
		t.Error("rejected grant must never be stored")
	}
}

func TestExpiryExcludesFromMatchingAndListing(t *testing.T) {
	auth, fake, _ := testAuthority()
	if err := auth.Grant(paramGrant(capability.Scope{AppID: "app1"}, time.Minute)); err != nil {
		t.Fatalf("grant failed: %v", err)
	}

	fake.Advance(time.Minute) // now == expiresAt

	if auth.IsAllowed(paramRequest(capability.Scope{AppID: "app1"}), nil) {
		t.Error("grant at expiry must not match")
	}
	if len(auth.ActiveGrants()) != 0 {
		t.Error("expired grant must not be listed")
	}
}

func TestIdentityHaltRevokesEverything(t *testing.T) {
	auth, _, sink := testAuthority()
	if err := auth.Grant(paramGrant(capability.Scope{AppID: "app1"}, time.Hour)); err != nil {
		t.Fatalf("grant failed: %v", err)
	}

	original := capability.ProcessIdentity{PID: 100, LaunchedAt: t0}
	auth.BindIdentity(original)

	// Same pid, later launch timestamp: in-place restart.
	restarted := capability.ProcessIdentity{PID: 100, LaunchedAt: t0.Add(time.Second)}
	_, err := auth.AssertAllowed(paramRequest(capability.Scope{AppID: "app1"}), &restarted)
	var halt *HaltError
	if !errors.As(err, &halt) {
		t.Fatalf("expected HaltError, got %v", err)
	}
	if sink.LastDecision() != "halted" {
		t.Errorf("halt must be audited, last decision %q", sink.LastDecision())
	}

	// Every subsequent call fails even with the original identity.
	if auth.IsAllowed(paramRequest(capability.Scope{AppID: "app1"}), &original) {
		t.Error("grants must stay revoked after a halt")
	}
	if len(auth.ActiveGrants()) != 0 {
		t.Error("halt must revoke all grants")
	}
}

func TestIdentityHaltOnDifferentPID(t *testing.T) {
	auth, _, _ := testAuthority()
	if err := auth.Grant(paramGrant(capability.Scope{AppID: "app1"}, time.Hour)); err != nil {
		t.Fatalf("grant failed: %v", err)
	}
	auth.BindIdentity(capability.ProcessIdentity{PID: 100, LaunchedAt: t0})

	other := capability.ProcessIdentity{PID: 200, LaunchedAt: t0}
	res := auth.Check(paramRequest(capability.Scope{AppID: "app1"}), &other)
	if res.Decision != capability.Halted {
		t.Fatalf("expected halted, got %s", res.Decision)
	}
}

func TestIsAllowedHaltSideEffect(t *testing.T) {
	auth, _, _ := testAuthority()
	if err := auth.Grant(paramGrant(capability.Scope{AppID: "app1"}, time.Hour)); err != nil {
		t.Fatalf("grant failed: %v", err)
	}
	auth.BindIdentity(capability.ProcessIdentity{PID: 100, LaunchedAt: t0})

	other := capability.ProcessIdentity{PID: 200, LaunchedAt: t0}
	if auth.IsAllowed(paramRequest(capability.Scope{AppID: "app1"}), &other) {
		t.Fatal("mismatched identity must not be allowed")
	}
	// The boolean wrapper still carries the halt's side effect.
	if len(auth.ActiveGrants()) != 0 {
		t.Error("IsAllowed must still revoke on identity mismatch")
	}
}

func TestNoIdentityBoundSkipsCheck(t *testing.T) {
	auth, _, _ := testAuthority()
	if err := auth.Grant(paramGrant(capability.Scope{AppID: "app1"}, time.Hour)); err != nil {
		t.Fatalf("grant failed: %v", err)
	}

	current := capability.ProcessIdentity{PID: 999, LaunchedAt: t0}
	if !auth.IsAllowed(paramRequest(capability.Scope{AppID: "app1"}), &current) {
		t.Error("without a bound identity the identity check is skipped")
	}
}

func TestNoCrossAppBleed(t *testing.T) {
	auth, _, _ := testAuthority()
	if err := auth.Grant(paramGrant(capability.Scope{AppID: "app1"}, time.Hour)); err != nil {
		t.Fatalf("grant failed: %v", err)
	}

	allowedApp1 := auth.IsAllowed(paramRequest(capability.Scope{AppID: "app1"}), nil)
	allowedApp2 := auth.IsAllowed(paramRequest(capability.Scope{AppID: "app2"}), nil)
	if allowedApp1 && allowedApp2 {
		t.Fatal("two requests differing only in app id must never both match")
	}
	if !allowedApp1 {
		t.Error("the granted app must match")
	}
}

func TestResourceSubsetMatching(t *testing.T) {
	auth, _, _ := testAuthority()
	scope := capability.Scope{AppID: "app1", ResourceIDs: []string{"A", "B"}}
	if err := auth.Grant(paramGrant(scope, time.Hour)); err != nil {
		t.Fatalf("grant failed: %v", err)
	}

	if !auth.IsAllowed(paramRequest(capability.Scope{AppID: "app1", ResourceIDs: []string{"A"}}), nil) {
		t.Error("{A} should match a grant for {A,B}")
	}
	if auth.IsAllowed(paramRequest(capability.Scope{AppID: "app1", ResourceIDs: []string{"A", "C"}}), nil) {
		t.Error("{A,C} must not match a grant for {A,B}")
	}
}

func TestRevokeAll(t *testing.T) {
	auth, _, _ := testAuthority()
	if err := auth.Grant(paramGrant(capability.Scope{AppID: "app1"}, time.Hour)); err != nil {
		t.Fatalf("grant failed: %v", err)
	}

	auth.RevokeAll()
	if auth.IsAllowed(paramRequest(capability.Scope{AppID: "app1"}), nil) {
		t.Error("no grant survives RevokeAll")
	}
}

func TestRemainingTTLFlooredAtZero(t *testing.T) {
	auth, fake, _ := testAuthority()
	g := paramGrant(capability.Scope{AppID: "app1"}, time.Minute)
	if err := auth.Grant(g); err != nil {
		t.Fatalf("grant failed: %v", err)
	}

	if got := auth.RemainingTTL(g); got != time.Minute {
		t.Errorf("expected 1m remaining, got %s", got)
	}

	fake.Advance(2 * time.Minute)
	if got := auth.RemainingTTL(g); got != 0 {
		t.Errorf("expected 0 after expiry, got %s", got)
	}
}

func TestHasCapabilityIgnoresScope(t *testing.T) {
	auth, fake, _ := testAuthority()
	scope := capability.Scope{AppID: "app1", WindowID: "mixer", ResourceIDs: []string{"A"}}
	if err := auth.Grant(paramGrant(scope, time.Minute)); err != nil {
		t.Fatalf("grant failed: %v", err)
	}

	if !auth.HasCapability(capability.ParamAdjust) {
		t.Error("capability exists regardless of scope")
	}
	if auth.HasCapability(capability.RenderExport) {
		t.Error("absent capability must report false")
	}

	fake.Advance(2 * time.Minute)
	if auth.HasCapability(capability.ParamAdjust) {
		t.Error("expired grants do not count")
	}
}

func TestActiveGrantsDefensiveCopy(t *testing.T) {
	auth, _, _ := testAuthority()
	if err := auth.Grant(paramGrant(capability.Scope{AppID: "app1"}, time.Hour)); err != nil {
		t.Fatalf("grant failed: %v", err)
	}

	list := auth.ActiveGrants()
	list[0].Capability = capability.RenderExport

	if auth.ActiveGrants()[0].Capability != capability.ParamAdjust {
		t.Error("mutating the returned slice must not affect the authority")
	}
}

func TestFirstMatchWins(t *testing.T) {
	auth, _, sink := testAuthority()
	first := paramGrant(capability.Scope{AppID: "app1"}, time.Hour)
	second := paramGrant(capability.Scope{AppID: "app1"}, time.Hour)
	second.ID = "g-second"
	if err := auth.Grant(first); err != nil {
		t.Fatalf("grant failed: %v", err)
	}
	if err := auth.Grant(second); err != nil {
		t.Fatalf("grant failed: %v", err)
	}

	g, err := auth.AssertAllowed(paramRequest(capability.Scope{AppID: "app1"}), nil)
	if err != nil {
		t.Fatalf("expected grant, got %v", err)
	}
	if g.ID != "g-param" {
		t.Errorf("first matching grant suffices, got %s", g.ID)
	}
	if sink.LastDecision() != "granted" {
		t.Errorf("allow must be audited, last decision %q", sink.LastDecision())
	}
}
