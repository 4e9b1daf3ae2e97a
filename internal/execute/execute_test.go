package execute

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/echosoundlab/sessionguard/internal/audit"
	"github.com/echosoundlab/sessionguard/internal/authority"
	"github.com/echosoundlab/sessionguard/internal/capability"
	"github.com/echosoundlab/sessionguard/internal/clock"
)

var t0 = time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

func exportRequest() capability.Request {
	return capability.Request{
		Capability: capability.RenderExport,
		Scope:      capability.Scope{AppID: "app1"},
		Reason:     "render mixdown",
	}
}

func TestRunSuccessInvokesOnce(t *testing.T) {
	fake := clock.NewFake(t0)
	auth := authority.New(fake.Now, audit.NewMemory())
	err := auth.Grant(capability.Grant{
		ID:         "g-export",
		Capability: capability.RenderExport,
		Scope:      capability.Scope{AppID: "app1"},
		ExpiresAt:  t0.Add(time.Minute),
	})
	if err != nil {
		t.Fatal(err)
	}

	calls := 0
	got, err := Run(auth, exportRequest(), nil, func() (string, error) {
		calls++
		return "rendered", nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if got != "rendered" {
		t.Errorf("result must pass through unmodified, got %q", got)
	}
	if calls != 1 {
		t.Errorf("action must run exactly once, ran %d times", calls)
	}
}

func TestRunConsentRequiredSkipsAction(t *testing.T) {
	// A render_export grant with ACC for app1 expiring in 60s: the assertion
	// succeeds, but executing through the wrapper must stop short of the
	// action and demand confirmation.
	fake := clock.NewFake(t0)
	sink := audit.NewMemory()
	auth := authority.New(fake.Now, sink)
	err := auth.Grant(capability.Grant{
		ID:          "g-acc",
		Capability:  capability.RenderExport,
		Scope:       capability.Scope{AppID: "app1"},
		ExpiresAt:   t0.Add(60 * time.Second),
		RequiresACC: true,
	})
	if err != nil {
		t.Fatal(err)
	}

	g, err := auth.AssertAllowed(exportRequest(), nil)
	if err != nil {
		t.Fatalf("assertion alone should succeed: %v", err)
	}
	if g.ID != "g-acc" {
		t.Errorf("expected the ACC grant, got %s", g.ID)
	}

	calls := 0
	_, err = Run(auth, exportRequest(), nil, func() (struct{}, error) {
		calls++
		return struct{}{}, nil
	})
	var consent *ConsentRequiredError
	if !errors.As(err, &consent) {
		t.Fatalf("expected ConsentRequiredError, got %v", err)
	}
	if consent.Grant.ID != "g-acc" {
		t.Errorf("error should name the gating grant, got %s", consent.Grant.ID)
	}
	if calls != 0 {
		t.Errorf("action must not run without consent, ran %d times", calls)
	}
	if sink.LastDecision() != "consent_required" {
		t.Errorf("consent gate must be audited, last decision %q", sink.LastDecision())
	}
}

func TestRunDenialPropagatesUntouched(t *testing.T) {
	fake := clock.NewFake(t0)
	auth := authority.New(fake.Now, audit.NewMemory())

	calls := 0
	_, err := Run(auth, exportRequest(), nil, func() (int, error) {
		calls++
		return 1, nil
	})
	var denied *authority.DeniedError
	if !errors.As(err, &denied) {
		t.Fatalf("denial must propagate as DeniedError, got %v", err)
	}
	if calls != 0 {
		t.Error("denied action must never run")
	}
}

func TestRunHaltPropagates(t *testing.T) {
	fake := clock.NewFake(t0)
	auth := authority.New(fake.Now, audit.NewMemory())
	err := auth.Grant(capability.Grant{
		ID:         "g-export",
		Capability: capability.RenderExport,
		Scope:      capability.Scope{AppID: "app1"},
		ExpiresAt:  t0.Add(time.Minute),
	})
	if err != nil {
		t.Fatal(err)
	}
	auth.BindIdentity(capability.ProcessIdentity{PID: 100, LaunchedAt: t0})

	calls := 0
	other := &capability.ProcessIdentity{PID: 200, LaunchedAt: t0}
	_, err = Run(auth, exportRequest(), other, func() (int, error) {
		calls++
		return 1, nil
	})
	var halt *authority.HaltError
	if !errors.As(err, &halt) {
		t.Fatalf("identity mismatch must surface as HaltError, got %v", err)
	}
	if calls != 0 {
		t.Error("halted action must never run")
	}
}

func TestRunActionErrorPassesThrough(t *testing.T) {
	fake := clock.NewFake(t0)
	auth := authority.New(fake.Now, audit.NewMemory())
	err := auth.Grant(capability.Grant{
		ID:         "g-export",
		Capability: capability.RenderExport,
		Scope:      capability.Scope{AppID: "app1"},
		ExpiresAt:  t0.Add(time.Minute),
	})
	if err != nil {
		t.Fatal(err)
	}

	boom := errors.New("render failed")
	_, err = Run(auth, exportRequest(), nil, func() (int, error) {
		return 0, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("the action's own error must pass through, got %v", err)
	}
}

func TestRunCtx(t *testing.T) {
	fake := clock.NewFake(t0)
	auth := authority.New(fake.Now, audit.NewMemory())
	err := auth.Grant(capability.Grant{
		ID:         "g-export",
		Capability: capability.RenderExport,
		Scope:      capability.Scope{AppID: "app1"},
		ExpiresAt:  t0.Add(time.Minute),
	})
	if err != nil {
		t.Fatal(err)
	}

	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "threaded")
	got, err := RunCtx(ctx, auth, exportRequest(), nil, func(ctx context.Context) (string, error) {
		v, _ := ctx.Value(key{}).(string)
		return v, nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if got != "threaded" {
		t.Errorf("context must reach the action, got %q", got)
	}
}
