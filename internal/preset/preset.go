// Package preset bundles grants for the named operating modes of the
// application. Presets are pure functions of (app id, validity duration):
// they carry no runtime state and bake capability, scope, and ACC into each
// mode's intent. A convenience layer over authority.Grant, nothing more.
package preset

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/echosoundlab/sessionguard/internal/capability"
	"github.com/echosoundlab/sessionguard/internal/clock"
)

// BrowseOnly permits looking around without touching anything: navigation,
// file reads, and transport control. No confirmation gates.
func BrowseOnly(appID string, ttl time.Duration, now clock.Clock) []capability.Grant {
	expiry := now().Add(ttl)
	return []capability.Grant{
		newGrant(capability.Navigate, appID, expiry, false),
		newGrant(capability.FileRead, appID, expiry, false),
		newGrant(capability.Transport, appID, expiry, false),
	}
}

// FullMixing is the working mode: every non-export capability freely, plus
// render/export behind active-consent confirmation.
func FullMixing(appID string, ttl time.Duration, now clock.Clock) []capability.Grant {
	expiry := now().Add(ttl)
	return []capability.Grant{
		newGrant(capability.Navigate, appID, expiry, false),
		newGrant(capability.TextEntry, appID, expiry, false),
		newGrant(capability.ParamAdjust, appID, expiry, false),
		newGrant(capability.FileRead, appID, expiry, false),
		newGrant(capability.FileWrite, appID, expiry, false),
		newGrant(capability.Transport, appID, expiry, false),
		newGrant(capability.RenderExport, appID, expiry, true),
	}
}

// ExportOnly covers an unattended render run: read the project, then write
// and export only with confirmation per use.
func ExportOnly(appID string, ttl time.Duration, now clock.Clock) []capability.Grant {
	expiry := now().Add(ttl)
	return []capability.Grant{
		newGrant(capability.FileRead, appID, expiry, false),
		newGrant(capability.FileWrite, appID, expiry, true),
		newGrant(capability.RenderExport, appID, expiry, true),
	}
}

var builtins = map[string]func(string, time.Duration, clock.Clock) []capability.Grant{
	"browse-only": BrowseOnly,
	"full-mixing": FullMixing,
	"export-only": ExportOnly,
}

// ByName dispatches to a built-in preset, failing on unrecognized names.
func ByName(name, appID string, ttl time.Duration, now clock.Clock) ([]capability.Grant, error) {
	fn, ok := builtins[name]
	if !ok {
		return nil, fmt.Errorf("unknown preset %q (built-ins: %v)", name, Names())
	}
	return fn(appID, ttl, now), nil
}

// Names returns the sorted built-in preset names.
func Names() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func newGrant(k capability.Kind, appID string, expiry time.Time, acc bool) capability.Grant {
	return capability.Grant{
		ID:          uuid.NewString(),
		Capability:  k,
		Scope:       capability.Scope{AppID: appID},
		ExpiresAt:   expiry,
		RequiresACC: acc,
	}
}
