// Package composite decides whether a chain of nominally-reversible actions
// must escalate to export-level authority. One irreversible step taints the
// batch; so does a long run of small edits, or any textual hint that the
// chain touches persistent state. Over-escalation is acceptable,
// under-escalation is not.
package composite

import (
	"strings"

	"github.com/echosoundlab/sessionguard/internal/capability"
)

// Action is one step in a chain under classification. Derived, not stored.
type Action struct {
	Reversibility capability.Reversibility
	Description   string
}

// MaxReversibleChain is the ceiling on consecutive fully-reversible actions
// before the chain escalates. Long chains of small changes can shift a
// baseline as much as one destructive operation.
const MaxReversibleChain = 5

// stateChangeVocabulary flags descriptions that hint at persistent-state
// mutation. Textual hints override the "reversible" label.
var stateChangeVocabulary = []string{
	"save", "buffer", "state", "persist", "cache", "baseline", "export",
}

// RequiredCapability classifies an ordered chain of actions:
//
//	empty chain                       → ParamAdjust (lowest privilege)
//	any non-fully-reversible action   → RenderExport
//	more than MaxReversibleChain      → RenderExport
//	state-change vocabulary in text   → RenderExport
//	otherwise                         → ParamAdjust
func RequiredCapability(actions []Action) capability.Kind {
	if len(actions) == 0 {
		return capability.ParamAdjust
	}

	for _, a := range actions {
		if a.Reversibility != capability.ReversibleFull {
			return capability.RenderExport
		}
	}

	if len(actions) > MaxReversibleChain {
		return capability.RenderExport
	}

	for _, a := range actions {
		if HintsStateChange(a.Description) {
			return capability.RenderExport
		}
	}

	return capability.ParamAdjust
}

// HintsStateChange reports whether the description contains any word of the
// state-change vocabulary. Case-insensitive substring match.
func HintsStateChange(description string) bool {
	d := strings.ToLower(description)
	for _, word := range stateChangeVocabulary {
		if strings.Contains(d, word) {
			return true
		}
	}
	return false
}
