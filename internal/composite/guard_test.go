package composite

import (
	"testing"

	"github.com/echosoundlab/sessionguard/internal/capability"
)

func reversible(n int) []Action {
	actions := make([]Action, n)
	for i := range actions {
		actions[i] = Action{Reversibility: capability.ReversibleFull, Description: "nudge eq band"}
	}
	return actions
}

func TestEmptyChain(t *testing.T) {
	if got := RequiredCapability(nil); got != capability.ParamAdjust {
		t.Errorf("empty chain should require param_adjust, got %s", got)
	}
}

func TestReversibleChainWithinCeiling(t *testing.T) {
	if got := RequiredCapability(reversible(MaxReversibleChain)); got != capability.ParamAdjust {
		t.Errorf("5 reversible edits should stay at param_adjust, got %s", got)
	}
}

func TestReversibleChainBeyondCeiling(t *testing.T) {
	if got := RequiredCapability(reversible(MaxReversibleChain + 1)); got != capability.RenderExport {
		t.Errorf("6 reversible edits must escalate, got %s", got)
	}
}

func TestNonReversibleActionAnywhere(t *testing.T) {
	actions := reversible(3)
	actions[1].Reversibility = capability.ReversibleNone
	if got := RequiredCapability(actions); got != capability.RenderExport {
		t.Errorf("one irreversible step must escalate, got %s", got)
	}

	actions[1].Reversibility = capability.ReversiblePartial
	if got := RequiredCapability(actions); got != capability.RenderExport {
		t.Errorf("partial reversibility counts as irreversible, got %s", got)
	}
}

func TestSingleNonReversibleAction(t *testing.T) {
	actions := []Action{{Reversibility: capability.ReversibleNone, Description: "mixdown"}}
	if got := RequiredCapability(actions); got != capability.RenderExport {
		t.Errorf("a single irreversible action must escalate, got %s", got)
	}
}

func TestVocabularyEscalates(t *testing.T) {
	actions := reversible(2)
	actions[1].Description = "write undo Buffer"
	if got := RequiredCapability(actions); got != capability.RenderExport {
		t.Errorf("state-change vocabulary must escalate, got %s", got)
	}
}

func TestHintsStateChange(t *testing.T) {
	cases := []struct {
		desc string
		want bool
	}{
		{"save the session", true},
		{"Export stems", true},
		{"reset to BASELINE", true},
		{"persistent tweak", true}, // substring "persist"
		{"nudge eq band", false},
		{"", false},
	}
	for _, c := range cases {
		if got := HintsStateChange(c.desc); got != c.want {
			t.Errorf("HintsStateChange(%q) = %v, want %v", c.desc, got, c.want)
		}
	}
}
