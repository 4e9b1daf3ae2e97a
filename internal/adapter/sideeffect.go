package adapter

import (
	"fmt"

	"github.com/echosoundlab/sessionguard/internal/capability"
)

// sideEffectParams maps parameter ids whose adjustment reaches beyond the
// parameter itself to the capability that effect actually needs. Flipping
// the autosave toggle is a write decision; enabling background render is an
// export decision. Finite and explicit; an id absent here is an ordinary
// parameter.
var sideEffectParams = map[string]capability.Kind{
	"autosave_enabled":   capability.FileWrite,
	"working_directory":  capability.FileWrite,
	"stem_cache_dir":     capability.FileWrite,
	"background_render":  capability.RenderExport,
	"render_on_save":     capability.RenderExport,
	"export_sample_rate": capability.RenderExport,
}

// ParameterRequest builds the request for adjusting one parameter. Ordinary
// parameters need only param_adjust scoped to the parameter id; ids in the
// side-effect table escalate to the capability their effect requires.
func (ad *Adapter) ParameterRequest(paramID string) capability.Request {
	kind := capability.ParamAdjust
	reason := "parameter adjustment: " + paramID
	if escalated, ok := sideEffectParams[paramID]; ok {
		kind = escalated
		reason = fmt.Sprintf("parameter %s has side effects, escalated to %s", paramID, escalated)
	}
	return capability.Request{
		Capability: kind,
		Scope:      capability.Scope{AppID: ad.appID, ResourceIDs: []string{paramID}},
		Reason:     reason,
	}
}

// FieldClass is the caller-supplied sensitivity tag for a text field.
type FieldClass string

const (
	FieldFreeText  FieldClass = "free_text"  // lyrics, track names, notes
	FieldParameter FieldClass = "parameter"  // numeric entry boxes
	FieldPath      FieldClass = "path"       // destination pickers
	FieldCommand   FieldClass = "command"    // console / scripting entry
)

// fieldCapabilities is the finite mapping from field class to capability.
// Command entry can trigger arbitrary effects, so it sits at export level.
var fieldCapabilities = map[FieldClass]capability.Kind{
	FieldFreeText:  capability.TextEntry,
	FieldParameter: capability.ParamAdjust,
	FieldPath:      capability.FileWrite,
	FieldCommand:   capability.RenderExport,
}

// TextInputRequest builds the request for typing into a field. Unclassified
// fields are treated as command entry.
func (ad *Adapter) TextInputRequest(fieldID string, class FieldClass) capability.Request {
	kind, ok := fieldCapabilities[class]
	if !ok {
		class = FieldCommand
		kind = fieldCapabilities[FieldCommand]
	}
	return capability.Request{
		Capability: kind,
		Scope:      capability.Scope{AppID: ad.appID, ResourceIDs: []string{fieldID}},
		Reason:     fmt.Sprintf("text input into %s field %s", class, fieldID),
	}
}
