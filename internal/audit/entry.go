// Package audit is the kernel's audit surface: every check outcome (allow,
// deny, consent-required, identity halt, structural violation) is forwarded
// to a Sink with full context. The file-backed Log is a hash-chained JSONL
// stream; Memory is the deterministic sink used by tests and the demo.
package audit

import (
	"time"

	"github.com/echosoundlab/sessionguard/internal/capability"
)

// Event is one audited kernel outcome.
// All fields are flat scalars or string slices (no map[string]any) to keep
// json.Marshal field order deterministic for reproducible hashing.
type Event struct {
	Timestamp  string   `json:"ts"`
	SessionID  string   `json:"session_id,omitempty"`
	Decision   string   `json:"decision"`
	Capability string   `json:"capability"`
	AppID      string   `json:"app_id"`
	WindowID   string   `json:"window_id,omitempty"`
	Resources  []string `json:"resources,omitempty"`
	Reason     string   `json:"reason"`
	Detail     string   `json:"detail,omitempty"`
	PrevHash   string   `json:"prev_hash,omitempty"`
}

// NewEvent builds an Event from a request and its decision. The timestamp is
// stamped by the sink if left empty.
func NewEvent(decision capability.Decision, req capability.Request, detail string) Event {
	return Event{
		Decision:   string(decision),
		Capability: string(req.Capability),
		AppID:      req.Scope.AppID,
		WindowID:   req.Scope.WindowID,
		Resources:  req.Scope.ResourceIDs,
		Reason:     req.Reason,
		Detail:     detail,
	}
}

// Sink receives every kernel outcome. Implementations must not block the
// check path on anything slower than a local append.
type Sink interface {
	Record(Event)
}

// TimestampFormat is the layout used in audit event timestamps.
const TimestampFormat = "2006-01-02T15:04:05.000Z"

// Stamp returns t formatted for an audit event.
func Stamp(t time.Time) string {
	return t.UTC().Format(TimestampFormat)
}
