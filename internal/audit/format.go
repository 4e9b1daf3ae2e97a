package audit

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const separator = "──────────────────────────────────────────────────────────────────"

// FormatTimeline renders a ReplayResult as a human-readable text timeline.
func FormatTimeline(result *ReplayResult) string {
	if len(result.Events) == 0 {
		return fmt.Sprintf("Session: %s | No events found.\n", result.SessionID)
	}

	var b strings.Builder

	first := formatDateTime(result.Summary.FirstTimestamp)
	last := formatTimeOnly(result.Summary.LastTimestamp)
	fmt.Fprintf(&b, "Session: %s | %s–%s UTC\n", result.SessionID, first, last)
	b.WriteString(separator + "\n")

	for _, e := range result.Events {
		ts := formatTimeOnly(e.Timestamp)
		decision := strings.ToUpper(e.Decision)
		scope := e.AppID
		if e.WindowID != "" {
			scope += "/" + e.WindowID
		}
		if len(e.Resources) > 0 {
			scope += " [" + strings.Join(e.Resources, ",") + "]"
		}

		fmt.Fprintf(&b, "%-10s %-17s %-14s %-36s %s\n",
			ts, decision, e.Capability, truncate(scope, 36), truncate(e.Reason, 40))
	}

	b.WriteString(separator + "\n")
	b.WriteString(formatSummary(result.Summary))

	return b.String()
}

// FormatReplayJSON renders a ReplayResult as indented JSON.
func FormatReplayJSON(result *ReplayResult) (string, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal replay result: %w", err)
	}
	return string(data), nil
}

func formatDateTime(ts string) string {
	t, err := time.Parse(TimestampFormat, ts)
	if err != nil {
		return ts
	}
	return t.Format("2006-01-02 15:04:05")
}

func formatTimeOnly(ts string) string {
	t, err := time.Parse(TimestampFormat, ts)
	if err != nil {
		return ts
	}
	return t.Format("15:04:05")
}

func formatSummary(s ReplaySummary) string {
	parts := []string{}
	if s.GrantedCount > 0 {
		parts = append(parts, fmt.Sprintf("%d granted", s.GrantedCount))
	}
	if s.DeniedCount > 0 {
		parts = append(parts, fmt.Sprintf("%d denied", s.DeniedCount))
	}
	if s.ConsentCount > 0 {
		parts = append(parts, fmt.Sprintf("%d consent-required", s.ConsentCount))
	}
	if s.HaltCount > 0 {
		parts = append(parts, fmt.Sprintf("%d halted", s.HaltCount))
	}
	if s.ViolationCount > 0 {
		parts = append(parts, fmt.Sprintf("%d violations", s.ViolationCount))
	}
	if len(parts) == 0 {
		parts = append(parts, "no decisions")
	}

	return fmt.Sprintf("Summary: %s (%d events)\n", strings.Join(parts, ", "), s.Total)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
