package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// ReplayFilter holds filtering criteria for session replay.
type ReplayFilter struct {
	SessionID string
	From      time.Time // zero value = no lower bound
	To        time.Time // zero value = no upper bound
}

// ReplaySummary holds decision counts and metadata for a replayed session.
type ReplaySummary struct {
	Total          int    `json:"total"`
	GrantedCount   int    `json:"granted_count"`
	DeniedCount    int    `json:"denied_count"`
	ConsentCount   int    `json:"consent_count"`
	HaltCount      int    `json:"halt_count"`
	ViolationCount int    `json:"violation_count"`
	FirstTimestamp string `json:"first_timestamp"`
	LastTimestamp  string `json:"last_timestamp"`
}

// ReplayResult holds filtered events and summary for a session replay.
type ReplayResult struct {
	SessionID string        `json:"session_id"`
	Events    []Event       `json:"events"`
	Summary   ReplaySummary `json:"summary"`
}

// Replay reads the audit log and returns events matching the filter.
// An empty SessionID matches every event.
func Replay(path string, filter ReplayFilter) (*ReplayResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	result := &ReplayResult{SessionID: filter.SessionID}

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e Event
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			continue // skip malformed lines
		}

		if filter.SessionID != "" && e.SessionID != filter.SessionID {
			continue
		}

		if !filter.From.IsZero() || !filter.To.IsZero() {
			ts, err := time.Parse(TimestampFormat, e.Timestamp)
			if err != nil {
				continue // skip unparseable timestamps
			}
			if !filter.From.IsZero() && ts.Before(filter.From) {
				continue
			}
			if !filter.To.IsZero() && ts.After(filter.To) {
				continue
			}
		}

		result.Events = append(result.Events, e)
		updateSummary(&result.Summary, e)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read audit log: %w", err)
	}

	return result, nil
}

func updateSummary(s *ReplaySummary, e Event) {
	s.Total++

	switch e.Decision {
	case "granted":
		s.GrantedCount++
	case "denied":
		s.DeniedCount++
	case "consent_required":
		s.ConsentCount++
	case "halted":
		s.HaltCount++
	case "violation":
		s.ViolationCount++
	}

	if s.FirstTimestamp == "" {
		s.FirstTimestamp = e.Timestamp
	}
	s.LastTimestamp = e.Timestamp
}
