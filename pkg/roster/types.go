// Package roster models raw meeting rosters and collapses the duplicate
// participant records one meeting instance produces (dial-in plus laptop,
// device names, nickname variants) into one attendee per person.
package roster

import "time"

// RawParticipant is a single roster entry as the meeting provider reported
// it. Ephemeral: it exists only between ingestion and dedup.
type RawParticipant struct {
	DisplayName string `json:"display_name"`
	Email       string `json:"email,omitempty"`
	DeviceFlag  bool   `json:"device_flag,omitempty"`
}

// SessionRecord is one ingested meeting instance. Immutable after creation;
// re-ingesting the same session upserts by (SessionID, DateKey).
type SessionRecord struct {
	SessionID       string           `json:"session_id"`
	DateKey         string           `json:"date_key"` // YYYY-MM-DD
	GroupLabel      string           `json:"group_label,omitempty"`
	StartTime       time.Time        `json:"start_time"`
	RawParticipants []RawParticipant `json:"raw_participants"`
}

// NaturalKey returns the upsert key for a session, so repeated ingestion of
// the same export is a no-op.
func (s *SessionRecord) NaturalKey() string {
	return s.SessionID + "|" + s.DateKey
}
