package ingest

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"sort"
	"strings"

	"github.com/otherjamesbrown/funnel-cli/pkg/logging"
	"github.com/otherjamesbrown/funnel-cli/pkg/roster"
)

// rosterPayload is the JSON export shape: one object per session.
type rosterPayload struct {
	SessionID    string `json:"session_id"`
	Date         string `json:"date"`
	GroupLabel   string `json:"group_label"`
	StartTime    string `json:"start_time"`
	Participants []struct {
		Name       string `json:"name"`
		Email      string `json:"email"`
		DeviceFlag bool   `json:"device_flag"`
	} `json:"participants"`
}

// ParseRosterJSON decodes a JSON array of session objects. Sessions without
// a session id or parseable date are skipped.
func ParseRosterJSON(r io.Reader, logger logging.Logger) ([]roster.SessionRecord, Stats, error) {
	var payloads []rosterPayload
	if err := json.NewDecoder(r).Decode(&payloads); err != nil {
		return nil, Stats{}, err
	}

	var stats Stats
	var sessions []roster.SessionRecord
	for _, p := range payloads {
		dateKey := parseDateKey(p.Date)
		if p.SessionID == "" || dateKey == "" {
			stats.Skipped++
			logger.Debug("Skipping roster session", logging.F("session_id", p.SessionID), logging.F("date", p.Date))
			continue
		}
		rec := roster.SessionRecord{
			SessionID:  p.SessionID,
			DateKey:    dateKey,
			GroupLabel: p.GroupLabel,
			StartTime:  parseStartTime(p.StartTime),
		}
		for _, part := range p.Participants {
			if strings.TrimSpace(part.Name) == "" {
				continue
			}
			rec.RawParticipants = append(rec.RawParticipants, roster.RawParticipant{
				DisplayName: part.Name,
				Email:       strings.ToLower(strings.TrimSpace(part.Email)),
				DeviceFlag:  part.DeviceFlag,
			})
		}
		sessions = append(sessions, rec)
		stats.Parsed++
	}
	return sessions, stats, nil
}

// ParseRosterCSV reads a participant-per-row export and groups rows into
// sessions. Expected columns: session_id, date, group, start_time, name,
// email. Rows missing a session id, date, or name are skipped.
func ParseRosterCSV(r io.Reader, logger logging.Logger) ([]roster.SessionRecord, Stats, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, Stats{}, err
	}
	if len(rows) == 0 {
		return nil, Stats{}, nil
	}

	h := newHeader(rows[0])
	var stats Stats
	byKey := map[string]*roster.SessionRecord{}
	var order []string

	for _, row := range rows[1:] {
		sessionID := h.get(row, "session_id", "meeting_id")
		dateKey := parseDateKey(h.get(row, "date", "meeting_date"))
		name := h.get(row, "name", "participant_name", "display_name")
		if sessionID == "" || dateKey == "" || name == "" {
			stats.Skipped++
			continue
		}

		key := sessionID + "|" + dateKey
		rec := byKey[key]
		if rec == nil {
			rec = &roster.SessionRecord{
				SessionID:  sessionID,
				DateKey:    dateKey,
				GroupLabel: h.get(row, "group", "group_label"),
				StartTime:  parseStartTime(h.get(row, "start_time")),
			}
			byKey[key] = rec
			order = append(order, key)
		}
		rec.RawParticipants = append(rec.RawParticipants, roster.RawParticipant{
			DisplayName: name,
			Email:       strings.ToLower(h.get(row, "email", "participant_email")),
			DeviceFlag:  strings.EqualFold(h.get(row, "is_device", "device"), "true"),
		})
		stats.Parsed++
	}

	sort.Strings(order)
	sessions := make([]roster.SessionRecord, 0, len(order))
	for _, key := range order {
		sessions = append(sessions, *byKey[key])
	}

	if stats.Skipped > 0 {
		logger.Debug("Roster rows skipped", logging.F("skipped", stats.Skipped), logging.F("parsed", stats.Parsed))
	}
	return sessions, stats, nil
}
