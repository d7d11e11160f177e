package ingest

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/otherjamesbrown/funnel-cli/pkg/attribution"
	"github.com/otherjamesbrown/funnel-cli/pkg/logging"
)

// ParseRegistrationsCSV reads the event-registration export (the richer
// registration source). Expected columns: event_date, email, name,
// approval_status, matched_zoom, matched_zoom_net_new, matched_hubspot,
// funnel. Rows without a parseable event date or an email are skipped.
// A blank name falls back to the email local part so every registration has
// a displayable guest name.
func ParseRegistrationsCSV(r io.Reader, logger logging.Logger) ([]attribution.RegistrationRow, Stats, error) {
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
	var regs []attribution.RegistrationRow

	for _, row := range rows[1:] {
		dateKey := parseDateKey(h.get(row, "event_date", "event date", "date"))
		email := strings.ToLower(h.get(row, "email", "guest_email"))
		if dateKey == "" || email == "" {
			stats.Skipped++
			continue
		}

		name := firstNonEmpty(h.get(row, "name", "guest_name"), emailLocalPart(email))

		regs = append(regs, attribution.RegistrationRow{
			EventDateKey:      dateKey,
			GuestEmail:        email,
			GuestName:         name,
			ApprovalStatus:    h.get(row, "approval_status", "status"),
			MatchedZoom:       parseBool(h.get(row, "matched_zoom")),
			MatchedZoomNetNew: parseBool(h.get(row, "matched_zoom_net_new")),
			MatchedHubspot:    parseBool(h.get(row, "matched_hubspot", "matched_crm")),
			Funnel:            classifyFunnel(h.get(row, "funnel", "event_name")),
		})
		stats.Parsed++
	}

	if stats.Skipped > 0 {
		logger.Debug("Registration rows skipped", logging.F("skipped", stats.Skipped), logging.F("parsed", stats.Parsed))
	}
	return regs, stats, nil
}

func emailLocalPart(email string) string {
	if i := strings.Index(email, "@"); i > 0 {
		return email[:i]
	}
	return email
}

func parseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "yes", "y", "1":
		return true
	}
	return false
}
