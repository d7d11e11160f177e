package ingest

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/otherjamesbrown/funnel-cli/pkg/attribution"
	"github.com/otherjamesbrown/funnel-cli/pkg/logging"
)

// attributionColumns are the advanced CRM columns whose absence forces
// proportional allocation downstream.
var attributionColumns = []string{"first_touch_source", "last_touch_source", "ad_click_id"}

// LeadParseResult carries the rows plus what the export could tell us.
type LeadParseResult struct {
	Leads []attribution.LeadRecord
	Stats Stats

	// HasAttributionColumns is true when the export included the advanced
	// attribution columns.
	HasAttributionColumns bool
}

// ParseLeadsCSV reads a CRM lead export. Expected columns: created_date,
// email, funnel, revenue (official) with annual_revenue_estimate as
// fallback, and is_member for the registration proxy. Rows without a
// parseable created date are skipped.
func ParseLeadsCSV(r io.Reader, logger logging.Logger) (LeadParseResult, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	rows, err := cr.ReadAll()
	if err != nil {
		return LeadParseResult{}, err
	}
	if len(rows) == 0 {
		return LeadParseResult{}, nil
	}

	h := newHeader(rows[0])
	result := LeadParseResult{HasAttributionColumns: h.has(attributionColumns...)}

	for _, row := range rows[1:] {
		dateKey := parseDateKey(h.get(row, "created_date", "create date", "created_at"))
		if dateKey == "" {
			result.Stats.Skipped++
			continue
		}

		lead := attribution.LeadRecord{
			CreatedDateKey: dateKey,
			Email:          strings.ToLower(h.get(row, "email")),
			Funnel:         classifyFunnel(h.get(row, "funnel", "lead_source", "original source")),
			Name: firstNonEmpty(
				h.get(row, "name", "full_name"),
				strings.TrimSpace(h.get(row, "first_name")+" "+h.get(row, "last_name"))),
		}

		// Official revenue wins over the estimate column.
		rawRevenue := firstNonEmpty(
			h.get(row, "revenue", "annual_revenue"),
			h.get(row, "annual_revenue_estimate", "revenue_estimate"))
		if v, ok := parseMoney(rawRevenue); ok {
			lead.Revenue = &v
		}

		member := h.get(row, "is_member", "membership", "member")
		lead.IsRegistrationProxy = strings.EqualFold(member, "true") || strings.EqualFold(member, "yes")

		result.Leads = append(result.Leads, lead)
		result.Stats.Parsed++
	}

	if result.Stats.Skipped > 0 {
		logger.Debug("Lead rows skipped",
			logging.F("skipped", result.Stats.Skipped),
			logging.F("parsed", result.Stats.Parsed))
	}
	return result, nil
}
