package ingest

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/otherjamesbrown/funnel-cli/pkg/attribution"
	"github.com/otherjamesbrown/funnel-cli/pkg/logging"
)

// ParseAdsCSV reads an ad-platform daily export. Expected columns: date,
// ad_id, adset_name, campaign_name, funnel, spend, impressions, clicks,
// leads, quality_score. Rows without a date or ad id are skipped.
func ParseAdsCSV(r io.Reader, logger logging.Logger) ([]attribution.AdRow, Stats, error) {
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
	var ads []attribution.AdRow

	for _, row := range rows[1:] {
		dateKey := parseDateKey(h.get(row, "date", "date_start", "day"))
		adID := h.get(row, "ad_id", "ad id")
		if dateKey == "" || adID == "" {
			stats.Skipped++
			continue
		}

		spend, spendOK := parseMoney(h.get(row, "spend", "amount_spent"))
		impressions, impOK := parseCount(h.get(row, "impressions"))
		clicks, clickOK := parseCount(h.get(row, "clicks", "link_clicks"))
		leads, leadOK := parseCount(h.get(row, "leads", "results"))
		if !spendOK || !impOK || !clickOK || !leadOK {
			stats.Skipped++
			continue
		}

		quality, _ := parseMoney(h.get(row, "quality_score", "quality_ranking_score"))

		ads = append(ads, attribution.AdRow{
			DateKey:      dateKey,
			AdID:         adID,
			AdsetName:    h.get(row, "adset_name", "ad set name"),
			CampaignName: h.get(row, "campaign_name", "campaign name"),
			Funnel:       classifyFunnel(h.get(row, "funnel", "campaign_name", "campaign name")),
			Spend:        spend,
			Impressions:  impressions,
			Clicks:       clicks,
			MetaLeads:    leads,
			QualityScore: quality,
		})
		stats.Parsed++
	}

	if stats.Skipped > 0 {
		logger.Debug("Ad rows skipped", logging.F("skipped", stats.Skipped), logging.F("parsed", stats.Parsed))
	}
	return ads, stats, nil
}

// classifyFunnel maps a funnel column or campaign name to a funnel key.
// Anything mentioning phoenix routes there; the free funnel is the default.
func classifyFunnel(raw string) attribution.Funnel {
	if strings.Contains(strings.ToLower(raw), "phoenix") {
		return attribution.FunnelPhoenix
	}
	return attribution.FunnelFree
}
