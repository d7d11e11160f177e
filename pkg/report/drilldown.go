package report

import (
	"sort"

	"github.com/otherjamesbrown/funnel-cli/pkg/attribution"
)

// buildDrillDowns assembles one (date, funnel) table per funnel-stage
// metric over the lookback range. Cost metrics reuse the table of the
// outcome they divide into rather than duplicating rows.
func buildDrillDowns(in Inputs, startKey, endKey string) map[string][]DrillDownRow {
	type cell struct {
		dateKey string
		funnel  attribution.Funnel
	}
	acc := map[string]map[cell]float64{}
	add := func(metric, dateKey string, funnel attribution.Funnel, v float64) {
		if dateKey < startKey || dateKey > endKey {
			return
		}
		if acc[metric] == nil {
			acc[metric] = map[cell]float64{}
		}
		acc[metric][cell{dateKey, funnel}] += v
	}

	for _, r := range in.Ads {
		add("spend", r.DateKey, r.Funnel, r.Spend)
		add("impressions", r.DateKey, r.Funnel, float64(r.Impressions))
		add("clicks", r.DateKey, r.Funnel, float64(r.Clicks))
	}
	for _, r := range in.Leads {
		add("leads", r.CreatedDateKey, r.Funnel, 1)
		switch attribution.ClassifyTier(r.Revenue) {
		case attribution.TierGreat:
			add("great_leads", r.CreatedDateKey, r.Funnel, 1)
		case attribution.TierQualified:
			add("qualified_leads", r.CreatedDateKey, r.Funnel, 1)
		}
	}
	for _, r := range in.Registrations {
		add("registrations", r.EventDateKey, r.Funnel, 1)
	}
	for _, r := range in.ShowUps {
		add("show_ups", r.DateKey, r.Funnel, float64(r.ShowUps))
		add("new_show_ups", r.DateKey, r.Funnel, float64(r.NewShowUps))
	}

	tables := make(map[string][]DrillDownRow, len(acc)+5)
	for metric, cells := range acc {
		rows := make([]DrillDownRow, 0, len(cells))
		for c, v := range cells {
			rows = append(rows, DrillDownRow{DateKey: c.dateKey, Funnel: c.funnel, Value: v})
		}
		sort.Slice(rows, func(i, j int) bool {
			if rows[i].DateKey != rows[j].DateKey {
				return rows[i].DateKey < rows[j].DateKey
			}
			return rows[i].Funnel < rows[j].Funnel
		})
		tables[metric] = rows
	}

	// Cost metric aliases.
	tables["cpl"] = tables["leads"]
	tables["cpql"] = tables["qualified_leads"]
	tables["cpgl"] = tables["great_leads"]
	tables["cp_show_up"] = tables["show_ups"]
	tables["cp_registration"] = tables["registrations"]

	return tables
}
