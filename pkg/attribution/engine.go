package attribution

import (
	"github.com/otherjamesbrown/funnel-cli/pkg/logging"
)

// Engine computes window snapshots. Stateless; a single instance serves any
// number of windows.
type Engine struct {
	logger logging.Logger
}

// NewEngine creates an attribution engine.
func NewEngine(logger logging.Logger) *Engine {
	return &Engine{logger: logger.With(logging.F("component", "attribution_engine"))}
}

// inWindow reports whether a YYYY-MM-DD key falls in the inclusive range.
// Lexicographic comparison is date-correct for this key format.
func inWindow(dateKey, startKey, endKey string) bool {
	return dateKey != "" && dateKey >= startKey && dateKey <= endKey
}

// ComputeSnapshot aggregates the four row sets over [startKey, endKey]:
// totals, tier counts, registration source selection, proportional
// attribution onto ads, and safe-divided cost and conversion ratios.
func (e *Engine) ComputeSnapshot(ads []AdRow, leads []LeadRecord, showUps []ShowUpDailyRow, registrations []RegistrationRow, startKey, endKey string) *WindowSnapshot {
	snap := &WindowSnapshot{
		StartKey:  startKey,
		EndKey:    endKey,
		PerFunnel: make(map[Funnel]FunnelTotals),
	}

	// Ad rows are copied so accumulators never leak across windows.
	var windowAds []AdRow
	for _, ad := range ads {
		if !inWindow(ad.DateKey, startKey, endKey) {
			continue
		}
		ad.AttributedLeads = 0
		ad.AttributedQualifiedLeads = 0
		ad.AttributedGreatLeads = 0
		ad.AttributedRegistrations = 0
		ad.AttributedShowUps = 0
		windowAds = append(windowAds, ad)

		snap.Spend += ad.Spend
		snap.Impressions += ad.Impressions
		snap.Clicks += ad.Clicks
		snap.MetaLeads += ad.MetaLeads

		ft := snap.PerFunnel[ad.Funnel]
		ft.Spend += ad.Spend
		snap.PerFunnel[ad.Funnel] = ft
	}

	buckets := make(map[bucketKey]*bucketValues)
	bucket := func(dateKey string, funnel Funnel) *bucketValues {
		k := bucketKey{dateKey: dateKey, funnel: funnel}
		if buckets[k] == nil {
			buckets[k] = &bucketValues{}
		}
		return buckets[k]
	}

	proxyRegistrations := 0
	matchedLeads := 0
	for _, lead := range leads {
		if !inWindow(lead.CreatedDateKey, startKey, endKey) {
			continue
		}
		snap.Leads++
		b := bucket(lead.CreatedDateKey, lead.Funnel)
		b.leads++

		if lead.MatchedShowUp {
			matchedLeads++
		}

		switch ClassifyTier(lead.Revenue) {
		case TierGreat:
			snap.GreatLeads++
			b.greatLeads++
		case TierQualified:
			snap.QualifiedLeads++
			b.qualifiedLeads++
		}

		if lead.IsRegistrationProxy {
			proxyRegistrations++
		}

		ft := snap.PerFunnel[lead.Funnel]
		ft.Leads++
		snap.PerFunnel[lead.Funnel] = ft
	}
	snap.StandardLeads = snap.Leads - snap.QualifiedLeads - snap.GreatLeads
	if snap.StandardLeads < 0 {
		snap.StandardLeads = 0
	}
	snap.LeadShowUpMatchRate = SafeDivide(float64(matchedLeads), float64(snap.Leads))

	matchedZoom, matchedCRM, windowRegs := 0, 0, 0
	for _, reg := range registrations {
		if !inWindow(reg.EventDateKey, startKey, endKey) {
			continue
		}
		windowRegs++
		if reg.MatchedZoom {
			matchedZoom++
		}
		if reg.MatchedHubspot {
			matchedCRM++
		}
		bucket(reg.EventDateKey, reg.Funnel).registrations++

		ft := snap.PerFunnel[reg.Funnel]
		ft.Registrations++
		snap.PerFunnel[reg.Funnel] = ft
	}

	if windowRegs > 0 {
		snap.Registrations = windowRegs
		snap.RegistrationZoomMatchRate = SafeDivide(float64(matchedZoom), float64(windowRegs))
		snap.RegistrationCRMMatchRate = SafeDivide(float64(matchedCRM), float64(windowRegs))
	} else {
		// Degraded mode: no richer registration source in this window, so
		// the CRM membership proxy supplies the count. Visible to the
		// reader via the fallback alert, not an error.
		snap.Registrations = proxyRegistrations
		snap.RegistrationFallback = true
		e.logger.Debug("Registration source missing, using CRM proxy",
			logging.F("start", startKey),
			logging.F("end", endKey),
			logging.F("proxy_count", proxyRegistrations))
	}

	for _, day := range showUps {
		if !inWindow(day.DateKey, startKey, endKey) {
			continue
		}
		snap.ShowUps += day.ShowUps
		snap.NewShowUps += day.NewShowUps
		snap.Sessions += day.Sessions
		bucket(day.DateKey, day.Funnel).showUps += float64(day.ShowUps)

		ft := snap.PerFunnel[day.Funnel]
		ft.ShowUps += day.ShowUps
		snap.PerFunnel[day.Funnel] = ft
	}

	allocate(windowAds, buckets)
	snap.Ads = windowAds

	snap.CostCards = CostCards{
		CPL:            SafeDivide(snap.Spend, float64(snap.Leads)),
		CPQL:           SafeDivide(snap.Spend, float64(snap.QualifiedLeads)),
		CPGL:           SafeDivide(snap.Spend, float64(snap.GreatLeads)),
		CPShowUp:       SafeDivide(snap.Spend, float64(snap.ShowUps)),
		CPRegistration: SafeDivide(snap.Spend, float64(snap.Registrations)),
	}

	snap.Conversions = StageConversions{
		ImpressionToClick:    SafeDivide(float64(snap.Clicks), float64(snap.Impressions)),
		ClickToLead:          SafeDivide(float64(snap.Leads), float64(snap.Clicks)),
		LeadToRegistration:   SafeDivide(float64(snap.Registrations), float64(snap.Leads)),
		RegistrationToShowUp: SafeDivide(float64(snap.ShowUps), float64(snap.Registrations)),
		ShowUpToQualified:    SafeDivide(float64(snap.QualifiedLeads), float64(snap.ShowUps)),
		QualifiedToGreat:     SafeDivide(float64(snap.GreatLeads), float64(snap.QualifiedLeads)),
	}

	return snap
}
