package attribution

import "sort"

// AdPerformance is one ad's window-level rollup with its ranking score.
type AdPerformance struct {
	AdID         string  `json:"ad_id"`
	AdsetName    string  `json:"adset_name,omitempty"`
	CampaignName string  `json:"campaign_name,omitempty"`
	Funnel       Funnel  `json:"funnel"`
	Spend        float64 `json:"spend"`
	MetaLeads    int     `json:"meta_leads"`
	QualityScore float64 `json:"quality_score"`

	AttributedLeads          float64 `json:"attributed_leads"`
	AttributedQualifiedLeads float64 `json:"attributed_qualified_leads"`
	AttributedGreatLeads     float64 `json:"attributed_great_leads"`
	AttributedRegistrations  float64 `json:"attributed_registrations"`
	AttributedShowUps        float64 `json:"attributed_show_ups"`

	CPL   float64 `json:"cpl"`
	CPQL  float64 `json:"cpql"`
	CPGL  float64 `json:"cpgl"`
	Score float64 `json:"score"`
	Waste float64 `json:"waste"`
}

// rollupAds collapses daily ad rows into per-ad totals. Quality score is the
// spend-weighted mean across days so a big day dominates a tiny one.
func rollupAds(ads []AdRow) []AdPerformance {
	byID := make(map[string]*AdPerformance)
	qualitySpend := make(map[string]float64)
	var order []string

	for _, ad := range ads {
		p := byID[ad.AdID]
		if p == nil {
			p = &AdPerformance{
				AdID:         ad.AdID,
				AdsetName:    ad.AdsetName,
				CampaignName: ad.CampaignName,
				Funnel:       ad.Funnel,
			}
			byID[ad.AdID] = p
			order = append(order, ad.AdID)
		}
		p.Spend += ad.Spend
		p.MetaLeads += ad.MetaLeads
		p.AttributedLeads += ad.AttributedLeads
		p.AttributedQualifiedLeads += ad.AttributedQualifiedLeads
		p.AttributedGreatLeads += ad.AttributedGreatLeads
		p.AttributedRegistrations += ad.AttributedRegistrations
		p.AttributedShowUps += ad.AttributedShowUps
		p.QualityScore += ad.QualityScore * ad.Spend
		qualitySpend[ad.AdID] += ad.Spend
	}

	perf := make([]AdPerformance, 0, len(order))
	for _, id := range order {
		p := byID[id]
		p.QualityScore = SafeDivide(p.QualityScore, qualitySpend[id])
		p.CPL = SafeDivide(p.Spend, p.AttributedLeads)
		p.CPQL = SafeDivide(p.Spend, p.AttributedQualifiedLeads)
		p.CPGL = SafeDivide(p.Spend, p.AttributedGreatLeads)
		perf = append(perf, *p)
	}
	return perf
}

// score blends the cost efficiency of quality outcomes with show-up rate and
// provider quality. Inverse costs so cheaper outcomes score higher; each
// inverse is safe-divided so an ad with no outcomes contributes nothing from
// that term.
func score(p AdPerformance) float64 {
	showUpRate := SafeDivide(p.AttributedShowUps, p.AttributedLeads)
	return 0.5*SafeDivide(1, p.CPGL) +
		0.2*SafeDivide(1, p.CPQL) +
		0.15*showUpRate +
		0.15*(p.QualityScore/100)
}

// waste estimates spend burned without quality outcomes. Spend is inflated
// by flat penalties for producing no great and no qualified leads, plus a
// CPL overhang term so high-cost lead generation ranks as more wasteful.
func waste(p AdPerformance) float64 {
	w := p.Spend
	if p.AttributedGreatLeads == 0 {
		w += p.Spend
	}
	if p.AttributedQualifiedLeads == 0 {
		w += p.Spend
	}
	return w + 5*p.CPL
}

// RankAds computes per-ad rollups and returns the top and bottom performers.
// Top is by blended score descending; bottom is by waste descending, skipping
// ads that already made the top list. Ties break on AdID so output is stable
// across runs.
func RankAds(ads []AdRow, n int) (top, bottom []AdPerformance) {
	perf := rollupAds(ads)
	for i := range perf {
		perf[i].Score = score(perf[i])
		perf[i].Waste = waste(perf[i])
	}

	byScore := make([]AdPerformance, len(perf))
	copy(byScore, perf)
	sort.Slice(byScore, func(i, j int) bool {
		if byScore[i].Score != byScore[j].Score {
			return byScore[i].Score > byScore[j].Score
		}
		return byScore[i].AdID < byScore[j].AdID
	})
	if len(byScore) > n {
		top = byScore[:n]
	} else {
		top = byScore
	}

	topIDs := make(map[string]bool, len(top))
	for _, p := range top {
		topIDs[p.AdID] = true
	}

	var rest []AdPerformance
	for _, p := range perf {
		if !topIDs[p.AdID] {
			rest = append(rest, p)
		}
	}
	sort.Slice(rest, func(i, j int) bool {
		if rest[i].Waste != rest[j].Waste {
			return rest[i].Waste > rest[j].Waste
		}
		return rest[i].AdID < rest[j].AdID
	})
	if len(rest) > n {
		bottom = rest[:n]
	} else {
		bottom = rest
	}

	return top, bottom
}
