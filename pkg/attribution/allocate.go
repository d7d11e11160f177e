package attribution

// AllocationPolicy tags how a bucket's outcomes are split across candidate
// ads. Explicit so each policy is unit-testable apart from the bucket loop.
type AllocationPolicy string

const (
	PolicyLeadWeighted  AllocationPolicy = "lead_weighted"
	PolicySpendWeighted AllocationPolicy = "spend_weighted"
	PolicyUniform       AllocationPolicy = "uniform"
)

// ChoosePolicy picks the allocation policy for a candidate set: lead
// weights when any candidate reported leads, spend weights when any spent,
// uniform otherwise.
func ChoosePolicy(candidates []*AdRow) AllocationPolicy {
	totalLeads := 0
	totalSpend := 0.0
	for _, ad := range candidates {
		totalLeads += ad.MetaLeads
		totalSpend += ad.Spend
	}
	switch {
	case totalLeads > 0:
		return PolicyLeadWeighted
	case totalSpend > 0:
		return PolicySpendWeighted
	default:
		return PolicyUniform
	}
}

// Weights computes each candidate's attribution weight under the policy.
// Weights sum to 1 for a non-empty candidate set, so allocating a bucket
// value conserves it exactly.
func Weights(candidates []*AdRow, policy AllocationPolicy) []float64 {
	if len(candidates) == 0 {
		return nil
	}

	weights := make([]float64, len(candidates))

	switch policy {
	case PolicyLeadWeighted:
		total := 0
		for _, ad := range candidates {
			total += ad.MetaLeads
		}
		for i, ad := range candidates {
			weights[i] = SafeDivide(float64(ad.MetaLeads), float64(total))
		}
	case PolicySpendWeighted:
		total := 0.0
		for _, ad := range candidates {
			total += ad.Spend
		}
		for i, ad := range candidates {
			weights[i] = SafeDivide(ad.Spend, total)
		}
	default:
		for i := range candidates {
			weights[i] = 1.0 / float64(len(candidates))
		}
	}

	return weights
}

// bucketKey identifies one (date, funnel) outcome bucket.
type bucketKey struct {
	dateKey string
	funnel  Funnel
}

// bucketValues are the outcome counts accumulated for one bucket.
type bucketValues struct {
	leads          float64
	qualifiedLeads float64
	greatLeads     float64
	registrations  float64
	showUps        float64
}

// allocate distributes every bucket's outcomes onto candidate ad rows.
// Candidates are the ads matching the exact (date, funnel) bucket, or,
// when the funnel has no ads that day, all ads on the date. The weight
// chain (lead, then spend, then uniform) is the only attribution mechanism when no
// deterministic ad-click linkage exists; the results are estimates.
func allocate(ads []AdRow, buckets map[bucketKey]*bucketValues) {
	byDateFunnel := make(map[bucketKey][]*AdRow)
	byDate := make(map[string][]*AdRow)
	for i := range ads {
		ad := &ads[i]
		k := bucketKey{dateKey: ad.DateKey, funnel: ad.Funnel}
		byDateFunnel[k] = append(byDateFunnel[k], ad)
		byDate[ad.DateKey] = append(byDate[ad.DateKey], ad)
	}

	for key, vals := range buckets {
		candidates := byDateFunnel[key]
		if len(candidates) == 0 {
			candidates = byDate[key.dateKey]
		}
		if len(candidates) == 0 {
			continue
		}

		weights := Weights(candidates, ChoosePolicy(candidates))
		for i, ad := range candidates {
			w := weights[i]
			ad.AttributedLeads += vals.leads * w
			ad.AttributedQualifiedLeads += vals.qualifiedLeads * w
			ad.AttributedGreatLeads += vals.greatLeads * w
			ad.AttributedRegistrations += vals.registrations * w
			ad.AttributedShowUps += vals.showUps * w
		}
	}
}
