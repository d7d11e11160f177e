package attribution

// Revenue thresholds for lead-quality tiers. Great is exclusive above
// 1,000,000; qualified is inclusive at both bounds.
const (
	GreatRevenueThreshold     = 1_000_000.0
	QualifiedRevenueThreshold = 250_000.0
)

// ClassifyTier maps a lead's revenue field to a quality tier. A missing
// revenue field is unknown, which downstream counts with standard.
func ClassifyTier(revenue *float64) Tier {
	if revenue == nil {
		return TierUnknown
	}
	switch {
	case *revenue > GreatRevenueThreshold:
		return TierGreat
	case *revenue >= QualifiedRevenueThreshold:
		return TierQualified
	default:
		return TierStandard
	}
}
