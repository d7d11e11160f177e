// Package attribution turns ad spend, lead, registration, and show-up rows
// into windowed funnel analytics: totals, lead-quality tiers, proportional
// spend attribution onto ads, cost and conversion ratios, ad rankings, and
// rule-based headlines, recommendations, and alerts.
//
// Everything here is pure batch computation over in-memory rows. Date keys
// are YYYY-MM-DD strings, so lexicographic comparison is date-correct.
package attribution

// Funnel is a named lead-acquisition path. Spend, leads, and outcomes are
// bucketed per funnel.
type Funnel string

const (
	FunnelFree    Funnel = "free"
	FunnelPhoenix Funnel = "phoenix"
)

// Tier is a lead-quality classification derived from a revenue field.
type Tier string

const (
	TierStandard  Tier = "standard"
	TierQualified Tier = "qualified"
	TierGreat     Tier = "great"
	TierUnknown   Tier = "unknown"
)

// LeadRecord is one normalized CRM lead.
type LeadRecord struct {
	CreatedDateKey      string   `json:"created_date_key"`
	Funnel              Funnel   `json:"funnel"`
	Email               string   `json:"email,omitempty"`
	Name                string   `json:"name,omitempty"`
	Revenue             *float64 `json:"revenue,omitempty"`
	IsRegistrationProxy bool     `json:"is_registration_proxy,omitempty"`
	MatchedShowUp       bool     `json:"matched_show_up,omitempty"`
	MatchedShowUpDate   string   `json:"matched_show_up_date,omitempty"`
}

// AdRow is one ad's daily performance row plus the attribution accumulators
// the allocation pass fills in.
type AdRow struct {
	DateKey      string  `json:"date_key"`
	AdID         string  `json:"ad_id"`
	AdsetName    string  `json:"adset_name,omitempty"`
	CampaignName string  `json:"campaign_name,omitempty"`
	Funnel       Funnel  `json:"funnel"`
	Spend        float64 `json:"spend"`
	Impressions  int     `json:"impressions"`
	Clicks       int     `json:"clicks"`
	MetaLeads    int     `json:"meta_leads"`
	QualityScore float64 `json:"quality_score,omitempty"` // provider 0-100

	// Attribution accumulators. Estimates, not ground truth: filled by
	// proportional allocation when no deterministic click linkage exists.
	AttributedLeads          float64 `json:"attributed_leads"`
	AttributedRegistrations  float64 `json:"attributed_registrations"`
	AttributedShowUps        float64 `json:"attributed_show_ups"`
	AttributedQualifiedLeads float64 `json:"attributed_qualified_leads"`
	AttributedGreatLeads     float64 `json:"attributed_great_leads"`
}

// NaturalKey returns the upsert key for an ad row (ad+date), so repeated
// ingestion of the same export is a no-op.
func (a *AdRow) NaturalKey() string {
	return a.AdID + "|" + a.DateKey
}

// RegistrationRow is one event registration from the richer source.
type RegistrationRow struct {
	EventDateKey      string `json:"event_date_key"`
	GuestEmail        string `json:"guest_email,omitempty"`
	GuestName         string `json:"guest_name,omitempty"`
	ApprovalStatus    string `json:"approval_status,omitempty"`
	MatchedZoom       bool   `json:"matched_zoom,omitempty"`
	MatchedZoomNetNew bool   `json:"matched_zoom_net_new,omitempty"`
	MatchedHubspot    bool   `json:"matched_hubspot,omitempty"`
	Funnel            Funnel `json:"funnel"`
}

// NaturalKey returns the upsert key for a registration (event+guest).
func (r *RegistrationRow) NaturalKey() string {
	return r.EventDateKey + "|" + r.GuestEmail
}

// ShowUpDailyRow aggregates one day's meeting attendance for one funnel,
// produced from deduplicated sessions.
type ShowUpDailyRow struct {
	DateKey    string `json:"date_key"`
	Funnel     Funnel `json:"funnel"`
	ShowUps    int    `json:"show_ups"`
	NewShowUps int    `json:"new_show_ups"` // first-ever sightings
	Sessions   int    `json:"sessions"`
}

// CostCards are the per-outcome cost ratios for a window. Every value is
// safe-divided: zero denominator means zero, never NaN.
type CostCards struct {
	CPL            float64 `json:"cpl"`
	CPQL           float64 `json:"cpql"`
	CPGL           float64 `json:"cpgl"`
	CPShowUp       float64 `json:"cp_show_up"`
	CPRegistration float64 `json:"cp_registration"`
}

// StageConversions are the adjacent funnel-stage conversion ratios.
type StageConversions struct {
	ImpressionToClick    float64 `json:"impression_to_click"`
	ClickToLead          float64 `json:"click_to_lead"`
	LeadToRegistration   float64 `json:"lead_to_registration"`
	RegistrationToShowUp float64 `json:"registration_to_show_up"`
	ShowUpToQualified    float64 `json:"show_up_to_qualified"`
	QualifiedToGreat     float64 `json:"qualified_to_great"`
}

// WindowSnapshot is the aggregated result for one inclusive date range.
type WindowSnapshot struct {
	StartKey string `json:"start_key"`
	EndKey   string `json:"end_key"`

	Spend       float64 `json:"spend"`
	Impressions int     `json:"impressions"`
	Clicks      int     `json:"clicks"`
	MetaLeads   int     `json:"meta_leads"`

	Leads          int `json:"leads"`
	StandardLeads  int `json:"standard_leads"`
	QualifiedLeads int `json:"qualified_leads"`
	GreatLeads     int `json:"great_leads"`

	Registrations int  `json:"registrations"`
	// RegistrationFallback is set when no richer registration source was
	// available and the CRM membership proxy supplied the count.
	RegistrationFallback bool `json:"registration_fallback"`

	ShowUps    int `json:"show_ups"`
	NewShowUps int `json:"new_show_ups"`
	Sessions   int `json:"sessions"`

	// Match rates between the richer registration source and meeting
	// attendance / CRM identity. Only meaningful when the richer source
	// is present.
	RegistrationZoomMatchRate float64 `json:"registration_zoom_match_rate"`
	RegistrationCRMMatchRate  float64 `json:"registration_crm_match_rate"`

	// LeadShowUpMatchRate is the share of window leads matched to a meeting
	// show-up through the first-seen attendee index.
	LeadShowUpMatchRate float64 `json:"lead_show_up_match_rate"`

	CostCards   CostCards        `json:"cost_cards"`
	Conversions StageConversions `json:"conversions"`

	// Ads carries the window's ad rows with attribution accumulators
	// filled, sorted as provided.
	Ads []AdRow `json:"ads"`

	// PerFunnel breaks the headline counts down by funnel.
	PerFunnel map[Funnel]FunnelTotals `json:"per_funnel,omitempty"`
}

// FunnelTotals is the per-funnel slice of a window's headline counts.
type FunnelTotals struct {
	Spend         float64 `json:"spend"`
	Leads         int     `json:"leads"`
	Registrations int     `json:"registrations"`
	ShowUps       int     `json:"show_ups"`
}
