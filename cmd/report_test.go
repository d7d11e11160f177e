package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/otherjamesbrown/funnel-cli/pkg/attribution"
	"github.com/otherjamesbrown/funnel-cli/pkg/report"
)

func ratio(v float64) *float64 { return &v }

func TestRenderReportTextStageConversions(t *testing.T) {
	rep := &report.Report{
		PrimaryDate: "2026-08-20",
		GeneratedAt: "2026-08-21T12:00:00Z",
		Windows:     map[string]*attribution.WindowSnapshot{},
		Stages: []report.FunnelStage{
			{Name: "clicks", Value: 200},
			{Name: "leads", Value: 50, ConversionFromPrevious: ratio(0.25)},
		},
		Insights: attribution.Insights{
			Headline: "steady month",
			Alerts:   []string{"No anomalies detected."},
		},
	}

	buf := &bytes.Buffer{}
	renderReportText(buf, rep)

	// The stage conversion is a 0-1 ratio; the rendering shows percent.
	assert.Contains(t, buf.String(), "(25.0% from previous)")
	assert.NotContains(t, buf.String(), "(0.2% from previous)")
	assert.NotContains(t, buf.String(), "(0.3% from previous)")
}
