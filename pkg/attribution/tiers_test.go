package attribution

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func fptr(v float64) *float64 { return &v }

func TestClassifyTier(t *testing.T) {
	tests := []struct {
		name    string
		revenue *float64
		want    Tier
	}{
		{"missing revenue", nil, TierUnknown},
		{"below qualified", fptr(249_999), TierStandard},
		{"qualified lower bound inclusive", fptr(250_000), TierQualified},
		{"just under great boundary", fptr(999_999), TierQualified},
		{"great boundary itself is qualified", fptr(1_000_000), TierQualified},
		{"above great boundary", fptr(1_000_001), TierGreat},
		{"zero revenue", fptr(0), TierStandard},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyTier(tt.revenue))
		})
	}
}
