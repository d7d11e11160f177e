package review

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otherjamesbrown/funnel-cli/pkg/identity"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	created := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	env := envelope{
		Case: identity.PendingReviewCase{
			CaseID:     "case-1",
			CandidateA: "id-a",
			CandidateB: "id-b",
			Confidence: 82,
			Reason:     "name similarity in review band",
			Status:     identity.CaseStatusPending,
			CreatedAt:  created,
		},
		EnqueuedAt: created.Add(time.Minute),
	}

	payload, err := json.Marshal(env)
	require.NoError(t, err)

	var decoded envelope
	require.NoError(t, json.Unmarshal(payload, &decoded))

	assert.Equal(t, env.Case, decoded.Case)
	assert.True(t, env.EnqueuedAt.Equal(decoded.EnqueuedAt))
}

func TestClientFromEnvDefaultsAddr(t *testing.T) {
	client := ClientFromEnv("", "")
	defer client.Close()

	assert.Equal(t, "localhost:6379", client.Options().Addr)
}
