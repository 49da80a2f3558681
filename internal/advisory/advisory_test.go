package advisory

import (
	"math"
	"testing"

	"github.com/mohamedkhairy/session-intel/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intelWith(verdict models.Verdict) models.Intelligence {
	return models.Intelligence{
		LiquidityScore: models.LevelLow,
		Volatility:     models.LevelLow,
		Verdict:        verdict,
		SessionMessage: "engine message",
		VerdictReason:  "engine reason",
		ActiveSessions: []string{},
	}
}

func TestEscalate(t *testing.T) {
	tests := []struct {
		name          string
		verdict       models.Verdict
		loss          float64
		wantVerdict   models.Verdict
		wantEscalated bool
	}{
		{"small session under threshold", models.VerdictTradeSmall, 20, models.VerdictTradeSmall, false},
		{"exactly at threshold", models.VerdictTradeNormal, 50, models.VerdictTradeNormal, false},
		{"small session over threshold", models.VerdictTradeSmall, 50.1, models.VerdictAvoid, true},
		{"normal session over threshold", models.VerdictTradeNormal, 75, models.VerdictAvoid, true},
		{"optimal passes through", models.VerdictOptimal, 90, models.VerdictOptimal, false},
		{"avoid passes through", models.VerdictAvoid, 90, models.VerdictAvoid, false},
		{"zero loss", models.VerdictTradeNormal, 0, models.VerdictTradeNormal, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			advice, err := Escalate(intelWith(tt.verdict), tt.loss)
			require.NoError(t, err)
			assert.Equal(t, tt.wantVerdict, advice.Verdict)
			assert.Equal(t, tt.wantEscalated, advice.Escalated)
			assert.Equal(t, tt.loss, advice.DailyLossPct)
			assert.Equal(t, "engine reason", advice.Reason)
			assert.Equal(t, "[Session: "+string(tt.verdict)+" | Liquidity: LOW | Volatility: LOW]", advice.JournalTag)

			if tt.wantEscalated {
				assert.Equal(t, "High Daily Loss + Suboptimal Session. Stop Trading.", advice.Message)
			} else {
				assert.Equal(t, "engine message", advice.Message)
			}
		})
	}
}

func TestEscalate_InvalidLoss(t *testing.T) {
	for _, loss := range []float64{-1, math.NaN(), math.Inf(1)} {
		_, err := Escalate(intelWith(models.VerdictTradeSmall), loss)
		assert.ErrorIs(t, err, models.ErrInvalidDailyLossPercent, "loss %v", loss)
	}
}

func TestJournalTag(t *testing.T) {
	intel := models.Intelligence{
		LiquidityScore: models.LevelHigh,
		Volatility:     models.LevelMedium,
		Verdict:        models.VerdictOptimal,
	}
	assert.Equal(t, "[Session: OPTIMAL | Liquidity: HIGH | Volatility: MEDIUM]", JournalTag(intel))
}
