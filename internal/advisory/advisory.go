// Package advisory holds downstream rules that combine the engine's session verdict
// with a trader's own state. The engine never calls into this package.
package advisory

import (
	"fmt"
	"math"

	"github.com/mohamedkhairy/session-intel/internal/models"
)

// DailyLossThresholdPercent is the daily loss above which a weak session verdict escalates to AVOID
const DailyLossThresholdPercent = 50.0

const escalationMessage = "High Daily Loss + Suboptimal Session. Stop Trading."

// Advice is the verdict shown to a trader after their daily loss is taken into account
type Advice struct {
	Verdict      models.Verdict `json:"verdict"`
	Message      string         `json:"message"`
	Reason       string         `json:"reason"`
	DailyLossPct float64        `json:"daily_loss_pct"`
	Escalated    bool           `json:"escalated"`
	JournalTag   string         `json:"journal_tag"`
}

// Escalate overrides TRADE_SMALL and TRADE_NORMAL with AVOID once the daily loss
// exceeds DailyLossThresholdPercent. OPTIMAL and AVOID pass through unchanged.
func Escalate(intel models.Intelligence, dailyLossPct float64) (Advice, error) {
	if math.IsNaN(dailyLossPct) || math.IsInf(dailyLossPct, 0) || dailyLossPct < 0 {
		return Advice{}, fmt.Errorf("%w: %v", models.ErrInvalidDailyLossPercent, dailyLossPct)
	}

	advice := Advice{
		Verdict:      intel.Verdict,
		Message:      intel.SessionMessage,
		Reason:       intel.VerdictReason,
		DailyLossPct: dailyLossPct,
		JournalTag:   JournalTag(intel),
	}

	if dailyLossPct > DailyLossThresholdPercent &&
		(intel.Verdict == models.VerdictTradeSmall || intel.Verdict == models.VerdictTradeNormal) {
		advice.Verdict = models.VerdictAvoid
		advice.Message = escalationMessage
		advice.Escalated = true
	}

	return advice, nil
}

// JournalTag renders the session context embedded into journal notes
func JournalTag(intel models.Intelligence) string {
	return fmt.Sprintf("[Session: %s | Liquidity: %s | Volatility: %s]",
		intel.Verdict, intel.LiquidityScore, intel.Volatility)
}
