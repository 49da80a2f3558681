package session

import (
	"testing"

	"github.com/mohamedkhairy/session-intel/internal/models"
	"github.com/stretchr/testify/assert"
)

func states(open map[string]int) []models.SessionState {
	names := []string{models.SessionSydney, models.SessionTokyo, models.SessionLondon, models.SessionNewYork}
	out := make([]models.SessionState, 0, len(names))
	for _, name := range names {
		hour, isOpen := open[name]
		status := models.StatusClosed
		if isOpen {
			status = models.StatusOpen
		}
		out = append(out, models.SessionState{Name: name, IsOpen: isOpen, Status: status, LocalHour: hour})
	}
	return out
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		open       map[string]int // session -> local hour, only open sessions
		weekend    bool
		liquidity  models.Level
		volatility models.Level
		verdict    models.Verdict
		message    string
		reason     string
		overlap    bool
	}{
		{
			name:       "global weekend",
			weekend:    true,
			liquidity:  models.LevelNone,
			volatility: models.LevelNone,
			verdict:    models.VerdictAvoid,
			message:    "Markets Closed. Weekend Session.",
			reason:     "Markets are closed.",
		},
		{
			name:       "london and new york overlap",
			open:       map[string]int{models.SessionLondon: 13, models.SessionNewYork: 8},
			liquidity:  models.LevelHigh,
			volatility: models.LevelHigh,
			verdict:    models.VerdictOptimal,
			message:    "London–NY Overlap Active. Peak Liquidity.",
			reason:     "Highest probability window.",
			overlap:    true,
		},
		{
			name:       "overlap wins over asian sessions",
			open:       map[string]int{models.SessionLondon: 13, models.SessionNewYork: 8, models.SessionTokyo: 22, models.SessionSydney: 0},
			liquidity:  models.LevelHigh,
			volatility: models.LevelHigh,
			verdict:    models.VerdictOptimal,
			message:    "London–NY Overlap Active. Peak Liquidity.",
			reason:     "Highest probability window.",
			overlap:    true,
		},
		{
			name:       "london open first hour",
			open:       map[string]int{models.SessionLondon: 8},
			liquidity:  models.LevelMedium,
			volatility: models.LevelHigh,
			verdict:    models.VerdictOptimal,
			message:    "London Open. High Volatility.",
			reason:     "London Open momentum.",
		},
		{
			name:       "london open second hour",
			open:       map[string]int{models.SessionLondon: 9},
			liquidity:  models.LevelMedium,
			volatility: models.LevelHigh,
			verdict:    models.VerdictOptimal,
			message:    "London Open. High Volatility.",
			reason:     "London Open momentum.",
		},
		{
			name:       "london after momentum window",
			open:       map[string]int{models.SessionLondon: 10},
			liquidity:  models.LevelMedium,
			volatility: models.LevelMedium,
			verdict:    models.VerdictTradeNormal,
			message:    "London Session Active.",
			reason:     "Standard execution conditions.",
		},
		{
			name:       "london wins over tokyo",
			open:       map[string]int{models.SessionLondon: 11, models.SessionTokyo: 17},
			liquidity:  models.LevelMedium,
			volatility: models.LevelMedium,
			verdict:    models.VerdictTradeNormal,
			message:    "London Session Active.",
			reason:     "Standard execution conditions.",
		},
		{
			name:       "new york midday",
			open:       map[string]int{models.SessionNewYork: 13},
			liquidity:  models.LevelMedium,
			volatility: models.LevelMedium,
			verdict:    models.VerdictTradeNormal,
			message:    "New York Session Active.",
			reason:     "Standard execution conditions.",
		},
		{
			name:       "new york 14h",
			open:       map[string]int{models.SessionNewYork: 14},
			liquidity:  models.LevelMedium,
			volatility: models.LevelMedium,
			verdict:    models.VerdictTradeNormal,
			message:    "New York Session Active.",
			reason:     "Standard execution conditions.",
		},
		{
			name:       "late new york",
			open:       map[string]int{models.SessionNewYork: 15},
			liquidity:  models.LevelLow,
			volatility: models.LevelLow,
			verdict:    models.VerdictTradeSmall,
			message:    "Late NY Session. Liquidity drying up.",
			reason:     "End of day chop risk.",
		},
		{
			name:       "tokyo only",
			open:       map[string]int{models.SessionTokyo: 11},
			liquidity:  models.LevelLow,
			volatility: models.LevelLow,
			verdict:    models.VerdictTradeSmall,
			message:    "Asian Session. Lower volatility range.",
			reason:     "Risk of consolidation/chop.",
		},
		{
			name:       "sydney only",
			open:       map[string]int{models.SessionSydney: 8},
			liquidity:  models.LevelLow,
			volatility: models.LevelLow,
			verdict:    models.VerdictTradeSmall,
			message:    "Asian Session. Lower volatility range.",
			reason:     "Risk of consolidation/chop.",
		},
		{
			name:       "nothing open",
			liquidity:  models.LevelLow,
			volatility: models.LevelLow,
			verdict:    models.VerdictAvoid,
			message:    "Low liquidity. Caution advised.",
			reason:     "Low probability session.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intel := Classify(states(tt.open), tt.weekend)
			assert.Equal(t, tt.liquidity, intel.LiquidityScore)
			assert.Equal(t, tt.volatility, intel.Volatility)
			assert.Equal(t, tt.verdict, intel.Verdict)
			assert.Equal(t, tt.message, intel.SessionMessage)
			assert.Equal(t, tt.reason, intel.VerdictReason)
			assert.Equal(t, tt.overlap, intel.IsLondonNYOverlap)
			assert.Len(t, intel.ActiveSessions, len(tt.open))
		})
	}
}

func TestClassify_WeekendWinsEvenIfStatesSayOpen(t *testing.T) {
	intel := Classify(states(map[string]int{models.SessionLondon: 13, models.SessionNewYork: 8}), true)
	assert.Equal(t, models.VerdictAvoid, intel.Verdict)
	// The raw overlap fact is still reported
	assert.True(t, intel.IsLondonNYOverlap)
}

func TestClassify_ActiveSessionsKeepDefinitionOrder(t *testing.T) {
	intel := Classify(states(map[string]int{models.SessionNewYork: 9, models.SessionSydney: 7, models.SessionLondon: 14}), false)
	assert.Equal(t, []string{models.SessionSydney, models.SessionLondon, models.SessionNewYork}, intel.ActiveSessions)
}

func TestClassify_EmptyInput(t *testing.T) {
	intel := Classify(nil, false)
	assert.NotNil(t, intel.ActiveSessions)
	assert.Empty(t, intel.ActiveSessions)
	assert.Equal(t, models.VerdictAvoid, intel.Verdict)
}

func TestClassify_UnknownSessionNamesFallThrough(t *testing.T) {
	intel := Classify([]models.SessionState{{Name: "Frankfurt", IsOpen: true, Status: models.StatusOpen, LocalHour: 9}}, false)
	assert.Equal(t, []string{"Frankfurt"}, intel.ActiveSessions)
	assert.Equal(t, models.VerdictAvoid, intel.Verdict)
	assert.Equal(t, "Low liquidity. Caution advised.", intel.SessionMessage)
}
