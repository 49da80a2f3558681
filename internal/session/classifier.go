package session

import (
	"github.com/mohamedkhairy/session-intel/internal/models"
)

const (
	// London's first two hours, local time
	londonMomentumStartHour = 8
	londonMomentumEndHour   = 10

	// New York local hour from which liquidity is considered to dry up
	lateNewYorkHour = 15
)

type outcome struct {
	liquidity  models.Level
	volatility models.Level
	verdict    models.Verdict
	message    string
	reason     string
}

var (
	outcomeWeekend = outcome{
		liquidity:  models.LevelNone,
		volatility: models.LevelNone,
		verdict:    models.VerdictAvoid,
		message:    "Markets Closed. Weekend Session.",
		reason:     "Markets are closed.",
	}
	outcomeOverlap = outcome{
		liquidity:  models.LevelHigh,
		volatility: models.LevelHigh,
		verdict:    models.VerdictOptimal,
		message:    "London–NY Overlap Active. Peak Liquidity.",
		reason:     "Highest probability window.",
	}
	outcomeLondonOpen = outcome{
		liquidity:  models.LevelMedium,
		volatility: models.LevelHigh,
		verdict:    models.VerdictOptimal,
		message:    "London Open. High Volatility.",
		reason:     "London Open momentum.",
	}
	outcomeLondon = outcome{
		liquidity:  models.LevelMedium,
		volatility: models.LevelMedium,
		verdict:    models.VerdictTradeNormal,
		message:    "London Session Active.",
		reason:     "Standard execution conditions.",
	}
	outcomeLateNewYork = outcome{
		liquidity:  models.LevelLow,
		volatility: models.LevelLow,
		verdict:    models.VerdictTradeSmall,
		message:    "Late NY Session. Liquidity drying up.",
		reason:     "End of day chop risk.",
	}
	outcomeNewYork = outcome{
		liquidity:  models.LevelMedium,
		volatility: models.LevelMedium,
		verdict:    models.VerdictTradeNormal,
		message:    "New York Session Active.",
		reason:     "Standard execution conditions.",
	}
	outcomeAsian = outcome{
		liquidity:  models.LevelLow,
		volatility: models.LevelLow,
		verdict:    models.VerdictTradeSmall,
		message:    "Asian Session. Lower volatility range.",
		reason:     "Risk of consolidation/chop.",
	}
	outcomeNoSession = outcome{
		liquidity:  models.LevelLow,
		volatility: models.LevelLow,
		verdict:    models.VerdictAvoid,
		message:    "Low liquidity. Caution advised.",
		reason:     "Low probability session.",
	}
)

// Classify derives the intelligence block from the session states.
// Rules are evaluated in priority order and the first match wins:
// weekend, London/New York overlap, London, New York, Tokyo/Sydney, nothing open.
func Classify(states []models.SessionState, globalWeekend bool) models.Intelligence {
	active := make([]string, 0, len(states))
	var london, newYork *models.SessionState
	asianOpen := false

	for i := range states {
		s := &states[i]
		if s.IsOpen {
			active = append(active, s.Name)
		}
		switch s.Name {
		case models.SessionLondon:
			london = s
		case models.SessionNewYork:
			newYork = s
		case models.SessionTokyo, models.SessionSydney:
			asianOpen = asianOpen || s.IsOpen
		}
	}

	londonOpen := london != nil && london.IsOpen
	newYorkOpen := newYork != nil && newYork.IsOpen

	var o outcome
	switch {
	case globalWeekend:
		o = outcomeWeekend
	case londonOpen && newYorkOpen:
		o = outcomeOverlap
	case londonOpen:
		o = outcomeLondon
		if london.LocalHour >= londonMomentumStartHour && london.LocalHour < londonMomentumEndHour {
			o = outcomeLondonOpen
		}
	case newYorkOpen:
		o = outcomeNewYork
		if newYork.LocalHour >= lateNewYorkHour {
			o = outcomeLateNewYork
		}
	case asianOpen:
		o = outcomeAsian
	default:
		o = outcomeNoSession
	}

	return models.Intelligence{
		LiquidityScore:    o.liquidity,
		Volatility:        o.volatility,
		IsLondonNYOverlap: londonOpen && newYorkOpen,
		ActiveSessions:    active,
		SessionMessage:    o.message,
		Verdict:           o.verdict,
		VerdictReason:     o.reason,
	}
}
