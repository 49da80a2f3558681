package models

import (
	"time"
)

// Session names used by the default definition table and the classifier rules
const (
	SessionSydney  = "Sydney"
	SessionTokyo   = "Tokyo"
	SessionLondon  = "London"
	SessionNewYork = "New York"
)

// SessionStatus represents the display status of a single session
type SessionStatus string

const (
	StatusClosed      SessionStatus = "CLOSED"
	StatusOpen        SessionStatus = "OPEN"
	StatusClosingSoon SessionStatus = "CLOSING_SOON"
	StatusOpensSoon   SessionStatus = "OPENS_SOON"
)

// Valid reports whether s is one of the known statuses
func (s SessionStatus) Valid() bool {
	switch s {
	case StatusClosed, StatusOpen, StatusClosingSoon, StatusOpensSoon:
		return true
	}
	return false
}

// Level is a coarse liquidity/volatility label
type Level string

const (
	LevelNone   Level = "NONE"
	LevelLow    Level = "LOW"
	LevelMedium Level = "MEDIUM"
	LevelHigh   Level = "HIGH"
)

// Valid reports whether l is one of the known levels
func (l Level) Valid() bool {
	switch l {
	case LevelNone, LevelLow, LevelMedium, LevelHigh:
		return true
	}
	return false
}

// Verdict is the top-level trading recommendation
type Verdict string

const (
	VerdictAvoid       Verdict = "AVOID"
	VerdictTradeSmall  Verdict = "TRADE_SMALL"
	VerdictTradeNormal Verdict = "TRADE_NORMAL"
	VerdictOptimal     Verdict = "OPTIMAL"
)

// Valid reports whether v is one of the known verdicts
func (v Verdict) Valid() bool {
	switch v {
	case VerdictAvoid, VerdictTradeSmall, VerdictTradeNormal, VerdictOptimal:
		return true
	}
	return false
}

// SessionDefinition is the static trading-hours window of one market center.
// OpenHour and CloseHour are local hours; the window is [OpenHour, CloseHour).
type SessionDefinition struct {
	Name      string `json:"name" yaml:"name" validate:"required"`
	Timezone  string `json:"timezone" yaml:"timezone" validate:"required,timezone"`
	OpenHour  int    `json:"open_hour" yaml:"open_hour" validate:"min=0,max=23"`
	CloseHour int    `json:"close_hour" yaml:"close_hour" validate:"min=0,max=23,gtfield=OpenHour"`
}

// DefaultSessionDefinitions returns the Sydney/Tokyo/London/New York table.
// A fresh slice is returned on every call.
func DefaultSessionDefinitions() []SessionDefinition {
	return []SessionDefinition{
		{Name: SessionSydney, Timezone: "Australia/Sydney", OpenHour: 7, CloseHour: 16},
		{Name: SessionTokyo, Timezone: "Asia/Tokyo", OpenHour: 9, CloseHour: 18},
		{Name: SessionLondon, Timezone: "Europe/London", OpenHour: 8, CloseHour: 17},
		{Name: SessionNewYork, Timezone: "America/New_York", OpenHour: 8, CloseHour: 17},
	}
}

// SessionState is the derived state of one session at a given instant
type SessionState struct {
	Name      string        `json:"name"`
	IsOpen    bool          `json:"is_open"`
	Status    SessionStatus `json:"status"`
	LocalTime string        `json:"local_time"` // HH:MM
	LocalHour int           `json:"local_hour"`
	InfoText  string        `json:"info_text"`
}

// Intelligence is the classified view of the open-session set
type Intelligence struct {
	LiquidityScore    Level    `json:"liquidity_score"`
	Volatility        Level    `json:"volatility"`
	IsLondonNYOverlap bool     `json:"is_london_ny_overlap"`
	ActiveSessions    []string `json:"active_sessions"`
	SessionMessage    string   `json:"session_message"`
	Verdict           Verdict  `json:"verdict"`
	VerdictReason     string   `json:"verdict_reason"`
}

// IsActive reports whether the named session is in ActiveSessions
func (i *Intelligence) IsActive(name string) bool {
	for _, s := range i.ActiveSessions {
		if s == name {
			return true
		}
	}
	return false
}

// GlobalSnapshot is the published output of one engine evaluation.
// It is never mutated after it is produced.
type GlobalSnapshot struct {
	IsGlobalWeekend bool           `json:"is_global_weekend"`
	UTCTime         string         `json:"utc_time"`
	Timestamp       time.Time      `json:"timestamp"`
	Sessions        []SessionState `json:"sessions"`
	Intelligence    Intelligence   `json:"intelligence"`
}

// Session returns the state of the named session, if present
func (g *GlobalSnapshot) Session(name string) (SessionState, bool) {
	for _, s := range g.Sessions {
		if s.Name == name {
			return s, true
		}
	}
	return SessionState{}, false
}
