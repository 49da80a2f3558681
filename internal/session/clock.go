package session

import (
	"fmt"
	"time"

	"github.com/mohamedkhairy/session-intel/internal/models"
)

const weekendCloseText = "Weekend Close"

// opensAtThreshold is the wait (in minutes) above which the info text shows the
// opening hour instead of a countdown.
const opensAtThreshold = 12 * 60

// Clock is the time source for the driver
type Clock interface {
	Now() time.Time
}

// SystemClock reads the host wall clock
type SystemClock struct{}

// Now returns time.Now()
func (SystemClock) Now() time.Time {
	return time.Now()
}

// ClockFunc adapts a function to the Clock interface
type ClockFunc func() time.Time

// Now calls f
func (f ClockFunc) Now() time.Time {
	return f()
}

// ComputeSessionState determines the state of one session at the given instant.
// loc must be the location loaded for def.Timezone. When globalWeekend is true the
// session is reported closed regardless of its local hours.
//
// Session hours (local time, half-open):
// - Open:          [OpenHour, CloseHour)
// - Closing soon:  the last 60 minutes before CloseHour
// - Opens soon:    local hour == OpenHour-1
func ComputeSessionState(def models.SessionDefinition, loc *time.Location, now time.Time, globalWeekend bool) models.SessionState {
	localTime := now.In(loc)
	hour := localTime.Hour()
	minute := localTime.Minute()
	timeOfDay := hour*60 + minute // Minutes since local midnight

	state := models.SessionState{
		Name:      def.Name,
		Status:    models.StatusClosed,
		LocalTime: localTime.Format("15:04"),
		LocalHour: hour,
	}

	if globalWeekend {
		state.InfoText = weekendCloseText
		return state
	}

	// Local weekend is checked independently of the UTC-anchored global gate
	weekday := localTime.Weekday()
	if weekday == time.Saturday || weekday == time.Sunday {
		state.InfoText = weekendCloseText
		return state
	}

	if hour >= def.OpenHour && hour < def.CloseHour {
		remaining := def.CloseHour*60 - timeOfDay
		state.IsOpen = true
		state.Status = models.StatusOpen
		if remaining > 0 && remaining <= 60 {
			state.Status = models.StatusClosingSoon
		}
		state.InfoText = fmt.Sprintf("Closes in %dh %dm", remaining/60, remaining%60)
		return state
	}

	var toOpen int
	if hour < def.OpenHour {
		toOpen = def.OpenHour*60 - timeOfDay
	} else {
		// Today's window has passed, count to tomorrow's open
		toOpen = (24-hour+def.OpenHour)*60 - minute
	}

	// Only the exact preceding hour counts as "opens soon"
	if hour == def.OpenHour-1 {
		state.Status = models.StatusOpensSoon
	}

	if toOpen > opensAtThreshold {
		state.InfoText = fmt.Sprintf("Opens at %d:00", def.OpenHour)
	} else {
		state.InfoText = fmt.Sprintf("Opens in %dh %dm", toOpen/60, toOpen%60)
	}

	return state
}
