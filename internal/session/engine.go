package session

import (
	"fmt"
	"time"
	_ "time/tzdata" // LoadLocation must work in minimal containers

	"github.com/mohamedkhairy/session-intel/internal/models"
)

const utcTimeLayout = "15:04:05 UTC"

// Engine evaluates a fixed session table against an instant.
// It holds no mutable state and is safe for concurrent use.
type Engine struct {
	definitions []models.SessionDefinition
	locations   []*time.Location
}

// NewEngine validates the session table and loads every timezone once.
// Any error is a configuration error and the engine must not run.
func NewEngine(definitions []models.SessionDefinition) (*Engine, error) {
	if err := models.ValidateDefinitions(definitions); err != nil {
		return nil, fmt.Errorf("invalid session table: %w", err)
	}

	locations := make([]*time.Location, len(definitions))
	for i, def := range definitions {
		loc, err := time.LoadLocation(def.Timezone)
		if err != nil {
			return nil, fmt.Errorf("%w: session %q timezone %q: %v", models.ErrInvalidTimezone, def.Name, def.Timezone, err)
		}
		locations[i] = loc
	}

	defs := make([]models.SessionDefinition, len(definitions))
	copy(defs, definitions)

	return &Engine{
		definitions: defs,
		locations:   locations,
	}, nil
}

// Definitions returns a copy of the session table
func (e *Engine) Definitions() []models.SessionDefinition {
	defs := make([]models.SessionDefinition, len(e.definitions))
	copy(defs, e.definitions)
	return defs
}

// Snapshot runs the full pipeline for now. The result depends only on now and
// the session table.
func (e *Engine) Snapshot(now time.Time) *models.GlobalSnapshot {
	utcNow := now.UTC()
	weekend := IsGlobalWeekend(utcNow)

	states := make([]models.SessionState, len(e.definitions))
	for i := range e.definitions {
		states[i] = ComputeSessionState(e.definitions[i], e.locations[i], utcNow, weekend)
	}

	return &models.GlobalSnapshot{
		IsGlobalWeekend: weekend,
		UTCTime:         utcNow.Format(utcTimeLayout),
		Timestamp:       utcNow,
		Sessions:        states,
		Intelligence:    Classify(states, weekend),
	}
}
