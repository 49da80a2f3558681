package models

import "errors"

var (
	ErrNoSessions               = errors.New("at least one session definition is required")
	ErrInvalidSessionDefinition = errors.New("invalid session definition")
	ErrInvalidSessionName       = errors.New("invalid session name")
	ErrInvalidTimezone          = errors.New("invalid session timezone")
	ErrInvalidSessionHours      = errors.New("invalid session hours (open must be before close, both in [0,24))")
	ErrDuplicateSession         = errors.New("duplicate session name")
	ErrInvalidDailyLossPercent  = errors.New("invalid daily loss percent")
)
