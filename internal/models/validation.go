package models

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates a SessionDefinition.
// The returned error wraps ErrInvalidSessionDefinition and the field-specific sentinel.
func (d *SessionDefinition) Validate() error {
	err := validate.Struct(d)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		fe := validationErrors[0]
		return fmt.Errorf("%w: session %q field %s failed %q: %w",
			ErrInvalidSessionDefinition, d.Name, fe.Field(), fe.Tag(), fieldSentinel(fe))
	}
	return fmt.Errorf("%w: session %q: %v", ErrInvalidSessionDefinition, d.Name, err)
}

func fieldSentinel(fe validator.FieldError) error {
	switch fe.StructField() {
	case "Name":
		return ErrInvalidSessionName
	case "Timezone":
		return ErrInvalidTimezone
	default:
		return ErrInvalidSessionHours
	}
}

// ValidateDefinitions validates a whole session table: at least one entry,
// every entry valid, names unique.
func ValidateDefinitions(defs []SessionDefinition) error {
	if len(defs) == 0 {
		return ErrNoSessions
	}

	seen := make(map[string]bool, len(defs))
	for i := range defs {
		if err := defs[i].Validate(); err != nil {
			return err
		}
		if seen[defs[i].Name] {
			return fmt.Errorf("%w: %s", ErrDuplicateSession, defs[i].Name)
		}
		seen[defs[i].Name] = true
	}
	return nil
}
