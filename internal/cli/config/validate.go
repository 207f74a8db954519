package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/leapstack-labs/tubeql/internal/store"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fieldMessage(fe))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if _, ok := store.Lookup(c.Driver); !ok {
		return fmt.Errorf("invalid configuration: %w", &store.UnknownDriverError{Driver: c.Driver, Available: store.Drivers()})
	}

	if _, err := ParseLevel(c.LoggingLevel); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	key := koanfKey(fe.StructField())
	switch fe.Tag() {
	case "required":
		return key + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", key, fe.Param())
	case "gte", "lte":
		return fmt.Sprintf("%s is out of range (got %v)", key, fe.Value())
	default:
		return fmt.Sprintf("%s failed %s validation", key, fe.Tag())
	}
}

var fieldKeys = map[string]string{
	"DBName":         "db_name",
	"Driver":         "driver",
	"Port":           "port",
	"DataPath":       "data_path",
	"LoginAttempts":  "login_attempts",
	"ConnectTimeout": "connect_timeout",
	"Output":         "output",
}

func koanfKey(field string) string {
	if k, ok := fieldKeys[field]; ok {
		return k
	}
	return strings.ToLower(field)
}
