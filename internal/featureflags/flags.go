// Package featureflags provides runtime switches for the planner service.
package featureflags

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Well-known feature flag keys.
const (
	// FlagCancelSupersededSearches cancels an in-flight search when the same
	// session starts a new one. Stale results are discarded either way.
	FlagCancelSupersededSearches = "cancel_superseded_searches"

	// FlagPredictionTruncateLength is the number of characters of the fuel
	// prediction shown in the route list.
	FlagPredictionTruncateLength = "prediction_truncate_length"

	// FlagAutocompleteEnabled turns place suggestions on or off.
	FlagAutocompleteEnabled = "autocomplete_enabled"
)

// DefaultPredictionTruncateLength is the list truncation used when the flag is unset.
const DefaultPredictionTruncateLength = 250

// Flag is a feature flag with its current value.
type Flag struct {
	Key       string      `json:"key" yaml:"key"`
	Value     interface{} `json:"value" yaml:"value"`
	UpdatedAt time.Time   `json:"updatedAt" yaml:"-"`
}

// BoolValue returns the flag as a boolean, or defaultValue if the flag is nil
// or not a boolean/number.
func (f *Flag) BoolValue(defaultValue bool) bool {
	if f == nil {
		return defaultValue
	}
	switch v := f.Value.(type) {
	case bool:
		return v
	case float64:
		return v != 0
	case int:
		return v != 0
	default:
		return defaultValue
	}
}

// IntValue returns the flag as an integer, or defaultValue if the flag is nil
// or not a number. JSON numbers arrive as float64, YAML numbers as int.
func (f *Flag) IntValue(defaultValue int) int {
	if f == nil {
		return defaultValue
	}
	switch v := f.Value.(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	default:
		return defaultValue
	}
}

func (f *Flag) clone() *Flag {
	cpy := *f
	return &cpy
}

// DefaultFlags returns the flags the service starts with.
func DefaultFlags() map[string]*Flag {
	now := time.Now()
	return map[string]*Flag{
		FlagCancelSupersededSearches: {Key: FlagCancelSupersededSearches, Value: false, UpdatedAt: now},
		FlagPredictionTruncateLength: {Key: FlagPredictionTruncateLength, Value: DefaultPredictionTruncateLength, UpdatedAt: now},
		FlagAutocompleteEnabled:      {Key: FlagAutocompleteEnabled, Value: true, UpdatedAt: now},
	}
}

// SeedFlags returns DefaultFlags with the given values applied on top.
func SeedFlags(values map[string]interface{}) map[string]*Flag {
	flags := DefaultFlags()
	now := time.Now()
	for key, value := range values {
		flags[key] = &Flag{Key: key, Value: value, UpdatedAt: now}
	}
	return flags
}

// Validation errors for flag updates.
var (
	ErrUnknownFlag      = errors.New("unknown feature flag")
	ErrInvalidFlagValue = errors.New("invalid feature flag value")
)

// Validate checks that value has the type key expects.
func Validate(key string, value interface{}) error {
	switch key {
	case FlagCancelSupersededSearches, FlagAutocompleteEnabled:
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("%w: %s must be a boolean", ErrInvalidFlagValue, key)
		}
	case FlagPredictionTruncateLength:
		n, ok := value.(float64)
		if i, isInt := value.(int); isInt {
			n, ok = float64(i), true
		}
		if !ok || n < 1 || n != math.Trunc(n) {
			return fmt.Errorf("%w: %s must be a positive integer", ErrInvalidFlagValue, key)
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnknownFlag, key)
	}
	return nil
}
