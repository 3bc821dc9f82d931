// conf/validate.go
package conf

import (
	"fmt"
)

// ValidationError represents a collection of validation errors.
type ValidationError struct {
	Errors []string
}

func (ve ValidationError) Error() string {
	return fmt.Sprintf("validation errors: %v", ve.Errors)
}

// validateSettings checks cross-field invariants spec.md §6 requires of the
// configuration: channel shutter ids, spectrometer limit ordering, and that
// the quiet-period start and end are either both set or both empty. The
// time-of-day format of the quiet period is not checked here.
func validateSettings(settings *Settings) error {
	ve := ValidationError{}

	for name, ch := range settings.Channels {
		if ch.Shutter < -1 {
			ve.Errors = append(ve.Errors, fmt.Sprintf("channel %s: shutter id must be >= -1, got %d", name, ch.Shutter))
		}
	}

	for sn, lim := range settings.Spectrometers {
		if lim.MinIntegrationTimeMS < 0 {
			ve.Errors = append(ve.Errors, fmt.Sprintf("spectrometer %s: min integration time must be non-negative", sn))
		}
		if lim.MaxIntegrationTimeMS < lim.MinIntegrationTimeMS {
			ve.Errors = append(ve.Errors, fmt.Sprintf("spectrometer %s: max integration time must be >= min", sn))
		}
	}

	if (settings.Scheduler.QuietStart == "") != (settings.Scheduler.QuietEnd == "") {
		ve.Errors = append(ve.Errors, "scheduler: quietstart and quietend must both be set or both be empty")
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}
