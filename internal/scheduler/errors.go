package scheduler

import (
	"errors"
	"fmt"
)

// ErrConfiguration is returned by New when a configuration cannot be
// scheduled: empty groups, an exhibition count below one, an unknown policy
// value, or quotas that do not divide evenly under deterministic rates.
var ErrConfiguration = errors.New("invalid scheduler configuration")

// ErrExhaustion is returned by Next when no valid group or image is left
// for the next slot. It means the quotas and the repeat policy allow fewer
// exhibitions than were requested.
var ErrExhaustion = errors.New("no valid stimulus left")

func configErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

func exhaustionErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrExhaustion, fmt.Sprintf(format, args...))
}
