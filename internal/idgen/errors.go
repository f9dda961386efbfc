package idgen

import (
	"errors"
	"fmt"
	"time"
)

// ErrConfiguration matches every *ConfigurationError via errors.Is.
var ErrConfiguration = errors.New("epoch is not earlier than current time")

// ErrMalformedID is returned by Parse for input that is not a zero-padded ID.
var ErrMalformedID = errors.New("malformed id")

// ErrUnpadded reports a decode request against a generator whose IDs have no
// fixed boundary between timestamp and sequence.
var ErrUnpadded = errors.New("ids from an unpadded generator cannot be parsed")

// ConfigurationError reports an epoch at or after the clock reading. It means
// the epoch was set in the future or the system clock moved back past it; the
// generator never retries it.
type ConfigurationError struct {
	Epoch time.Time
	Now   time.Time
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s (epoch %s, now %s)",
		ErrConfiguration.Error(),
		e.Epoch.UTC().Format(time.RFC3339Nano),
		e.Now.UTC().Format(time.RFC3339Nano))
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}
