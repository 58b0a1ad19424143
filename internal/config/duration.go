package config

import (
	"fmt"
	"time"
)

// Duration is a time.Duration that decodes from TOML duration strings such
// as "2s" or "15m". TOML has no native duration type, so values travel as
// strings and are parsed at decode time rather than at every use site.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for TOML decoding.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}

	*d = Duration(v)

	return nil
}

// MarshalText implements encoding.TextMarshaler so effective-config output
// round-trips through the same representation users write.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a standard time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}
