package promotion

import (
	"fmt"
	"time"
)

// ClockTime is a wall-clock time of day in whole seconds since midnight.
type ClockTime int32

func NewClockTime(hour, minute, second int) ClockTime {
	return ClockTime(hour*3600 + minute*60 + second)
}

// ParseClockTime accepts "HH:MM" and "HH:MM:SS". Fractional seconds are dropped.
func ParseClockTime(s string) (ClockTime, error) {
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return ClockOf(t), nil
		}
	}
	return 0, fmt.Errorf("clock time %q: want HH:MM or HH:MM:SS", s)
}

// ClockOf is the time of day of t in t's own location.
func ClockOf(t time.Time) ClockTime {
	return NewClockTime(t.Hour(), t.Minute(), t.Second())
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", c/3600, c%3600/60, c%60)
}

func (c ClockTime) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}
