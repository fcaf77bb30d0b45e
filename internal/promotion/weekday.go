package promotion

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// WeekdaySet is a bitmask over time.Weekday. Bit 0 is Sunday.
type WeekdaySet uint8

const allWeekdays WeekdaySet = 1<<7 - 1

var weekdayNames = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday, "tues": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday, "thurs": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

func NewWeekdaySet(days ...time.Weekday) WeekdaySet {
	var s WeekdaySet
	for _, d := range days {
		s |= 1 << uint(d)
	}
	return s & allWeekdays
}

func (s WeekdaySet) Contains(d time.Weekday) bool {
	return d >= time.Sunday && d <= time.Saturday && s&(1<<uint(d)) != 0
}

func (s WeekdaySet) Days() []time.Weekday {
	days := make([]time.Weekday, 0, 7)
	for d := time.Sunday; d <= time.Saturday; d++ {
		if s.Contains(d) {
			days = append(days, d)
		}
	}
	return days
}

// Names returns lower-case day names, Sunday first.
func (s WeekdaySet) Names() []string {
	days := s.Days()
	names := make([]string, len(days))
	for i, d := range days {
		names[i] = strings.ToLower(d.String())
	}
	return names
}

func (s WeekdaySet) String() string {
	return strings.Join(s.Names(), ",")
}

// ParseWeekdays reads a JSON array whose elements are day names ("monday",
// "Mon") or numbers 0-6 with Sunday as 0. Any other element is an error.
func ParseWeekdays(raw string) (WeekdaySet, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &elems); err != nil {
		return 0, fmt.Errorf("days_of_week %q: not a JSON array", raw)
	}

	var set WeekdaySet
	for _, elem := range elems {
		if string(elem) == "null" {
			return 0, fmt.Errorf("days_of_week: null element")
		}
		var n int
		if err := json.Unmarshal(elem, &n); err == nil {
			if n < 0 || n > 6 {
				return 0, fmt.Errorf("days_of_week: day number %d out of range 0-6", n)
			}
			set |= NewWeekdaySet(time.Weekday(n))
			continue
		}
		var name string
		if err := json.Unmarshal(elem, &name); err != nil {
			return 0, fmt.Errorf("days_of_week: unsupported element %s", elem)
		}
		d, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return 0, fmt.Errorf("days_of_week: unknown day %q", name)
		}
		set |= NewWeekdaySet(d)
	}
	return set, nil
}
