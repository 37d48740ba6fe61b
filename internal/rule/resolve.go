package rule

import (
	"fmt"
	"time"
)

// Days from 0001-01-01 to 1970-01-01 in the proleptic Gregorian calendar.
const unixEpochDay = 719162

// ResolveTargets returns the children a template is due for on the given
// date. A nil entry means one household-wide, unassigned occurrence. The
// result is empty when nothing is due (wrong weekday, or a SINGLE rule,
// which only produces occurrences through claims).
//
// Pure and deterministic; malformed payloads produce an error, never a panic.
func ResolveTargets(r Rule, date time.Time) ([]*int64, error) {
	switch r.Kind {
	case Daily:
		if len(r.Children) == 0 {
			return []*int64{nil}, nil
		}
		return childRefs(r.Children), nil

	case Repeating:
		for _, d := range r.Weekdays {
			if date.Weekday() == d {
				return childRefs(r.Children), nil
			}
		}
		return nil, nil

	case Rotation:
		week := EpochWeek(date)
		switch r.Variant {
		case OddEven:
			// Odd/even alternation is only defined between two people.
			if len(r.Children) != 2 {
				return nil, fmt.Errorf("odd/even rotation needs exactly 2 children, got %d", len(r.Children))
			}
			owner := r.Children[week%2]
			return []*int64{&owner}, nil
		case Alternate:
			if len(r.Children) < 2 {
				return nil, fmt.Errorf("alternating rotation needs at least 2 children, got %d", len(r.Children))
			}
			owner := r.Children[week%len(r.Children)]
			return []*int64{&owner}, nil
		default:
			return nil, fmt.Errorf("rotation rule has no variant")
		}

	case Single:
		return nil, nil
	}

	return nil, fmt.Errorf("unknown rule kind %d", r.Kind)
}

// EpochWeek returns the absolute index of the Monday-started week containing
// the given date: the number of whole weeks since Monday 0001-01-01
// (proleptic Gregorian). Unlike ISO week-of-year it is monotonic across year
// boundaries, so rotation parity never jumps at new year. The week
// containing 0001-01-01 has index 0 and counts as even.
func EpochWeek(t time.Time) int {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	days := unixEpochDay + int(day.Unix()/86400)
	return days / 7
}

func childRefs(ids []int64) []*int64 {
	targets := make([]*int64, len(ids))
	for i := range ids {
		id := ids[i]
		targets[i] = &id
	}
	return targets
}
