package rule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type Kind int

const (
	Daily Kind = iota
	Repeating
	Rotation
	Single
)

var kindNames = map[Kind]string{
	Daily:     "DAILY",
	Repeating: "REPEATING",
	Rotation:  "ROTATION",
	Single:    "SINGLE",
}

var kindFromName = map[string]Kind{
	"DAILY":     Daily,
	"REPEATING": Repeating,
	"ROTATION":  Rotation,
	"SINGLE":    Single,
}

type Variant int

const (
	NoVariant Variant = iota
	OddEven
	Alternate
)

var variantNames = map[Variant]string{
	OddEven:   "ODDEVEN",
	Alternate: "ALTERNATE",
}

var variantFromName = map[string]Variant{
	"ODDEVEN":   OddEven,
	"ALTERNATE": Alternate,
}

var dayNames = map[string]time.Weekday{
	"SU": time.Sunday,
	"MO": time.Monday,
	"TU": time.Tuesday,
	"WE": time.Wednesday,
	"TH": time.Thursday,
	"FR": time.Friday,
	"SA": time.Saturday,
}

var dayAbbrev = map[time.Weekday]string{
	time.Sunday:    "SU",
	time.Monday:    "MO",
	time.Tuesday:   "TU",
	time.Wednesday: "WE",
	time.Thursday:  "TH",
	time.Friday:    "FR",
	time.Saturday:  "SA",
}

// Rule is a task template's assignment rule. Kind selects which of the other
// fields apply: Weekdays for REPEATING, Variant for ROTATION, Children for
// every kind (roster for DAILY/REPEATING, rotation order for ROTATION,
// candidate pool for SINGLE).
type Rule struct {
	Kind     Kind
	Weekdays []time.Weekday // REPEATING: which days
	Variant  Variant        // ROTATION: ODDEVEN or ALTERNATE
	Children []int64        // order matters for ROTATION
}

// Parse parses a serialized rule like "KIND=ROTATION;VARIANT=ODDEVEN;CHILDREN=4,7".
func Parse(spec string) (Rule, error) {
	if spec == "" {
		return Rule{}, fmt.Errorf("empty rule")
	}

	var r Rule
	var hasKind bool

	parts := strings.Split(spec, ";")
	for _, part := range parts {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			return Rule{}, fmt.Errorf("invalid rule part: %q", part)
		}
		key, val := kv[0], kv[1]

		switch key {
		case "KIND":
			k, ok := kindFromName[val]
			if !ok {
				return Rule{}, fmt.Errorf("unknown kind: %q", val)
			}
			r.Kind = k
			hasKind = true

		case "VARIANT":
			v, ok := variantFromName[val]
			if !ok {
				return Rule{}, fmt.Errorf("unknown variant: %q", val)
			}
			r.Variant = v

		case "DAYS":
			days := strings.Split(val, ",")
			for _, d := range days {
				wd, ok := dayNames[strings.TrimSpace(d)]
				if !ok {
					return Rule{}, fmt.Errorf("unknown day: %q", d)
				}
				r.Weekdays = append(r.Weekdays, wd)
			}

		case "CHILDREN", "CANDIDATES":
			if val == "" {
				continue
			}
			ids := strings.Split(val, ",")
			for _, raw := range ids {
				id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
				if err != nil || id < 1 {
					return Rule{}, fmt.Errorf("invalid child id: %q", raw)
				}
				r.Children = append(r.Children, id)
			}

		default:
			return Rule{}, fmt.Errorf("unsupported rule key: %q", key)
		}
	}

	if !hasKind {
		return Rule{}, fmt.Errorf("KIND is required")
	}

	return r, nil
}

// String serializes the rule back to its spec form.
func (r Rule) String() string {
	var parts []string
	parts = append(parts, "KIND="+kindNames[r.Kind])

	if r.Kind == Rotation {
		parts = append(parts, "VARIANT="+variantNames[r.Variant])
	}

	if len(r.Weekdays) > 0 {
		var days []string
		for _, d := range r.Weekdays {
			days = append(days, dayAbbrev[d])
		}
		parts = append(parts, "DAYS="+strings.Join(days, ","))
	}

	if len(r.Children) > 0 {
		var ids []string
		for _, id := range r.Children {
			ids = append(ids, strconv.FormatInt(id, 10))
		}
		key := "CHILDREN"
		if r.Kind == Single {
			key = "CANDIDATES"
		}
		parts = append(parts, key+"="+strings.Join(ids, ","))
	}

	return strings.Join(parts, ";")
}

// Validate checks that the rule payload is internally consistent. Template
// writes call this so malformed rules never reach storage; the evaluator
// still tolerates bad stored payloads by returning errors at resolve time.
func (r Rule) Validate() error {
	switch r.Kind {
	case Daily:
		return nil
	case Repeating:
		if len(r.Weekdays) == 0 {
			return fmt.Errorf("repeating rule needs at least one weekday")
		}
		return nil
	case Rotation:
		switch r.Variant {
		case OddEven:
			if len(r.Children) != 2 {
				return fmt.Errorf("odd/even rotation needs exactly 2 children, got %d", len(r.Children))
			}
		case Alternate:
			if len(r.Children) < 2 {
				return fmt.Errorf("alternating rotation needs at least 2 children, got %d", len(r.Children))
			}
		default:
			return fmt.Errorf("rotation rule needs a variant")
		}
		return nil
	case Single:
		if len(r.Children) == 0 {
			return fmt.Errorf("single task needs at least one candidate")
		}
		return nil
	}
	return fmt.Errorf("unknown rule kind %d", r.Kind)
}

// Describe returns a human-readable description of the rule.
func (r Rule) Describe() string {
	switch r.Kind {
	case Daily:
		if len(r.Children) == 0 {
			return "Every day, anyone"
		}
		return fmt.Sprintf("Every day, %d assigned", len(r.Children))
	case Repeating:
		var names []string
		for _, d := range r.Weekdays {
			names = append(names, d.String()[:3])
		}
		return "Repeats on " + strings.Join(names, ", ")
	case Rotation:
		if r.Variant == OddEven {
			return "Alternates by odd/even week"
		}
		return fmt.Sprintf("Rotates weekly between %d children", len(r.Children))
	case Single:
		return fmt.Sprintf("First of %d candidates to accept", len(r.Children))
	}
	return ""
}
