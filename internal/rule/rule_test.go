package rule

import (
	"testing"
	"time"
)

func TestParseKinds(t *testing.T) {
	tests := []struct {
		input string
		kind  Kind
	}{
		{"KIND=DAILY", Daily},
		{"KIND=REPEATING;DAYS=MO", Repeating},
		{"KIND=ROTATION;VARIANT=ODDEVEN;CHILDREN=1,2", Rotation},
		{"KIND=SINGLE;CANDIDATES=1,2,3", Single},
	}

	for _, tt := range tests {
		r, err := Parse(tt.input)
		if err != nil {
			t.Errorf("Parse(%q) error: %v", tt.input, err)
			continue
		}
		if r.Kind != tt.kind {
			t.Errorf("Parse(%q).Kind = %d, want %d", tt.input, r.Kind, tt.kind)
		}
	}
}

func TestParseDays(t *testing.T) {
	r, err := Parse("KIND=REPEATING;DAYS=MO,WE,FR;CHILDREN=4")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	want := []time.Weekday{time.Monday, time.Wednesday, time.Friday}
	if len(r.Weekdays) != len(want) {
		t.Fatalf("Weekdays len = %d, want %d", len(r.Weekdays), len(want))
	}
	for i, d := range r.Weekdays {
		if d != want[i] {
			t.Errorf("Weekdays[%d] = %v, want %v", i, d, want[i])
		}
	}
	if len(r.Children) != 1 || r.Children[0] != 4 {
		t.Errorf("Children = %v, want [4]", r.Children)
	}
}

func TestParseChildrenOrder(t *testing.T) {
	r, err := Parse("KIND=ROTATION;VARIANT=ALTERNATE;CHILDREN=7,2,9")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	want := []int64{7, 2, 9}
	for i, id := range r.Children {
		if id != want[i] {
			t.Errorf("Children[%d] = %d, want %d", i, id, want[i])
		}
	}
}

func TestParseErrors(t *testing.T) {
	tests := []string{
		"",
		"DAYS=MO",                       // missing KIND
		"KIND=WEEKLY",                   // unknown kind
		"KIND=DAILY;FOO=BAR",            // unknown key
		"KIND=REPEATING;DAYS=XX",        // unknown day
		"KIND=DAILY;CHILDREN=abc",       // bad id
		"KIND=DAILY;CHILDREN=0",         // ids start at 1
		"KIND=ROTATION;VARIANT=RANDOM",  // unknown variant
		"KIND=DAILY;CHILDREN",           // missing =
	}

	for _, input := range tests {
		if _, err := Parse(input); err == nil {
			t.Errorf("Parse(%q) should fail", input)
		}
	}
}

func TestStringRoundTrip(t *testing.T) {
	specs := []string{
		"KIND=DAILY",
		"KIND=DAILY;CHILDREN=1,2",
		"KIND=REPEATING;DAYS=MO,WE,FR;CHILDREN=4,7",
		"KIND=ROTATION;VARIANT=ODDEVEN;CHILDREN=1,2",
		"KIND=ROTATION;VARIANT=ALTERNATE;CHILDREN=3,1,2",
		"KIND=SINGLE;CANDIDATES=5,6",
	}

	for _, spec := range specs {
		r, err := Parse(spec)
		if err != nil {
			t.Errorf("Parse(%q) error: %v", spec, err)
			continue
		}
		if got := r.String(); got != spec {
			t.Errorf("round trip: got %q, want %q", got, spec)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		spec    string
		wantErr bool
	}{
		{"KIND=DAILY", false},
		{"KIND=REPEATING;DAYS=SA,SU", false},
		{"KIND=REPEATING", true}, // no days
		{"KIND=ROTATION;VARIANT=ODDEVEN;CHILDREN=1,2", false},
		{"KIND=ROTATION;VARIANT=ODDEVEN;CHILDREN=1,2,3", true}, // odd/even takes exactly 2
		{"KIND=ROTATION;VARIANT=ODDEVEN;CHILDREN=1", true},
		{"KIND=ROTATION;VARIANT=ALTERNATE;CHILDREN=1,2,3", false},
		{"KIND=ROTATION;VARIANT=ALTERNATE;CHILDREN=1", true},
		{"KIND=ROTATION;CHILDREN=1,2", true}, // no variant
		{"KIND=SINGLE;CANDIDATES=1", false},
		{"KIND=SINGLE", true}, // no candidates
	}

	for _, tt := range tests {
		r, err := Parse(tt.spec)
		if err != nil {
			t.Errorf("Parse(%q) error: %v", tt.spec, err)
			continue
		}
		err = r.Validate()
		if (err != nil) != tt.wantErr {
			t.Errorf("Validate(%q) error = %v, wantErr %v", tt.spec, err, tt.wantErr)
		}
	}
}

func TestDescribe(t *testing.T) {
	r, _ := Parse("KIND=SINGLE;CANDIDATES=1,2,3")
	if got := r.Describe(); got != "First of 3 candidates to accept" {
		t.Errorf("Describe = %q", got)
	}

	r, _ = Parse("KIND=REPEATING;DAYS=MO,FR")
	if got := r.Describe(); got != "Repeats on Mon, Fri" {
		t.Errorf("Describe = %q", got)
	}
}
