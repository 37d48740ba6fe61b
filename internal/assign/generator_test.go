package assign

import (
	"fmt"
	"sync"
	"testing"
)

func TestGenerateDailyRoster(t *testing.T) {
	f := newFixture(t)
	a := f.child(t, "Astrid")
	b := f.child(t, "Birk")
	tpl := f.template(t, "Dishes", fmt.Sprintf("KIND=DAILY;CHILDREN=%d,%d", a.ID, b.ID), nil)

	summary, err := f.generator().Generate(f.household.ID, monday, 3)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if summary.Created != 6 || summary.Skipped != 0 {
		t.Errorf("created = %d, skipped = %d, want 6/0", summary.Created, summary.Skipped)
	}
	if len(summary.Errors) != 0 {
		t.Errorf("unexpected errors: %v", summary.Errors)
	}

	n, _ := f.assignments.CountByTemplate(tpl.ID)
	if n != 6 {
		t.Errorf("stored rows = %d, want 6", n)
	}
}

func TestGenerateIsIdempotent(t *testing.T) {
	f := newFixture(t)
	a := f.child(t, "Astrid")
	b := f.child(t, "Birk")
	tpl := f.template(t, "Dishes", fmt.Sprintf("KIND=DAILY;CHILDREN=%d,%d", a.ID, b.ID), nil)

	g := f.generator()
	if _, err := g.Generate(f.household.ID, monday, 3); err != nil {
		t.Fatalf("first run: %v", err)
	}

	summary, err := g.Generate(f.household.ID, monday, 3)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if summary.Created != 0 || summary.Skipped != 6 {
		t.Errorf("rerun created = %d, skipped = %d, want 0/6", summary.Created, summary.Skipped)
	}

	n, _ := f.assignments.CountByTemplate(tpl.ID)
	if n != 6 {
		t.Errorf("stored rows = %d, want 6 after rerun", n)
	}
}

func TestGenerateOverlappingWindows(t *testing.T) {
	f := newFixture(t)
	f.template(t, "Tidy hallway", "KIND=DAILY", nil)

	g := f.generator()
	if _, err := g.Generate(f.household.ID, monday, 7); err != nil {
		t.Fatalf("first window: %v", err)
	}

	// Second window overlaps days 4..7 of the first
	summary, err := g.Generate(f.household.ID, monday.AddDate(0, 0, 3), 7)
	if err != nil {
		t.Fatalf("second window: %v", err)
	}
	if summary.Created != 3 || summary.Skipped != 4 {
		t.Errorf("created = %d, skipped = %d, want 3/4", summary.Created, summary.Skipped)
	}
}

func TestGenerateRepeatingWeekdays(t *testing.T) {
	f := newFixture(t)
	a := f.child(t, "Astrid")
	b := f.child(t, "Birk")
	tpl := f.template(t, "Trash", fmt.Sprintf("KIND=REPEATING;DAYS=MO,WE,FR;CHILDREN=%d,%d", a.ID, b.ID), nil)

	summary, err := f.generator().Generate(f.household.ID, monday, 14)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	// 2 weeks x 3 matching days x 2 children
	if summary.Created != 12 {
		t.Errorf("created = %d, want 12", summary.Created)
	}

	rows, err := f.assignments.ListByHouseholdRange(f.household.ID, monday, monday.AddDate(0, 0, 13))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	perChild := map[int64]int{}
	for _, row := range rows {
		if row.TemplateID != tpl.ID || row.ChildID == nil {
			t.Fatalf("unexpected row: %+v", row)
		}
		perChild[*row.ChildID]++
	}
	if perChild[a.ID] != 6 || perChild[b.ID] != 6 {
		t.Errorf("per-child counts = %v, want 6 each", perChild)
	}
}

func TestGenerateRotationAlternatesWeekly(t *testing.T) {
	f := newFixture(t)
	a := f.child(t, "Astrid")
	b := f.child(t, "Birk")
	f.template(t, "Feed cat", fmt.Sprintf("KIND=ROTATION;VARIANT=ODDEVEN;CHILDREN=%d,%d", a.ID, b.ID), nil)

	if _, err := f.generator().Generate(f.household.ID, monday, 14); err != nil {
		t.Fatalf("generate: %v", err)
	}

	rows, err := f.assignments.ListByHouseholdRange(f.household.ID, monday, monday.AddDate(0, 0, 13))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 14 {
		t.Fatalf("rows = %d, want 14", len(rows))
	}
	for i, row := range rows {
		want := a.ID
		if i >= 7 {
			want = b.ID
		}
		if row.ChildID == nil || *row.ChildID != want {
			t.Errorf("day %d: owner = %v, want %d", i, row.ChildID, want)
		}
	}
}

func TestGenerateSkipsSingles(t *testing.T) {
	f := newFixture(t)
	a := f.child(t, "Astrid")
	tpl := f.template(t, "Mow lawn", fmt.Sprintf("KIND=SINGLE;CANDIDATES=%d", a.ID), nil)

	summary, err := f.generator().Generate(f.household.ID, monday, 7)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if summary.Created != 0 || len(summary.Errors) != 0 {
		t.Errorf("single templates must not generate: %+v", summary)
	}

	n, _ := f.assignments.CountByTemplate(tpl.ID)
	if n != 0 {
		t.Errorf("stored rows = %d, want 0", n)
	}
}

func TestGenerateSkipsInactive(t *testing.T) {
	f := newFixture(t)
	tpl := f.template(t, "Tidy hallway", "KIND=DAILY", nil)
	if _, err := f.templates.SetActive(tpl.ID, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	summary, err := f.generator().Generate(f.household.ID, monday, 7)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if summary.Created != 0 {
		t.Errorf("created = %d, want 0 for inactive template", summary.Created)
	}
}

func TestGenerateRecordsBadRulesAndContinues(t *testing.T) {
	f := newFixture(t)
	f.template(t, "Tidy hallway", "KIND=DAILY", nil)

	// Store a malformed payload directly; template writes validate, but the
	// generator must survive whatever it finds.
	if _, err := f.db.Exec(
		`INSERT INTO task_templates (household_id, name, rule_spec) VALUES (?, ?, ?)`,
		f.household.ID, "Broken", "KIND=ROTATION;VARIANT=ODDEVEN;CHILDREN=1",
	); err != nil {
		t.Fatalf("insert broken template: %v", err)
	}

	summary, err := f.generator().Generate(f.household.ID, monday, 3)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if summary.Created != 3 {
		t.Errorf("created = %d, want 3 from the healthy template", summary.Created)
	}
	if len(summary.Errors) != 3 {
		t.Errorf("errors = %d, want one per day for the broken template", len(summary.Errors))
	}
}

func TestGenerateRejectsBadWindow(t *testing.T) {
	f := newFixture(t)

	if _, err := f.generator().Generate(f.household.ID, monday, 0); err == nil {
		t.Error("zero-day window should fail")
	}
	if _, err := f.generator().Generate(f.household.ID, monday, -5); err == nil {
		t.Error("negative window should fail")
	}
}

func TestGenerateConcurrentRunsCreateNoDuplicates(t *testing.T) {
	f := newFixture(t)
	a := f.child(t, "Astrid")
	b := f.child(t, "Birk")
	tpl := f.template(t, "Dishes", fmt.Sprintf("KIND=DAILY;CHILDREN=%d,%d", a.ID, b.ID), nil)

	g := f.generator()
	const runs = 8

	var wg sync.WaitGroup
	totals := make([]int, runs)
	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			summary, err := g.Generate(f.household.ID, monday, 7)
			if err != nil {
				t.Errorf("run %d: %v", i, err)
				return
			}
			totals[i] = summary.Created
		}(i)
	}
	wg.Wait()

	created := 0
	for _, n := range totals {
		created += n
	}
	if created != 14 {
		t.Errorf("total created across runs = %d, want 14", created)
	}

	n, err := f.assignments.CountByTemplate(tpl.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 14 {
		t.Errorf("stored rows = %d, want 14 (7 days x 2 children)", n)
	}
}
