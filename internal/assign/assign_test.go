package assign

import (
	"database/sql"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/tidemann/chorewheel/internal/database"
	"github.com/tidemann/chorewheel/internal/model"
	"github.com/tidemann/chorewheel/internal/store"
)

type fixture struct {
	db          *sql.DB
	household   *model.Household
	templates   *store.TemplateStore
	children    *store.ChildStore
	assignments *store.AssignmentStore
	logger      *slog.Logger
}

// newFixture opens a migrated temp-file database with a single connection so
// concurrent tests race at the Go level without SQLITE_BUSY noise.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	h, err := store.NewHouseholdStore(db).Create("Test Household")
	if err != nil {
		t.Fatalf("create household: %v", err)
	}

	return &fixture{
		db:          db,
		household:   h,
		templates:   store.NewTemplateStore(db),
		children:    store.NewChildStore(db),
		assignments: store.NewAssignmentStore(db),
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func (f *fixture) child(t *testing.T, name string) *model.Child {
	t.Helper()
	c, err := f.children.Create(f.household.ID, name, "#3B82F6", "😀")
	if err != nil {
		t.Fatalf("create child %s: %v", name, err)
	}
	return c
}

func (f *fixture) template(t *testing.T, name, ruleSpec string, deadline *time.Time) *model.TaskTemplate {
	t.Helper()
	tpl, err := f.templates.Create(f.household.ID, name, "", 5, ruleSpec, deadline)
	if err != nil {
		t.Fatalf("create template %s: %v", name, err)
	}
	return tpl
}

func (f *fixture) generator() *Generator {
	return NewGenerator(f.templates, f.assignments, f.logger)
}

func (f *fixture) arbitrator() *Arbitrator {
	return NewArbitrator(f.templates, f.children, f.assignments, f.logger)
}

// monday is a Monday starting an even-indexed week.
var monday = time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
