package store

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/tidemann/chorewheel/internal/database"
	"github.com/tidemann/chorewheel/internal/model"
)

// openTestDB opens a migrated temp-file database. A file (not :memory:) so
// every pooled connection sees the same data; one connection so concurrent
// tests exercise Go-level races without SQLITE_BUSY noise.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func seedHousehold(t *testing.T, db *sql.DB) *model.Household {
	t.Helper()
	h, err := NewHouseholdStore(db).Create("Test Household")
	if err != nil {
		t.Fatalf("seed household: %v", err)
	}
	return h
}

func seedChild(t *testing.T, db *sql.DB, householdID int64, name string) *model.Child {
	t.Helper()
	c, err := NewChildStore(db).Create(householdID, name, "#3B82F6", "😀")
	if err != nil {
		t.Fatalf("seed child %s: %v", name, err)
	}
	return c
}

func seedTemplate(t *testing.T, db *sql.DB, householdID int64, name, ruleSpec string, deadline *time.Time) *model.TaskTemplate {
	t.Helper()
	tpl, err := NewTemplateStore(db).Create(householdID, name, "", 5, ruleSpec, deadline)
	if err != nil {
		t.Fatalf("seed template %s: %v", name, err)
	}
	return tpl
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
