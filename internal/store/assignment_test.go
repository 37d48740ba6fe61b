package store

import (
	"testing"

	"github.com/tidemann/chorewheel/internal/model"
)

func TestInsertIfAbsentDeduplicates(t *testing.T) {
	db := openTestDB(t)
	h := seedHousehold(t, db)
	child := seedChild(t, db, h.ID, "Astrid")
	tpl := seedTemplate(t, db, h.ID, "Dishes", "KIND=DAILY;CHILDREN=1", nil)
	s := NewAssignmentStore(db)

	due := day(2025, 1, 6)
	created, err := s.InsertIfAbsent(h.ID, tpl.ID, &child.ID, due)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if !created {
		t.Fatal("first insert should create a row")
	}

	created, err = s.InsertIfAbsent(h.ID, tpl.ID, &child.ID, due)
	if err != nil {
		t.Fatalf("second insert: %v", err)
	}
	if created {
		t.Error("duplicate key should be ignored")
	}

	n, err := s.CountByTemplate(tpl.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
}

func TestInsertIfAbsentNilChildIsItsOwnKey(t *testing.T) {
	db := openTestDB(t)
	h := seedHousehold(t, db)
	child := seedChild(t, db, h.ID, "Astrid")
	tpl := seedTemplate(t, db, h.ID, "Tidy hallway", "KIND=DAILY", nil)
	s := NewAssignmentStore(db)

	due := day(2025, 1, 6)
	if created, _ := s.InsertIfAbsent(h.ID, tpl.ID, nil, due); !created {
		t.Fatal("unassigned insert should create a row")
	}
	if created, _ := s.InsertIfAbsent(h.ID, tpl.ID, nil, due); created {
		t.Error("second unassigned insert should be ignored")
	}
	// An assigned occurrence on the same date is a different key
	if created, _ := s.InsertIfAbsent(h.ID, tpl.ID, &child.ID, due); !created {
		t.Error("assigned occurrence should not collide with the unassigned one")
	}
}

func TestCompleteOnce(t *testing.T) {
	db := openTestDB(t)
	h := seedHousehold(t, db)
	child := seedChild(t, db, h.ID, "Astrid")
	tpl := seedTemplate(t, db, h.ID, "Dishes", "KIND=DAILY;CHILDREN=1", nil)
	s := NewAssignmentStore(db)

	if _, err := s.InsertIfAbsent(h.ID, tpl.ID, &child.ID, day(2025, 1, 6)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	a, err := s.GetForTemplate(tpl.ID)
	if err != nil || a == nil {
		t.Fatalf("get assignment: %v", err)
	}
	if a.Status != model.StatusPending {
		t.Fatalf("status = %q, want pending", a.Status)
	}

	done, err := s.Complete(a.ID, &child.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done == nil || done.Status != model.StatusCompleted {
		t.Fatalf("expected completed assignment, got %+v", done)
	}
	if done.CompletedBy == nil || *done.CompletedBy != child.ID {
		t.Errorf("completed_by = %v, want %d", done.CompletedBy, child.ID)
	}
	if done.CompletedAt == nil {
		t.Error("completed_at should be set")
	}

	again, err := s.Complete(a.ID, &child.ID)
	if err != nil {
		t.Fatalf("second complete: %v", err)
	}
	if again != nil {
		t.Error("completing twice should be rejected")
	}
}

func TestMarkOverdue(t *testing.T) {
	db := openTestDB(t)
	h := seedHousehold(t, db)
	tpl := seedTemplate(t, db, h.ID, "Tidy hallway", "KIND=DAILY", nil)
	s := NewAssignmentStore(db)

	s.InsertIfAbsent(h.ID, tpl.ID, nil, day(2025, 1, 4))
	s.InsertIfAbsent(h.ID, tpl.ID, nil, day(2025, 1, 5))
	s.InsertIfAbsent(h.ID, tpl.ID, nil, day(2025, 1, 6))

	n, err := s.MarkOverdue(h.ID, day(2025, 1, 6))
	if err != nil {
		t.Fatalf("mark overdue: %v", err)
	}
	if n != 2 {
		t.Errorf("marked = %d, want 2", n)
	}

	// Today's assignment stays pending; a second sweep changes nothing.
	n, err = s.MarkOverdue(h.ID, day(2025, 1, 6))
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if n != 0 {
		t.Errorf("second sweep marked = %d, want 0", n)
	}
}

func TestListByHouseholdRange(t *testing.T) {
	db := openTestDB(t)
	h := seedHousehold(t, db)
	tpl := seedTemplate(t, db, h.ID, "Tidy hallway", "KIND=DAILY", nil)
	s := NewAssignmentStore(db)

	for d := 1; d <= 10; d++ {
		s.InsertIfAbsent(h.ID, tpl.ID, nil, day(2025, 1, d))
	}

	got, err := s.ListByHouseholdRange(h.ID, day(2025, 1, 3), day(2025, 1, 5))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3 (range is inclusive)", len(got))
	}
	if !got[0].DueDate.Equal(day(2025, 1, 3)) || !got[2].DueDate.Equal(day(2025, 1, 5)) {
		t.Errorf("unexpected range: %v .. %v", got[0].DueDate, got[2].DueDate)
	}
}

func TestClaimSingle(t *testing.T) {
	db := openTestDB(t)
	h := seedHousehold(t, db)
	a := seedChild(t, db, h.ID, "Astrid")
	b := seedChild(t, db, h.ID, "Birk")
	tpl := seedTemplate(t, db, h.ID, "Mow lawn", "KIND=SINGLE;CANDIDATES=1,2", nil)
	s := NewAssignmentStore(db)

	due := day(2025, 1, 6)
	claimed, err := s.ClaimSingle(tpl.ID, a.ID, h.ID, due)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if claimed == nil {
		t.Fatal("first claim should succeed")
	}
	if claimed.ChildID == nil || *claimed.ChildID != a.ID {
		t.Errorf("claimed by %v, want %d", claimed.ChildID, a.ID)
	}
	if !claimed.DueDate.Equal(due) {
		t.Errorf("due date = %v, want %v", claimed.DueDate, due)
	}

	// The accept is recorded as a response
	resp, err := s.GetResponse(tpl.ID, a.ID)
	if err != nil {
		t.Fatalf("get response: %v", err)
	}
	if resp == nil || resp.Response != model.ResponseAccepted {
		t.Errorf("response = %+v, want accepted", resp)
	}

	// Second claim backs off
	second, err := s.ClaimSingle(tpl.ID, b.ID, h.ID, due)
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if second != nil {
		t.Error("second claim should return nil")
	}

	n, _ := s.CountByTemplate(tpl.ID)
	if n != 1 {
		t.Errorf("assignment count = %d, want 1", n)
	}
}

func TestDeclineLifecycle(t *testing.T) {
	db := openTestDB(t)
	h := seedHousehold(t, db)
	child := seedChild(t, db, h.ID, "Astrid")
	tpl := seedTemplate(t, db, h.ID, "Mow lawn", "KIND=SINGLE;CANDIDATES=1", nil)
	s := NewAssignmentStore(db)

	created, err := s.RecordDecline(tpl.ID, child.ID, h.ID)
	if err != nil {
		t.Fatalf("decline: %v", err)
	}
	if !created {
		t.Fatal("first decline should create a row")
	}

	// Re-declining is a no-op
	created, err = s.RecordDecline(tpl.ID, child.ID, h.ID)
	if err != nil {
		t.Fatalf("second decline: %v", err)
	}
	if created {
		t.Error("duplicate decline should be ignored")
	}

	removed, err := s.DeleteDecline(tpl.ID, child.ID)
	if err != nil {
		t.Fatalf("undo: %v", err)
	}
	if !removed {
		t.Error("undo should remove the decline")
	}

	removed, err = s.DeleteDecline(tpl.ID, child.ID)
	if err != nil {
		t.Fatalf("second undo: %v", err)
	}
	if removed {
		t.Error("nothing left to undo")
	}
}

func TestDeleteDeclineNeverRemovesAccepts(t *testing.T) {
	db := openTestDB(t)
	h := seedHousehold(t, db)
	child := seedChild(t, db, h.ID, "Astrid")
	tpl := seedTemplate(t, db, h.ID, "Mow lawn", "KIND=SINGLE;CANDIDATES=1", nil)
	s := NewAssignmentStore(db)

	if _, err := s.ClaimSingle(tpl.ID, child.ID, h.ID, day(2025, 1, 6)); err != nil {
		t.Fatalf("claim: %v", err)
	}

	removed, err := s.DeleteDecline(tpl.ID, child.ID)
	if err != nil {
		t.Fatalf("delete decline: %v", err)
	}
	if removed {
		t.Error("accepted response must not be deletable as a decline")
	}
}
