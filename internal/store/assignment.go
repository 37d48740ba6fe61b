package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/tidemann/chorewheel/internal/model"
)

// AssignmentStore persists dated task occurrences and the candidate
// responses for single-claim tasks. Both generation paths and the claim path
// write through this store, so the (template, child-or-none, date)
// uniqueness invariant holds no matter which side created a row.
type AssignmentStore struct {
	db *sql.DB
}

func NewAssignmentStore(db *sql.DB) *AssignmentStore {
	return &AssignmentStore{db: db}
}

func scanAssignment(scanner interface{ Scan(...any) error }) (*model.Assignment, error) {
	var a model.Assignment
	var childID, completedBy sql.NullInt64
	var completedAt sql.NullTime

	// due_date is a DATE column; the driver hands it back as time.Time.
	err := scanner.Scan(
		&a.ID, &a.HouseholdID, &a.TemplateID, &childID, &a.DueDate,
		&a.Status, &completedBy, &completedAt, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if childID.Valid {
		a.ChildID = &childID.Int64
	}
	if completedBy.Valid {
		a.CompletedBy = &completedBy.Int64
	}
	if completedAt.Valid {
		a.CompletedAt = &completedAt.Time
	}
	return &a, nil
}

const assignmentCols = `id, household_id, template_id, child_id, due_date, status, completed_by, completed_at, created_at`

// InsertIfAbsent inserts a pending assignment for the key
// (template, child-or-nil, date) unless one already exists. The unique index
// on that key makes this atomic against concurrent generators; the returned
// bool reports whether a row was created (false = key already present).
func (s *AssignmentStore) InsertIfAbsent(householdID, templateID int64, childID *int64, dueDate time.Time) (bool, error) {
	var cID sql.NullInt64
	if childID != nil {
		cID = sql.NullInt64{Int64: *childID, Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT OR IGNORE INTO assignments (household_id, template_id, child_id, due_date) VALUES (?, ?, ?, ?)`,
		householdID, templateID, cID, dueDate.Format(dateLayout),
	)
	if err != nil {
		return false, fmt.Errorf("insert assignment: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *AssignmentStore) GetByID(id int64) (*model.Assignment, error) {
	row := s.db.QueryRow(`SELECT `+assignmentCols+` FROM assignments WHERE id = ?`, id)
	a, err := scanAssignment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get assignment: %w", err)
	}
	return a, nil
}

// GetForTemplate returns the assignment for a single-claim template, or nil
// if the task is still unclaimed.
func (s *AssignmentStore) GetForTemplate(templateID int64) (*model.Assignment, error) {
	row := s.db.QueryRow(
		`SELECT `+assignmentCols+` FROM assignments WHERE template_id = ? ORDER BY id ASC LIMIT 1`,
		templateID,
	)
	a, err := scanAssignment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get assignment for template: %w", err)
	}
	return a, nil
}

func (s *AssignmentStore) ListByHouseholdRange(householdID int64, start, end time.Time) ([]model.Assignment, error) {
	rows, err := s.db.Query(
		`SELECT `+assignmentCols+` FROM assignments
		 WHERE household_id = ? AND due_date >= ? AND due_date <= ?
		 ORDER BY due_date ASC, id ASC`,
		householdID, start.Format(dateLayout), end.Format(dateLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()

	var assignments []model.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		assignments = append(assignments, *a)
	}
	return assignments, rows.Err()
}

func (s *AssignmentStore) CountByTemplate(templateID int64) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM assignments WHERE template_id = ?`, templateID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count assignments: %w", err)
	}
	return n, nil
}

// Complete transitions an assignment from pending to completed. The status
// guard in the WHERE clause makes the transition happen at most once;
// nil, nil means the assignment was not pending (already completed, or
// missing).
func (s *AssignmentStore) Complete(id int64, completedBy *int64) (*model.Assignment, error) {
	var cBy sql.NullInt64
	if completedBy != nil {
		cBy = sql.NullInt64{Int64: *completedBy, Valid: true}
	}

	result, err := s.db.Exec(
		`UPDATE assignments SET status = ?, completed_by = ?, completed_at = ? WHERE id = ? AND status IN (?, ?)`,
		model.StatusCompleted, cBy, time.Now().UTC(), id, model.StatusPending, model.StatusOverdue,
	)
	if err != nil {
		return nil, fmt.Errorf("complete assignment: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return nil, nil
	}
	return s.GetByID(id)
}

// MarkOverdue flips pending assignments due before the given date to
// overdue. Returns how many rows changed.
func (s *AssignmentStore) MarkOverdue(householdID int64, today time.Time) (int64, error) {
	result, err := s.db.Exec(
		`UPDATE assignments SET status = ? WHERE household_id = ? AND status = ? AND due_date < ?`,
		model.StatusOverdue, householdID, model.StatusPending, today.Format(dateLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("mark overdue: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// ClaimSingle converts a candidate's accept into the template's one
// assignment. The whole check-and-create runs in a single transaction that
// first writes the template row: SQLite serializes writers on that
// statement, so of two near-simultaneous accepts the second observes the
// first's assignment in the re-check and backs off. nil, nil means the task
// was already claimed.
func (s *AssignmentStore) ClaimSingle(templateID, childID, householdID int64, dueDate time.Time) (*model.Assignment, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	// Serialization point: take the write lock before the existence check.
	if _, err := tx.Exec(`UPDATE task_templates SET updated_at = updated_at WHERE id = ?`, templateID); err != nil {
		return nil, fmt.Errorf("lock template: %w", err)
	}

	var existing int64
	err = tx.QueryRow(`SELECT id FROM assignments WHERE template_id = ? LIMIT 1`, templateID).Scan(&existing)
	if err == nil {
		return nil, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("check existing claim: %w", err)
	}

	result, err := tx.Exec(
		`INSERT INTO assignments (household_id, template_id, child_id, due_date) VALUES (?, ?, ?, ?)`,
		householdID, templateID, childID, dueDate.Format(dateLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("insert claimed assignment: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	if _, err := tx.Exec(
		`INSERT INTO candidate_responses (template_id, child_id, household_id, response) VALUES (?, ?, ?, ?)
		 ON CONFLICT (template_id, child_id) DO UPDATE SET response = excluded.response, created_at = datetime('now')`,
		templateID, childID, householdID, model.ResponseAccepted,
	); err != nil {
		return nil, fmt.Errorf("record accepted response: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit claim: %w", err)
	}
	return s.GetByID(id)
}

// --- Candidate response methods ---

func scanResponse(scanner interface{ Scan(...any) error }) (*model.CandidateResponse, error) {
	var r model.CandidateResponse
	err := scanner.Scan(&r.ID, &r.TemplateID, &r.ChildID, &r.HouseholdID, &r.Response, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

const responseCols = `id, template_id, child_id, household_id, response, created_at`

// RecordDecline stores a declined response. Re-declining is a no-op: the
// unique (template, child) key absorbs the duplicate. The returned bool
// reports whether a new row was written.
func (s *AssignmentStore) RecordDecline(templateID, childID, householdID int64) (bool, error) {
	result, err := s.db.Exec(
		`INSERT OR IGNORE INTO candidate_responses (template_id, child_id, household_id, response) VALUES (?, ?, ?, ?)`,
		templateID, childID, householdID, model.ResponseDeclined,
	)
	if err != nil {
		return false, fmt.Errorf("record decline: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// DeleteDecline removes a declined response for the pair, reporting whether
// anything was removed. Accepted responses are never deleted.
func (s *AssignmentStore) DeleteDecline(templateID, childID int64) (bool, error) {
	result, err := s.db.Exec(
		`DELETE FROM candidate_responses WHERE template_id = ? AND child_id = ? AND response = ?`,
		templateID, childID, model.ResponseDeclined,
	)
	if err != nil {
		return false, fmt.Errorf("delete decline: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *AssignmentStore) GetResponse(templateID, childID int64) (*model.CandidateResponse, error) {
	row := s.db.QueryRow(
		`SELECT `+responseCols+` FROM candidate_responses WHERE template_id = ? AND child_id = ?`,
		templateID, childID,
	)
	r, err := scanResponse(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get response: %w", err)
	}
	return r, nil
}

func (s *AssignmentStore) ListResponsesByTemplate(templateID int64) ([]model.CandidateResponse, error) {
	rows, err := s.db.Query(
		`SELECT `+responseCols+` FROM candidate_responses WHERE template_id = ? ORDER BY created_at ASC`,
		templateID,
	)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	defer rows.Close()

	var responses []model.CandidateResponse
	for rows.Next() {
		r, err := scanResponse(rows)
		if err != nil {
			return nil, fmt.Errorf("scan response: %w", err)
		}
		responses = append(responses, *r)
	}
	return responses, rows.Err()
}

func (s *AssignmentStore) ListResponsesByChild(childID int64) ([]model.CandidateResponse, error) {
	rows, err := s.db.Query(
		`SELECT `+responseCols+` FROM candidate_responses WHERE child_id = ? ORDER BY created_at ASC`,
		childID,
	)
	if err != nil {
		return nil, fmt.Errorf("list responses by child: %w", err)
	}
	defer rows.Close()

	var responses []model.CandidateResponse
	for rows.Next() {
		r, err := scanResponse(rows)
		if err != nil {
			return nil, fmt.Errorf("scan response: %w", err)
		}
		responses = append(responses, *r)
	}
	return responses, rows.Err()
}
