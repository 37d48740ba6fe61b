package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/tidemann/chorewheel/internal/model"
)

type TemplateStore struct {
	db *sql.DB
}

func NewTemplateStore(db *sql.DB) *TemplateStore {
	return &TemplateStore{db: db}
}

func scanTemplate(scanner interface{ Scan(...any) error }) (*model.TaskTemplate, error) {
	var t model.TaskTemplate
	var deadline sql.NullTime

	err := scanner.Scan(
		&t.ID, &t.HouseholdID, &t.Name, &t.Description, &t.Points,
		&t.Active, &t.RuleSpec, &deadline, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if deadline.Valid {
		d := deadline.Time
		t.Deadline = &d
	}
	return &t, nil
}

const templateCols = `id, household_id, name, description, points, active, rule_spec, deadline, created_at, updated_at`

func (s *TemplateStore) Create(householdID int64, name, description string, points int, ruleSpec string, deadline *time.Time) (*model.TaskTemplate, error) {
	result, err := s.db.Exec(
		`INSERT INTO task_templates (household_id, name, description, points, rule_spec, deadline) VALUES (?, ?, ?, ?, ?, ?)`,
		householdID, name, description, points, ruleSpec, dateArg(deadline),
	)
	if err != nil {
		return nil, fmt.Errorf("insert template: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *TemplateStore) GetByID(id int64) (*model.TaskTemplate, error) {
	row := s.db.QueryRow(`SELECT `+templateCols+` FROM task_templates WHERE id = ?`, id)
	t, err := scanTemplate(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get template: %w", err)
	}
	return t, nil
}

func (s *TemplateStore) ListByHousehold(householdID int64) ([]model.TaskTemplate, error) {
	return s.list(`SELECT `+templateCols+` FROM task_templates WHERE household_id = ? ORDER BY name ASC`, householdID)
}

func (s *TemplateStore) ListActiveByHousehold(householdID int64) ([]model.TaskTemplate, error) {
	return s.list(`SELECT `+templateCols+` FROM task_templates WHERE household_id = ? AND active = 1 ORDER BY name ASC`, householdID)
}

func (s *TemplateStore) list(query string, args ...any) ([]model.TaskTemplate, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var templates []model.TaskTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		templates = append(templates, *t)
	}
	return templates, rows.Err()
}

func (s *TemplateStore) Update(id int64, name, description string, points int, ruleSpec string, deadline *time.Time) (*model.TaskTemplate, error) {
	_, err := s.db.Exec(
		`UPDATE task_templates SET name = ?, description = ?, points = ?, rule_spec = ?, deadline = ? WHERE id = ?`,
		name, description, points, ruleSpec, dateArg(deadline), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update template: %w", err)
	}
	return s.GetByID(id)
}

func (s *TemplateStore) SetActive(id int64, active bool) (*model.TaskTemplate, error) {
	_, err := s.db.Exec(`UPDATE task_templates SET active = ? WHERE id = ?`, active, id)
	if err != nil {
		return nil, fmt.Errorf("set template active: %w", err)
	}
	return s.GetByID(id)
}

func (s *TemplateStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM task_templates WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	return nil
}

// dateLayout is how day-granular values are stored; comparing them as text
// sorts chronologically.
const dateLayout = "2006-01-02"

func dateArg(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(dateLayout)
}
