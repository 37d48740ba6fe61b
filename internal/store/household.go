package store

import (
	"database/sql"
	"fmt"

	"github.com/tidemann/chorewheel/internal/model"
)

type HouseholdStore struct {
	db *sql.DB
}

func NewHouseholdStore(db *sql.DB) *HouseholdStore {
	return &HouseholdStore{db: db}
}

func scanHousehold(scanner interface{ Scan(...any) error }) (*model.Household, error) {
	var h model.Household
	err := scanner.Scan(&h.ID, &h.Name, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func scanHouseholdMember(scanner interface{ Scan(...any) error }) (*model.HouseholdMember, error) {
	var m model.HouseholdMember
	err := scanner.Scan(&m.ID, &m.HouseholdID, &m.UserID, &m.Role, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

const householdCols = `id, name, created_at, updated_at`
const householdMemberCols = `id, household_id, user_id, role, created_at, updated_at`

func (s *HouseholdStore) Create(name string) (*model.Household, error) {
	result, err := s.db.Exec(`INSERT INTO households (name) VALUES (?)`, name)
	if err != nil {
		return nil, fmt.Errorf("insert household: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *HouseholdStore) GetByID(id int64) (*model.Household, error) {
	row := s.db.QueryRow(`SELECT `+householdCols+` FROM households WHERE id = ?`, id)
	h, err := scanHousehold(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get household: %w", err)
	}
	return h, nil
}

func (s *HouseholdStore) Update(id int64, name string) (*model.Household, error) {
	_, err := s.db.Exec(`UPDATE households SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		return nil, fmt.Errorf("update household: %w", err)
	}
	return s.GetByID(id)
}

func (s *HouseholdStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM households WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete household: %w", err)
	}
	return nil
}

func (s *HouseholdStore) AddMember(householdID, userID int64, role string) (*model.HouseholdMember, error) {
	result, err := s.db.Exec(
		`INSERT INTO household_members (household_id, user_id, role) VALUES (?, ?, ?)`,
		householdID, userID, role,
	)
	if err != nil {
		return nil, fmt.Errorf("add member: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	row := s.db.QueryRow(`SELECT `+householdMemberCols+` FROM household_members WHERE id = ?`, id)
	return scanHouseholdMember(row)
}

func (s *HouseholdStore) GetMember(householdID, userID int64) (*model.HouseholdMember, error) {
	row := s.db.QueryRow(
		`SELECT `+householdMemberCols+` FROM household_members WHERE household_id = ? AND user_id = ?`,
		householdID, userID,
	)
	m, err := scanHouseholdMember(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get member: %w", err)
	}
	return m, nil
}

func (s *HouseholdStore) ListHouseholdsForUser(userID int64) ([]model.Household, error) {
	rows, err := s.db.Query(
		`SELECT h.id, h.name, h.created_at, h.updated_at
		 FROM households h
		 JOIN household_members hm ON h.id = hm.household_id
		 WHERE hm.user_id = ?
		 ORDER BY h.name ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list households for user: %w", err)
	}
	defer rows.Close()

	var households []model.Household
	for rows.Next() {
		h, err := scanHousehold(rows)
		if err != nil {
			return nil, fmt.Errorf("scan household: %w", err)
		}
		households = append(households, *h)
	}
	return households, rows.Err()
}
