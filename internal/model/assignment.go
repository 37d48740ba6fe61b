package model

import "time"

type AssignmentStatus string

const (
	StatusPending   AssignmentStatus = "pending"
	StatusCompleted AssignmentStatus = "completed"
	StatusOverdue   AssignmentStatus = "overdue"
)

// Assignment is one dated occurrence of a task template. ChildID is nil for
// household-wide occurrences. At most one assignment exists per
// (template, child-or-nil, due date); rows are never deleted, and the
// pending -> completed transition happens at most once.
type Assignment struct {
	ID          int64            `json:"id"`
	HouseholdID int64            `json:"household_id"`
	TemplateID  int64            `json:"template_id"`
	ChildID     *int64           `json:"child_id"`
	DueDate     time.Time        `json:"due_date"`
	Status      AssignmentStatus `json:"status"`
	CompletedBy *int64           `json:"completed_by"`
	CompletedAt *time.Time       `json:"completed_at"`
	CreatedAt   time.Time        `json:"created_at"`
}

const (
	ResponseAccepted = "accepted"
	ResponseDeclined = "declined"
)

// CandidateResponse records a child's accept or decline against a
// single-claim template, whether or not an assignment resulted.
type CandidateResponse struct {
	ID          int64     `json:"id"`
	TemplateID  int64     `json:"template_id"`
	ChildID     int64     `json:"child_id"`
	HouseholdID int64     `json:"household_id"`
	Response    string    `json:"response"`
	CreatedAt   time.Time `json:"created_at"`
}
