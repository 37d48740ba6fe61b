package model

import "time"

// TaskTemplate is a reusable chore definition. RuleSpec holds the serialized
// assignment rule (see internal/rule); Deadline only applies to single-claim
// tasks and marks when an unclaimed task counts as expired.
type TaskTemplate struct {
	ID          int64      `json:"id"`
	HouseholdID int64      `json:"household_id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Points      int        `json:"points"`
	Active      bool       `json:"active"`
	RuleSpec    string     `json:"rule_spec"`
	Deadline    *time.Time `json:"deadline"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
