package model

import "time"

// Child is an assignable member of a household's roster.
type Child struct {
	ID          int64     `json:"id"`
	HouseholdID int64     `json:"household_id"`
	Name        string    `json:"name"`
	Color       string    `json:"color"`
	AvatarEmoji string    `json:"avatar_emoji"`
	SortOrder   int       `json:"sort_order"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
