// Package champ holds the championship-management domain: the records
// whose administration the RBAC core gates.
package champ

import (
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("champ: not found")
	ErrConflict     = errors.New("champ: resource conflict")
	ErrInvalidInput = errors.New("champ: invalid input")
)

// Organizer is an organization that runs championships.
type Organizer struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Placement   string    `json:"placement,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	Email       string    `json:"email,omitempty"`
	Website     string    `json:"website,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Discipline is a sport discipline a championship belongs to.
type Discipline struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Category  string    `json:"category,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Championship is a scheduled event run by an organizer in a discipline.
type Championship struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Location     string    `json:"location,omitempty"`
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
	OrganizerID  string    `json:"organizer_id"`
	DisciplineID string    `json:"discipline_id"`
	Description  string    `json:"description,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// JobPosition is a staffing role within a championship (judge, medic, ...).
type JobPosition struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Assignment staffs a user into a championship under a job position. At
// most one row per (user, championship) pair.
type Assignment struct {
	UserID         string     `json:"user_id"`
	ChampionshipID string     `json:"championship_id"`
	JobPositionID  string     `json:"job_position_id"`
	HoursWorked    float64    `json:"hours_worked"`
	StartDate      *time.Time `json:"start_date,omitempty"`
	EndDate        *time.Time `json:"end_date,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// ChampionshipUpdate carries optional field changes.
type ChampionshipUpdate struct {
	Name         *string
	Location     *string
	StartDate    *time.Time
	EndDate      *time.Time
	OrganizerID  *string
	DisciplineID *string
	Description  *string
}
