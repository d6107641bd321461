package champ

import "context"

// Store describes persistence for the championship domain. Implementations
// map uniqueness and referential violations to ErrConflict and absent rows
// to ErrNotFound, mirroring the auth store contract.
type Store interface {
	CreateOrganizer(ctx context.Context, o *Organizer) error
	ListOrganizers(ctx context.Context) ([]Organizer, error)
	GetOrganizer(ctx context.Context, id string) (Organizer, error)
	DeleteOrganizer(ctx context.Context, id string) error

	CreateDiscipline(ctx context.Context, d *Discipline) error
	ListDisciplines(ctx context.Context) ([]Discipline, error)
	GetDiscipline(ctx context.Context, id string) (Discipline, error)
	DeleteDiscipline(ctx context.Context, id string) error

	CreateChampionship(ctx context.Context, c *Championship) error
	ListChampionships(ctx context.Context) ([]Championship, error)
	GetChampionship(ctx context.Context, id string) (Championship, error)
	UpdateChampionship(ctx context.Context, id string, upd ChampionshipUpdate) (Championship, error)
	DeleteChampionship(ctx context.Context, id string) error

	CreateJobPosition(ctx context.Context, j *JobPosition) error
	ListJobPositions(ctx context.Context) ([]JobPosition, error)
	GetJobPosition(ctx context.Context, id string) (JobPosition, error)
	DeleteJobPosition(ctx context.Context, id string) error

	CreateAssignment(ctx context.Context, a *Assignment) error
	ListAssignmentsForChampionship(ctx context.Context, championshipID string) ([]Assignment, error)
	ListAssignmentsForUser(ctx context.Context, userID string) ([]Assignment, error)
	DeleteAssignment(ctx context.Context, userID, championshipID string) error
}
