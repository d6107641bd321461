package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"podio.org/internal/champ"
)

var _ champ.Store = (*Store)(nil)

func translateChampErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return champ.ErrNotFound
	}
	if pgErr, ok := maybePgError(err); ok {
		switch pgErr.Code {
		case pgErrUniqueViolation, pgErrForeignKeyViolation:
			return champ.ErrConflict
		}
	}
	return err
}

func (s *Store) CreateOrganizer(ctx context.Context, o *champ.Organizer) error {
	_, err := s.db.ExecContext(ctx, `
		insert into organizers (id, name, description, placement, phone, email, website, created_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
	`, o.ID, o.Name, o.Description, o.Placement, o.Phone, o.Email, o.Website, o.CreatedAt)
	return translateChampErr(err)
}

func (s *Store) ListOrganizers(ctx context.Context) ([]champ.Organizer, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, name, description, placement, phone, email, website, created_at
		from organizers order by name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []champ.Organizer
	for rows.Next() {
		var o champ.Organizer
		if err := rows.Scan(&o.ID, &o.Name, &o.Description, &o.Placement, &o.Phone, &o.Email, &o.Website, &o.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, o)
	}
	return result, rows.Err()
}

func (s *Store) GetOrganizer(ctx context.Context, id string) (champ.Organizer, error) {
	var o champ.Organizer
	err := s.db.QueryRowContext(ctx, `
		select id, name, description, placement, phone, email, website, created_at
		from organizers where id = $1
	`, id).Scan(&o.ID, &o.Name, &o.Description, &o.Placement, &o.Phone, &o.Email, &o.Website, &o.CreatedAt)
	if err != nil {
		return champ.Organizer{}, translateChampErr(err)
	}
	return o, nil
}

func (s *Store) DeleteOrganizer(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "organizers", id)
}

func (s *Store) CreateDiscipline(ctx context.Context, d *champ.Discipline) error {
	_, err := s.db.ExecContext(ctx, `
		insert into disciplines (id, name, category, created_at)
		values ($1, $2, $3, $4)
	`, d.ID, d.Name, d.Category, d.CreatedAt)
	return translateChampErr(err)
}

func (s *Store) ListDisciplines(ctx context.Context) ([]champ.Discipline, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, name, category, created_at from disciplines order by name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []champ.Discipline
	for rows.Next() {
		var d champ.Discipline
		if err := rows.Scan(&d.ID, &d.Name, &d.Category, &d.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	return result, rows.Err()
}

func (s *Store) GetDiscipline(ctx context.Context, id string) (champ.Discipline, error) {
	var d champ.Discipline
	err := s.db.QueryRowContext(ctx, `
		select id, name, category, created_at from disciplines where id = $1
	`, id).Scan(&d.ID, &d.Name, &d.Category, &d.CreatedAt)
	if err != nil {
		return champ.Discipline{}, translateChampErr(err)
	}
	return d, nil
}

func (s *Store) DeleteDiscipline(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "disciplines", id)
}

func (s *Store) CreateChampionship(ctx context.Context, c *champ.Championship) error {
	_, err := s.db.ExecContext(ctx, `
		insert into championships (id, name, location, start_date, end_date, organizer_id, discipline_id, description, created_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, c.ID, c.Name, c.Location, c.StartDate, c.EndDate, c.OrganizerID, c.DisciplineID, c.Description, c.CreatedAt)
	return translateChampErr(err)
}

func (s *Store) ListChampionships(ctx context.Context) ([]champ.Championship, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, name, location, start_date, end_date, organizer_id, discipline_id, description, created_at
		from championships order by start_date desc, name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []champ.Championship
	for rows.Next() {
		var c champ.Championship
		if err := rows.Scan(&c.ID, &c.Name, &c.Location, &c.StartDate, &c.EndDate, &c.OrganizerID, &c.DisciplineID, &c.Description, &c.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func (s *Store) GetChampionship(ctx context.Context, id string) (champ.Championship, error) {
	var c champ.Championship
	err := s.db.QueryRowContext(ctx, `
		select id, name, location, start_date, end_date, organizer_id, discipline_id, description, created_at
		from championships where id = $1
	`, id).Scan(&c.ID, &c.Name, &c.Location, &c.StartDate, &c.EndDate, &c.OrganizerID, &c.DisciplineID, &c.Description, &c.CreatedAt)
	if err != nil {
		return champ.Championship{}, translateChampErr(err)
	}
	return c, nil
}

func (s *Store) UpdateChampionship(ctx context.Context, id string, upd champ.ChampionshipUpdate) (champ.Championship, error) {
	var (
		setClauses []string
		args       []any
		idx        = 1
	)
	add := func(col string, v any) {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", col, idx))
		args = append(args, v)
		idx++
	}
	if upd.Name != nil {
		add("name", *upd.Name)
	}
	if upd.Location != nil {
		add("location", *upd.Location)
	}
	if upd.StartDate != nil {
		add("start_date", *upd.StartDate)
	}
	if upd.EndDate != nil {
		add("end_date", *upd.EndDate)
	}
	if upd.OrganizerID != nil {
		add("organizer_id", *upd.OrganizerID)
	}
	if upd.DisciplineID != nil {
		add("discipline_id", *upd.DisciplineID)
	}
	if upd.Description != nil {
		add("description", *upd.Description)
	}
	if len(setClauses) == 0 {
		return s.GetChampionship(ctx, id)
	}
	args = append(args, id)

	query := fmt.Sprintf(`
		update championships set %s where id = $%d
		returning id, name, location, start_date, end_date, organizer_id, discipline_id, description, created_at
	`, strings.Join(setClauses, ", "), idx)

	var c champ.Championship
	err := s.db.QueryRowContext(ctx, query, args...).
		Scan(&c.ID, &c.Name, &c.Location, &c.StartDate, &c.EndDate, &c.OrganizerID, &c.DisciplineID, &c.Description, &c.CreatedAt)
	if err != nil {
		return champ.Championship{}, translateChampErr(err)
	}
	return c, nil
}

func (s *Store) DeleteChampionship(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "championships", id)
}

func (s *Store) CreateJobPosition(ctx context.Context, j *champ.JobPosition) error {
	_, err := s.db.ExecContext(ctx, `
		insert into job_positions (id, title, description, created_at)
		values ($1, $2, $3, $4)
	`, j.ID, j.Title, j.Description, j.CreatedAt)
	return translateChampErr(err)
}

func (s *Store) ListJobPositions(ctx context.Context) ([]champ.JobPosition, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, title, description, created_at from job_positions order by title
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []champ.JobPosition
	for rows.Next() {
		var j champ.JobPosition
		if err := rows.Scan(&j.ID, &j.Title, &j.Description, &j.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, j)
	}
	return result, rows.Err()
}

func (s *Store) GetJobPosition(ctx context.Context, id string) (champ.JobPosition, error) {
	var j champ.JobPosition
	err := s.db.QueryRowContext(ctx, `
		select id, title, description, created_at from job_positions where id = $1
	`, id).Scan(&j.ID, &j.Title, &j.Description, &j.CreatedAt)
	if err != nil {
		return champ.JobPosition{}, translateChampErr(err)
	}
	return j, nil
}

func (s *Store) DeleteJobPosition(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "job_positions", id)
}

// CreateAssignment relies on the (user_id, championship_id) primary key
// and the job-position FK: duplicates and unknown referents both surface
// as ErrConflict from the constraint check.
func (s *Store) CreateAssignment(ctx context.Context, a *champ.Assignment) error {
	_, err := s.db.ExecContext(ctx, `
		insert into championship_assignments (user_id, championship_id, job_position_id, hours_worked, start_date, end_date, created_at)
		values ($1, $2, $3, $4, $5, $6, $7)
	`, a.UserID, a.ChampionshipID, a.JobPositionID, a.HoursWorked, a.StartDate, a.EndDate, a.CreatedAt)
	return translateChampErr(err)
}

func (s *Store) ListAssignmentsForChampionship(ctx context.Context, championshipID string) ([]champ.Assignment, error) {
	return s.queryAssignments(ctx, `
		select user_id, championship_id, job_position_id, hours_worked, start_date, end_date, created_at
		from championship_assignments where championship_id = $1 order by user_id
	`, championshipID)
}

func (s *Store) ListAssignmentsForUser(ctx context.Context, userID string) ([]champ.Assignment, error) {
	return s.queryAssignments(ctx, `
		select user_id, championship_id, job_position_id, hours_worked, start_date, end_date, created_at
		from championship_assignments where user_id = $1 order by championship_id
	`, userID)
}

func (s *Store) DeleteAssignment(ctx context.Context, userID, championshipID string) error {
	res, err := s.db.ExecContext(ctx, `
		delete from championship_assignments where user_id = $1 and championship_id = $2
	`, userID, championshipID)
	if err != nil {
		return translateChampErr(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return champ.ErrNotFound
	}
	return nil
}

func (s *Store) queryAssignments(ctx context.Context, query string, args ...any) ([]champ.Assignment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []champ.Assignment
	for rows.Next() {
		var a champ.Assignment
		if err := rows.Scan(&a.UserID, &a.ChampionshipID, &a.JobPositionID, &a.HoursWorked, &a.StartDate, &a.EndDate, &a.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

func (s *Store) deleteByID(ctx context.Context, table, id string) error {
	res, err := s.db.ExecContext(ctx, fmt.Sprintf(`delete from %s where id = $1`, table), id)
	if err != nil {
		return translateChampErr(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return champ.ErrNotFound
	}
	return nil
}
