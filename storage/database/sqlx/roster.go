package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/alama/core/roster"
)

type rosterRepository struct {
	db *sqlx.DB
}

var _ roster.Repository = (*rosterRepository)(nil)

func NewRosterRepository(db *sqlx.DB) roster.Repository {
	return &rosterRepository{db: db}
}

func (repo *rosterRepository) CreateClass(ctx context.Context, c roster.Class) (roster.Class, error) {
	c.ID = uuid.NewString()
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO class (id, school_id, name, created_at) VALUES ($1, $2, $3, $4)`,
		c.ID, c.SchoolID, c.Name, c.CreatedAt.UTC())
	if err != nil {
		return roster.Class{}, errors.Wrap(err, "inserting class")
	}
	return c, nil
}

func (repo *rosterRepository) GetClassByID(ctx context.Context, id string) (roster.Class, error) {
	if _, err := uuid.Parse(id); err != nil {
		return roster.Class{}, roster.ErrClassNotFound
	}
	var c roster.Class
	err := repo.db.QueryRowxContext(ctx, `SELECT id, school_id, name, created_at FROM class WHERE id = $1`, id).
		Scan(&c.ID, &c.SchoolID, &c.Name, &c.CreatedAt)
	if err != nil {
		return roster.Class{}, trapNoRows(err, roster.ErrClassNotFound, "getting class")
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return c, nil
}

func (repo *rosterRepository) QueryClasses(ctx context.Context, filter roster.ClassFilter) ([]roster.Class, error) {
	var where whereClause
	if filter.SchoolID != "" {
		where.add("school_id = ?", filter.SchoolID)
	}
	rows, err := repo.db.QueryxContext(ctx,
		repo.db.Rebind(`SELECT id, school_id, name, created_at FROM class`+where.String()+` ORDER BY name, id`),
		where.args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying classes")
	}
	defer func() { _ = rows.Close() }()

	classes := make([]roster.Class, 0)
	for rows.Next() {
		var c roster.Class
		if err = rows.Scan(&c.ID, &c.SchoolID, &c.Name, &c.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scanning class")
		}
		c.CreatedAt = c.CreatedAt.UTC()
		classes = append(classes, c)
	}
	return classes, errors.Wrap(rows.Err(), "querying classes")
}

func (repo *rosterRepository) CreateSubject(ctx context.Context, s roster.Subject) (roster.Subject, error) {
	s.ID = uuid.NewString()
	if _, err := repo.db.ExecContext(ctx, `INSERT INTO subject (id, name, code) VALUES ($1, $2, $3)`, s.ID, s.Name, s.Code); err != nil {
		return roster.Subject{}, errors.Wrap(err, "inserting subject")
	}
	return s, nil
}

func (repo *rosterRepository) GetSubjectByID(ctx context.Context, id string) (roster.Subject, error) {
	if _, err := uuid.Parse(id); err != nil {
		return roster.Subject{}, roster.ErrSubjectNotFound
	}
	var s roster.Subject
	if err := repo.db.GetContext(ctx, &s, `SELECT id, name, code FROM subject WHERE id = $1`, id); err != nil {
		return roster.Subject{}, trapNoRows(err, roster.ErrSubjectNotFound, "getting subject")
	}
	return s, nil
}

func (repo *rosterRepository) QuerySubjects(ctx context.Context) ([]roster.Subject, error) {
	subjects := make([]roster.Subject, 0)
	if err := repo.db.SelectContext(ctx, &subjects, `SELECT id, name, code FROM subject ORDER BY code`); err != nil {
		return nil, errors.Wrap(err, "querying subjects")
	}
	return subjects, nil
}

func (repo *rosterRepository) CreateStudent(ctx context.Context, s roster.Student) (roster.Student, error) {
	s.ID = uuid.NewString()
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO student (id, name, class_id, created_at) VALUES ($1, $2, $3, $4)`,
		s.ID, s.Name, s.ClassID, s.CreatedAt.UTC())
	if err != nil {
		return roster.Student{}, errors.Wrap(err, "inserting student")
	}
	return s, nil
}

type studentRow struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	ClassID   string    `db:"class_id"`
	CreatedAt time.Time `db:"created_at"`
}

func (r studentRow) toStudent() roster.Student {
	return roster.Student{ID: r.ID, Name: r.Name, ClassID: r.ClassID, CreatedAt: r.CreatedAt.UTC()}
}

func (repo *rosterRepository) GetStudentByID(ctx context.Context, id string) (roster.Student, error) {
	if _, err := uuid.Parse(id); err != nil {
		return roster.Student{}, roster.ErrStudentNotFound
	}
	var row studentRow
	if err := repo.db.GetContext(ctx, &row, `SELECT id, name, class_id, created_at FROM student WHERE id = $1`, id); err != nil {
		return roster.Student{}, trapNoRows(err, roster.ErrStudentNotFound, "getting student")
	}
	return row.toStudent(), nil
}

func (repo *rosterRepository) StudentsByClass(ctx context.Context, classID string) ([]roster.Student, error) {
	var rows []studentRow
	q := `SELECT id, name, class_id, created_at FROM student WHERE class_id = $1 ORDER BY name, id`
	if err := repo.db.SelectContext(ctx, &rows, q, classID); err != nil {
		return nil, errors.Wrap(err, "listing class students")
	}
	students := make([]roster.Student, 0, len(rows))
	for _, r := range rows {
		students = append(students, r.toStudent())
	}
	return students, nil
}

func (repo *rosterRepository) CountRoster(ctx context.Context) (roster.Counts, error) {
	var c roster.Counts
	err := repo.db.QueryRowxContext(ctx, `SELECT
		(SELECT COUNT(*) FROM class), (SELECT COUNT(*) FROM subject), (SELECT COUNT(*) FROM student)`).
		Scan(&c.Classes, &c.Subjects, &c.Students)
	if err != nil {
		return roster.Counts{}, errors.Wrap(err, "counting roster")
	}
	return c, nil
}
