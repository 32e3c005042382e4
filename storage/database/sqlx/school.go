package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/school"
)

const schoolColumns = `id, name, code, address, email, phone, is_active, created_at, updated_at`

var schoolOrderFields = map[string]bool{"name": true, "code": true, "created_at": true}

type schoolRow struct {
	ID        string      `db:"id"`
	Name      string      `db:"name"`
	Code      string      `db:"code"`
	Address   null.String `db:"address"`
	Email     null.String `db:"email"`
	Phone     null.String `db:"phone"`
	IsActive  bool        `db:"is_active"`
	CreatedAt time.Time   `db:"created_at"`
	UpdatedAt time.Time   `db:"updated_at"`
}

func toSchoolRow(s school.School) schoolRow {
	return schoolRow{
		ID:        s.ID,
		Name:      s.Name,
		Code:      s.Code,
		Address:   null.NewString(s.Address, s.Address != ""),
		Email:     null.NewString(s.Email, s.Email != ""),
		Phone:     null.NewString(s.Phone, s.Phone != ""),
		IsActive:  s.IsActive,
		CreatedAt: s.CreatedAt.UTC(),
		UpdatedAt: s.UpdatedAt.UTC(),
	}
}

func (r schoolRow) toSchool() school.School {
	return school.School{
		ID:        r.ID,
		Name:      r.Name,
		Code:      r.Code,
		Address:   r.Address.String,
		Email:     r.Email.String,
		Phone:     r.Phone.String,
		IsActive:  r.IsActive,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

type schoolRepository struct {
	db *sqlx.DB
}

var _ school.Repository = (*schoolRepository)(nil)

func NewSchoolRepository(db *sqlx.DB) school.Repository {
	return &schoolRepository{db: db}
}

func (repo *schoolRepository) CheckCodeUniqueness(ctx context.Context, code string, excludedSchools ...school.School) error {
	ids := make([]string, 0, len(excludedSchools))
	for _, s := range excludedSchools {
		ids = append(ids, s.ID)
	}
	var where whereClause
	where.add("code = ?", code)
	if err := excludeIDs(&where, ids); err != nil {
		return err
	}
	var n int
	if err := repo.db.GetContext(ctx, &n, repo.db.Rebind(`SELECT COUNT(*) FROM school`+where.String()), where.args...); err != nil {
		return errors.Wrap(err, "checking school uniqueness")
	}
	if n > 0 {
		return school.ErrCodeExists
	}
	return nil
}

func (repo *schoolRepository) CreateSchool(ctx context.Context, s school.School) (school.School, error) {
	s.ID = uuid.NewString()
	q := `INSERT INTO school (` + schoolColumns + `) VALUES
		(:id, :name, :code, :address, :email, :phone, :is_active, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, toSchoolRow(s)); err != nil {
		return school.School{}, errors.Wrap(err, "inserting school")
	}
	return s, nil
}

func (repo *schoolRepository) QuerySchools(ctx context.Context, filter school.QueryFilter, ordering []core.DBOrdering) ([]school.School, error) {
	var where whereClause
	if filter.Search != "" {
		val := "%" + filter.Search + "%"
		where.add("name ILIKE ? OR code ILIKE ?", val, val)
	}
	if filter.IsActive != nil {
		where.add("is_active = ?", *filter.IsActive)
	}
	q := `SELECT ` + schoolColumns + ` FROM school` + where.String() +
		` ORDER BY ` + core.OrderByClause(ordering, schoolOrderFields, "name ASC") + `, id`

	var rows []schoolRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), where.args...); err != nil {
		return nil, errors.Wrap(err, "querying schools")
	}
	schools := make([]school.School, 0, len(rows))
	for _, r := range rows {
		schools = append(schools, r.toSchool())
	}
	return schools, nil
}

func (repo *schoolRepository) GetSchoolByID(ctx context.Context, id string) (school.School, error) {
	if _, err := uuid.Parse(id); err != nil {
		return school.School{}, school.ErrNotFound
	}
	var row schoolRow
	if err := repo.db.GetContext(ctx, &row, `SELECT `+schoolColumns+` FROM school WHERE id = $1`, id); err != nil {
		return school.School{}, trapNoRows(err, school.ErrNotFound, "getting school")
	}
	return row.toSchool(), nil
}

func (repo *schoolRepository) UpdateSchool(ctx context.Context, s school.School) (school.School, error) {
	q := `UPDATE school SET name = :name, code = :code, address = :address, email = :email, phone = :phone,
		is_active = :is_active, updated_at = :updated_at
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, toSchoolRow(s))
	if err != nil {
		return school.School{}, errors.Wrap(err, "updating school")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return school.School{}, school.ErrNotFound
	}
	return s, nil
}

func (repo *schoolRepository) DeleteSchoolsByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	q, args, err := sqlx.In(`DELETE FROM school WHERE id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "expanding school IDs")
	}
	if _, err = repo.db.ExecContext(ctx, repo.db.Rebind(q), args...); err != nil {
		return errors.Wrap(err, "deleting schools")
	}
	return nil
}

func (repo *schoolRepository) CountSchools(ctx context.Context) (total int, active int, err error) {
	var counts struct {
		Total  int `db:"total"`
		Active int `db:"active"`
	}
	q := `SELECT COUNT(*) AS total, COUNT(*) FILTER (WHERE is_active) AS active FROM school`
	if err = repo.db.GetContext(ctx, &counts, q); err != nil {
		return 0, 0, errors.Wrap(err, "counting schools")
	}
	return counts.Total, counts.Active, nil
}
