package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/user"
)

const userColumns = `id, name, username, email, is_active, roles, student_id, password_hash, created_at, updated_at, last_login`

var userOrderFields = map[string]bool{"name": true, "username": true, "email": true, "created_at": true, "last_login": true}

type userRow struct {
	ID           string         `db:"id"`
	Name         string         `db:"name"`
	Username     null.String    `db:"username"`
	Email        null.String    `db:"email"`
	IsActive     bool           `db:"is_active"`
	Roles        pq.StringArray `db:"roles"`
	StudentID    null.String    `db:"student_id"`
	PasswordHash []byte         `db:"password_hash"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
	LastLogin    null.Time      `db:"last_login"`
}

func toUserRow(usr user.User) userRow {
	return userRow{
		ID:           usr.ID,
		Name:         usr.Name,
		Username:     null.NewString(usr.Username, usr.Username != ""),
		Email:        null.NewString(usr.Email, usr.Email != ""),
		IsActive:     usr.IsActive,
		Roles:        pq.StringArray(usr.Roles),
		StudentID:    null.NewString(usr.StudentID, usr.StudentID != ""),
		PasswordHash: usr.PasswordHash,
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
		LastLogin:    null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
}

func (r userRow) toUser() user.User {
	return user.User{
		ID:           r.ID,
		Name:         r.Name,
		Username:     r.Username.String,
		Email:        r.Email.String,
		IsActive:     r.IsActive,
		Roles:        []string(r.Roles),
		StudentID:    r.StudentID.String,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
		LastLogin:    r.LastLogin.Time.UTC(),
	}
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	ids := make([]string, 0, len(excludedUsers))
	for _, u := range excludedUsers {
		ids = append(ids, u.ID)
	}

	var where whereClause
	if err := excludeIDs(&where, ids); err != nil {
		return err
	}
	for _, check := range []struct {
		column, value string
		err           error
	}{
		{"username", username, user.ErrUsernameExists},
		{"email", email, user.ErrEmailExists},
	} {
		if check.value == "" {
			continue
		}
		w := where
		w.add(check.column+" = ?", check.value)
		var n int
		q := repo.db.Rebind(`SELECT COUNT(*) FROM "user"` + w.String())
		if err := repo.db.GetContext(ctx, &n, q, w.args...); err != nil {
			return errors.Wrap(err, "checking user uniqueness")
		}
		if n > 0 {
			return check.err
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.NewString()
	q := `INSERT INTO "user" (` + userColumns + `) VALUES
		(:id, :name, :username, :email, :is_active, :roles, :student_id, :password_hash, :created_at, :updated_at, :last_login)`
	if _, err := repo.db.NamedExecContext(ctx, q, toUserRow(usr)); err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	var where whereClause
	if filter.Search != "" {
		val := "%" + filter.Search + "%"
		where.add("name ILIKE ? OR username ILIKE ? OR email ILIKE ?", val, val, val)
	}
	if len(filter.Roles) > 0 {
		conds := make([]string, 0, len(filter.Roles))
		args := make([]interface{}, 0, len(filter.Roles))
		for _, role := range filter.Roles {
			conds = append(conds, "EXISTS (SELECT 1 FROM UNNEST(roles) user_role WHERE user_role LIKE ?)")
			args = append(args, role+"%")
		}
		where.add(strings.Join(conds, " OR "), args...)
	}
	if filter.IsActive != nil {
		where.add("is_active = ?", *filter.IsActive)
	}
	if !filter.CreatedFrom.IsZero() {
		where.add("created_at >= ?", filter.CreatedFrom.UTC())
	}
	if !filter.CreatedTo.IsZero() {
		where.add("created_at <= ?", filter.CreatedTo.UTC())
	}

	q := `SELECT ` + userColumns + ` FROM "user"` + where.String() +
		` ORDER BY ` + core.OrderByClause(ordering, userOrderFields, "created_at DESC") + `, id`
	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), where.args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.toUser())
	}
	return users, nil
}

func (repo *userRepository) get(ctx context.Context, where string, args ...interface{}) (user.User, error) {
	var row userRow
	q := repo.db.Rebind(`SELECT ` + userColumns + ` FROM "user" WHERE ` + where + ` LIMIT 1`)
	if err := repo.db.GetContext(ctx, &row, q, args...); err != nil {
		return user.User{}, trapNoRows(err, user.ErrNotFound, "getting user")
	}
	return row.toUser(), nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return user.User{}, user.ErrNotFound
	}
	return repo.get(ctx, "id = ?", id)
}

func (repo *userRepository) GetUserByUsernameOrEmail(ctx context.Context, username string) (user.User, error) {
	return repo.get(ctx, "username = ? OR email = ?", username, username)
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	q := `UPDATE "user" SET name = :name, username = :username, email = :email, is_active = :is_active,
		roles = :roles, student_id = :student_id, password_hash = :password_hash,
		updated_at = :updated_at, last_login = :last_login
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, toUserRow(usr))
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (repo *userRepository) CountUsersByRole(ctx context.Context) (map[string]int, error) {
	var rows []struct {
		Roles pq.StringArray `db:"roles"`
	}
	if err := repo.db.SelectContext(ctx, &rows, `SELECT roles FROM "user"`); err != nil {
		return nil, errors.Wrap(err, "counting users")
	}
	counts := make(map[string]int)
	for _, r := range rows {
		if role := user.TopRole(r.Roles); role != "" {
			counts[role]++
		}
	}
	return counts, nil
}
