package user

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/alama/core"
)

var (
	// errors
	ErrNotFound       = errors.New("user not found")
	ErrEmailExists    = errors.New("a user with this email already exists")
	ErrUsernameExists = errors.New("a user with this username already exists")
)

type Repository interface {
	CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...User) error
	CreateUser(ctx context.Context, usr User) (User, error)
	// QueryUsers applies AND operation on available QueryFilter fields.
	QueryUsers(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]User, error)
	GetUserByID(ctx context.Context, id string) (User, error)
	GetUserByUsernameOrEmail(ctx context.Context, username string) (User, error)
	UpdateUser(ctx context.Context, usr User) (User, error)
	// CountUsersByRole counts users under their TopRole.
	CountUsersByRole(ctx context.Context) (map[string]int, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) CheckUniqueness(ctx context.Context, uname, email string, exclUsers ...User) error {
	if err := svc.repo.CheckUsernameUniqueness(ctx, uname, email, exclUsers...); err != nil {
		var field string
		switch errors.Cause(err) {
		case ErrUsernameExists:
			field = "username"
		case ErrEmailExists:
			field = "email"
		default:
			return errors.Wrap(err, "checking user uniqueness")
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	now := time.Now().UTC()
	usr := User{
		Name:      nu.Name,
		Username:  nu.Username,
		Email:     nu.Email,
		IsActive:  true,
		Roles:     sortedRoles(nu.Roles),
		StudentID: nu.StudentID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	return svc.repo.CreateUser(ctx, usr)
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]User, error) {
	return svc.repo.QueryUsers(ctx, filter, ordering)
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByUsernameOrEmail(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetUserByUsernameOrEmail(ctx, core.CleanString(uname, true /* lower */))
}

func (svc *Service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	now := time.Now().UTC()
	usr.LastLogin = now
	usr.UpdatedAt = now
	return svc.repo.UpdateUser(ctx, usr)
}

// SetPassword replaces the password of the user matching uname (username or email).
func (svc *Service) SetPassword(ctx context.Context, uname, pwd string) (User, error) {
	usr, err := svc.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		return User{}, err
	}
	if err = usr.SetPassword(pwd); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

// UpdateOrCreate saves usr, creating it when no user matches its username or email.
// Blank identity fields keep the value of the matched user.
func (svc *Service) UpdateOrCreate(ctx context.Context, usr User) (User, error) {
	now := time.Now().UTC()
	usr.UpdatedAt = now
	for _, uname := range []string{usr.Username, usr.Email} {
		if uname == "" {
			continue
		}
		existing, err := svc.GetByUsernameOrEmail(ctx, uname)
		if err == nil {
			usr.ID = existing.ID
			usr.CreatedAt = existing.CreatedAt
			usr.LastLogin = existing.LastLogin
			if usr.Username == "" {
				usr.Username = existing.Username
			}
			if usr.Email == "" {
				usr.Email = existing.Email
			}
			if usr.Name == "" {
				usr.Name = existing.Name
			}
			return svc.repo.UpdateUser(ctx, usr)
		}
		if errors.Cause(err) != ErrNotFound {
			return User{}, err
		}
	}
	usr.CreatedAt = now
	return svc.repo.CreateUser(ctx, usr)
}

// CountByRole returns the number of users per top role.
func (svc *Service) CountByRole(ctx context.Context) (map[string]int, error) {
	return svc.repo.CountUsersByRole(ctx)
}
