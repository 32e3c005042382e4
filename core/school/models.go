package school

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/alama/core"
)

type School struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	Address   string    `json:"address"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// NewSchool contains information needed to create a new School.
type NewSchool struct {
	Name    string `json:"name" validate:"required,notblank,max=150"`
	Code    string `json:"code" validate:"required,max=20,alphanum_"`
	Address string `json:"address" validate:"max=255"`
	Email   string `json:"email" validate:"omitempty,email"`
	Phone   string `json:"phone" validate:"max=30"`
}

func (ns *NewSchool) Validate(ctx context.Context, validate *validator.Validate, svc *Service) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Code = strings.ToUpper(core.CleanString(ns.Code))
	ns.Address = core.CleanString(ns.Address)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	ns.Phone = core.CleanString(ns.Phone)

	if err := validate.Struct(ns); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, ns.Code)
}

// UpdateSchool defines what information may be provided to modify an existing School.
// Blank fields keep their current value.
type UpdateSchool struct {
	Name     string `json:"name" validate:"max=150"`
	Code     string `json:"code" validate:"omitempty,max=20,alphanum_"`
	Address  string `json:"address" validate:"max=255"`
	Email    string `json:"email" validate:"omitempty,email"`
	Phone    string `json:"phone" validate:"max=30"`
	IsActive *bool  `json:"is_active"`
}

func (us *UpdateSchool) Validate(ctx context.Context, orig School, validate *validator.Validate, svc *Service) error {
	us.Name = orElse(core.CleanString(us.Name), orig.Name)
	us.Code = orElse(strings.ToUpper(core.CleanString(us.Code)), orig.Code)
	us.Address = orElse(core.CleanString(us.Address), orig.Address)
	us.Email = orElse(core.CleanString(us.Email, true /* lower */), orig.Email)
	us.Phone = orElse(core.CleanString(us.Phone), orig.Phone)

	if err := validate.Struct(us); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, us.Code, orig)
}

func orElse(s, def string) string {
	if s != "" {
		return s
	}
	return def
}

type QueryFilter struct {
	Search   string `query:"search"`
	IsActive *bool  `query:"is_active"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

// Match reports whether s passes the filter.
// Search does a case-insensitive match on one of Name or Code.
func (qf *QueryFilter) Match(s School) bool {
	if qf.Search != "" {
		q := strings.ToLower(qf.Search)
		if !(strings.Contains(strings.ToLower(s.Name), q) || strings.Contains(strings.ToLower(s.Code), q)) {
			return false
		}
	}
	if qf.IsActive != nil && s.IsActive != *qf.IsActive {
		return false
	}
	return true
}
