package roster

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/alama/core"
)

type Class struct {
	ID        string    `json:"id"`
	SchoolID  string    `json:"school_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

type Subject struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

// Student is an enrolled member of exactly one class.
type Student struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ClassID   string    `json:"class_id"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

type NewClass struct {
	SchoolID string `json:"school_id" validate:"required"`
	Name     string `json:"name" validate:"required,notblank,max=100"`
}

func (nc *NewClass) Validate(validate *validator.Validate) error {
	nc.SchoolID = core.CleanString(nc.SchoolID)
	nc.Name = core.CleanString(nc.Name)
	return validate.Struct(nc)
}

type NewSubject struct {
	Name string `json:"name" validate:"required,notblank,max=100"`
	Code string `json:"code" validate:"required,max=20,alphanum_"`
}

func (ns *NewSubject) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Code = strings.ToUpper(core.CleanString(ns.Code))
	return validate.Struct(ns)
}

type NewStudent struct {
	Name    string `json:"name" validate:"required,notblank,max=150"`
	ClassID string `json:"class_id" validate:"required"`
}

// Validate cleans ns and checks that its class exists.
func (ns *NewStudent) Validate(ctx context.Context, validate *validator.Validate, svc *Service) error {
	ns.Name = core.CleanString(ns.Name)
	ns.ClassID = core.CleanString(ns.ClassID)
	if err := validate.Struct(ns); err != nil {
		return err
	}
	return svc.checkClass(ctx, ns.ClassID)
}

type ClassFilter struct {
	SchoolID string `query:"school_id"`
}

func (cf *ClassFilter) Match(c Class) bool {
	return cf.SchoolID == "" || c.SchoolID == cf.SchoolID
}

// Counts holds roster totals for the dashboard.
type Counts struct {
	Classes  int `json:"classes"`
	Subjects int `json:"subjects"`
	Students int `json:"students"`
}
