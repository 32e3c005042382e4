// Package testutil holds fixtures shared by tests.
package testutil

import (
	"context"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/mark"
	"github.com/trezcool/alama/core/roster"
	"github.com/trezcool/alama/core/school"
	"github.com/trezcool/alama/core/user"
)

// NewValidator returns a validator with every custom tag registered.
func NewValidator() *validator.Validate {
	validate, _ := NewValidatorAndTranslator()
	return validate
}

// NewValidatorAndTranslator also returns the translator holding the validation messages.
func NewValidatorAndTranslator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	mark.InitValidators(validate, translator)
	return validate, translator
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("createUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

func CreateSchool(t *testing.T, repo school.Repository, name, code string, isActive bool) school.School {
	t.Helper()
	now := time.Now().UTC()
	s, err := repo.CreateSchool(context.Background(), school.School{
		Name:      name,
		Code:      code,
		IsActive:  isActive,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("createSchool() failed: %v", err)
	}
	return s
}

func CreateClass(t *testing.T, repo roster.Repository, schoolID, name string) roster.Class {
	t.Helper()
	c, err := repo.CreateClass(context.Background(), roster.Class{SchoolID: schoolID, Name: name, CreatedAt: time.Now().UTC()})
	if err != nil {
		t.Fatalf("createClass() failed: %v", err)
	}
	return c
}

func CreateSubject(t *testing.T, repo roster.Repository, name, code string) roster.Subject {
	t.Helper()
	s, err := repo.CreateSubject(context.Background(), roster.Subject{Name: name, Code: code})
	if err != nil {
		t.Fatalf("createSubject() failed: %v", err)
	}
	return s
}

func CreateStudent(t *testing.T, repo roster.Repository, classID, name string) roster.Student {
	t.Helper()
	s, err := repo.CreateStudent(context.Background(), roster.Student{Name: name, ClassID: classID, CreatedAt: time.Now().UTC()})
	if err != nil {
		t.Fatalf("createStudent() failed: %v", err)
	}
	return s
}

func RecordMark(t *testing.T, repo mark.Repository, std roster.Student, subjectID string, et mark.ExamType, obtained, total float64) mark.Mark {
	t.Helper()
	now := time.Now().UTC()
	m, err := repo.UpsertMark(context.Background(), mark.Mark{
		StudentID:     std.ID,
		SubjectID:     subjectID,
		ClassID:       std.ClassID,
		ExamType:      et,
		MarksObtained: obtained,
		TotalMarks:    total,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		t.Fatalf("recordMark() failed: %v", err)
	}
	return m
}

// LinkStudent attaches the roster student studentID to usr.
func LinkStudent(t *testing.T, repo user.Repository, usr user.User, studentID string) user.User {
	t.Helper()
	usr.StudentID = studentID
	usr, err := repo.UpdateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("linkStudent() failed: %v", err)
	}
	return usr
}

// TestConfig returns a Config that does not read the environment.
func TestConfig() *core.Config {
	return &core.Config{
		AppName:   "Alama",
		Env:       "TEST",
		Build:     "test",
		TestMode:  true,
		SecretKey: "test-secret",
		Server: core.ServerConfig{
			ShutdownTimeout:           time.Second,
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
		Database: core.DatabaseConfig{Engine: "memory"},
		Client:   core.ClientConfig{Timeout: 5 * time.Second, Workers: 4, DefaultTotal: 100},
	}
}
