// Package marksheet is the client side of marks entry: it reconciles a class
// roster with a mark ledger into an editable sheet and submits it back.
package marksheet

import (
	"context"
	"strings"

	"github.com/trezcool/alama/core/mark"
	"github.com/trezcool/alama/core/roster"
)

type (
	Student       = roster.Student
	MarkRecord    = mark.Mark
	UpsertRequest = mark.NewMark
	OwnMarks      = mark.OwnMarks
	Stats         = mark.Stats
)

// Backend is the remote side of the marks workflow.
type Backend interface {
	ListStudentsByClass(ctx context.Context, classID string) ([]Student, error)
	ListMarks(ctx context.Context, classID, subjectID string, examType mark.ExamType) ([]MarkRecord, error)
	UpsertMark(ctx context.Context, req UpsertRequest) (MarkRecord, error)
	ListOwnMarks(ctx context.Context) (OwnMarks, error)
}

// Selection identifies one ledger.
type Selection struct {
	ClassID   string
	SubjectID string
	ExamType  mark.ExamType
}

// Key tags in-flight requests with the selection they were issued for.
func (s Selection) Key() string {
	return strings.Join([]string{s.ClassID, s.SubjectID, string(s.ExamType)}, "/")
}

// Complete reports whether every part of s is set.
func (s Selection) Complete() bool {
	return s.ClassID != "" && s.SubjectID != "" && s.ExamType != ""
}

type Status int

const (
	Idle Status = iota
	Loading
	Ready
	Submitting
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Submitting:
		return "submitting"
	}
	return "unknown"
}
