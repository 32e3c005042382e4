package marksheet

import (
	"context"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/mark"
)

const (
	DefaultTotalMarks = 100.0
	DefaultWorkers    = 8
)

type Options struct {
	Logger       core.Logger
	Workers      int     // max concurrent upserts in SubmitAll
	DefaultTotal float64 // total marks when the ledger has none
}

// Session is the state of one marks entry screen.
// Every Load starts a new generation; responses from older generations are discarded.
type Session struct {
	backend      Backend
	logger       core.Logger
	workers      int
	defaultTotal float64

	mu         sync.Mutex
	gen        uint64
	sel        Selection
	status     Status
	roster     []Student
	ledger     []MarkRecord
	buffer     *EditBuffer
	totalMarks float64
}

func NewSession(backend Backend, opts Options) *Session {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.DefaultTotal <= 0 {
		opts.DefaultTotal = DefaultTotalMarks
	}
	return &Session{
		backend:      backend,
		logger:       opts.Logger,
		workers:      opts.Workers,
		defaultTotal: opts.DefaultTotal,
		buffer:       newEditBuffer(nil),
		totalMarks:   opts.DefaultTotal,
	}
}

// sheetState is the part of a Session rebuilt by every Load.
type sheetState struct {
	roster     []Student
	ledger     []MarkRecord
	buffer     *EditBuffer
	totalMarks float64
}

// Load switches the session to sel, discarding the current sheet.
// The roster and the ledger are fetched concurrently; the ledger is skipped
// while sel is incomplete. ErrStaleSelection is returned when another Load
// started before this one finished.
// A failed reload of the current selection keeps the last loaded sheet and
// its unsubmitted edits.
func (s *Session) Load(ctx context.Context, sel Selection) error {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	var prev *sheetState
	if s.status == Ready && s.sel.Key() == sel.Key() {
		prev = &sheetState{roster: s.roster, ledger: s.ledger, buffer: s.buffer, totalMarks: s.totalMarks}
	}
	s.sel = sel
	s.roster, s.ledger = nil, nil
	s.buffer = newEditBuffer(nil)
	s.totalMarks = s.defaultTotal
	if sel.ClassID == "" {
		s.status = Idle
		s.mu.Unlock()
		return ErrIncompleteSelection
	}
	s.status = Loading
	s.mu.Unlock()

	var (
		roster  []Student
		ledger  []MarkRecord
		g, gctx = errgroup.WithContext(ctx)
	)
	g.Go(func() (err error) {
		roster, err = s.backend.ListStudentsByClass(gctx, sel.ClassID)
		if err != nil {
			return asTransportError("listing students", err)
		}
		return nil
	})
	if sel.Complete() {
		g.Go(func() (err error) {
			ledger, err = s.backend.ListMarks(gctx, sel.ClassID, sel.SubjectID, sel.ExamType)
			if err != nil {
				return asTransportError("listing marks", err)
			}
			return nil
		})
	}
	err := g.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		s.debug("discarding stale load", map[string]interface{}{"selection": sel.Key(), "current": s.sel.Key()})
		return ErrStaleSelection
	}
	if err != nil {
		s.status = Idle
		if prev != nil {
			s.roster, s.ledger, s.buffer, s.totalMarks = prev.roster, prev.ledger, prev.buffer, prev.totalMarks
			s.status = Ready
		}
		s.warn("loading marksheet", err, map[string]interface{}{"selection": sel.Key()})
		return err
	}
	s.roster, s.ledger = roster, ledger
	s.buffer, s.totalMarks = Reconcile(roster, ledger, s.defaultTotal)
	s.status = Ready
	return nil
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Session) Selection() Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sel
}

func (s *Session) TotalMarks() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalMarks
}

// SetTotalMarks sets the total shared by every row.
func (s *Session) SetTotalMarks(total float64) error {
	if total <= 0 || math.IsInf(total, 0) || math.IsNaN(total) {
		return core.NewValidationError(
			errors.New("invalid total marks"),
			core.FieldError{Field: "total_marks", Error: "total marks must be greater than 0"},
		)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalMarks = total
	return nil
}

// SetField edits one field of one row.
func (s *Session) SetField(studentID string, field Field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != Ready {
		return ErrNotReady
	}
	return s.buffer.SetField(studentID, field, value)
}

// Row is a view of one student's line on the sheet.
type Row struct {
	Student    Student
	Edit       EditRow
	Recorded   bool // a ledger record exists
	Percentage float64
	HasPercent bool
	Pass       bool
}

// Sheet is a consistent snapshot of the session.
type Sheet struct {
	Selection  Selection
	Status     Status
	TotalMarks float64
	Rows       []Row
}

func (s *Session) Sheet() Sheet {
	s.mu.Lock()
	defer s.mu.Unlock()

	recorded := make(map[string]bool, len(s.ledger))
	for _, rec := range s.ledger {
		recorded[rec.StudentID] = true
	}
	sh := Sheet{
		Selection:  s.sel,
		Status:     s.status,
		TotalMarks: s.totalMarks,
		Rows:       make([]Row, 0, len(s.roster)),
	}
	for _, std := range s.roster {
		row, ok := s.buffer.Row(std.ID)
		if !ok {
			continue
		}
		r := Row{Student: std, Edit: row, Recorded: recorded[std.ID]}
		r.Percentage, r.HasPercent = Percentage(row.Obtained, s.totalMarks)
		r.Pass = r.HasPercent && PassStyled(r.Percentage)
		sh.Rows = append(sh.Rows, r)
	}
	return sh
}

// Submit saves the row of studentID.
func (s *Session) Submit(ctx context.Context, studentID string) (MarkRecord, error) {
	s.mu.Lock()
	if s.status != Ready {
		s.mu.Unlock()
		return MarkRecord{}, ErrNotReady
	}
	if !s.sel.Complete() {
		s.mu.Unlock()
		return MarkRecord{}, ErrIncompleteSelection
	}
	row, ok := s.buffer.Row(studentID)
	if !ok {
		s.mu.Unlock()
		return MarkRecord{}, errors.Wrap(ErrUnknownStudent, studentID)
	}
	gen, sel, total := s.gen, s.sel, s.totalMarks
	s.mu.Unlock()

	req, err := newUpsertRequest(sel, studentID, row, total)
	if err != nil {
		return MarkRecord{}, err
	}
	rec, err := s.backend.UpsertMark(ctx, req)
	if err != nil {
		terr := asTransportError("saving mark", err)
		s.warn("saving mark", terr, map[string]interface{}{"student_id": studentID})
		return MarkRecord{}, terr
	}

	s.mu.Lock()
	if gen == s.gen {
		s.recordLocked(rec)
	}
	s.mu.Unlock()
	return rec, nil
}

// BulkResult lists what SubmitAll did with each row.
type BulkResult struct {
	Saved   []MarkRecord
	Skipped []string // student IDs with nothing entered
	Failed  []RowError
}

// SubmitAll saves every row with something entered, concurrently.
// Empty rows are skipped. When some rows fail a *BulkError is returned; the
// rows that were saved are not rolled back and failed rows are not retried.
func (s *Session) SubmitAll(ctx context.Context) (BulkResult, error) {
	s.mu.Lock()
	if s.status != Ready {
		s.mu.Unlock()
		return BulkResult{}, ErrNotReady
	}
	if !s.sel.Complete() {
		s.mu.Unlock()
		return BulkResult{}, ErrIncompleteSelection
	}
	s.status = Submitting
	gen, sel, total := s.gen, s.sel, s.totalMarks
	buf := s.buffer.clone()
	s.mu.Unlock()

	type outcome struct {
		studentID string
		rec       MarkRecord
		err       error
	}
	var (
		res      BulkResult
		outcomes = make([]outcome, 0, buf.Len())
	)
	for _, id := range buf.StudentIDs() {
		row, _ := buf.Row(id)
		if strings.TrimSpace(row.Obtained) == "" {
			res.Skipped = append(res.Skipped, id)
			continue
		}
		outcomes = append(outcomes, outcome{studentID: id})
	}

	var g errgroup.Group
	g.SetLimit(s.workers)
	for i := range outcomes {
		out := &outcomes[i]
		row, _ := buf.Row(out.studentID)
		req, err := newUpsertRequest(sel, out.studentID, row, total)
		if err != nil {
			out.err = err
			continue
		}
		g.Go(func() error {
			rec, err := s.backend.UpsertMark(ctx, req)
			if err != nil {
				out.err = asTransportError("saving mark", err)
				return nil
			}
			out.rec = rec
			return nil
		})
	}
	_ = g.Wait() // per-row errors live in outcomes

	for _, out := range outcomes {
		if out.err != nil {
			res.Failed = append(res.Failed, RowError{StudentID: out.studentID, Err: out.err})
		} else {
			res.Saved = append(res.Saved, out.rec)
		}
	}

	s.mu.Lock()
	if gen == s.gen {
		for _, rec := range res.Saved {
			s.recordLocked(rec)
		}
		s.status = Ready
	}
	s.mu.Unlock()

	if len(res.Failed) > 0 {
		berr := &BulkError{Attempted: len(outcomes), Failed: res.Failed}
		s.warn("bulk saving marks", berr, map[string]interface{}{"selection": sel.Key()})
		return res, berr
	}
	return res, nil
}

// recordLocked puts a saved record into the ledger, replacing the one for the same student.
func (s *Session) recordLocked(rec MarkRecord) {
	for i := range s.ledger {
		if s.ledger[i].StudentID == rec.StudentID {
			s.ledger[i] = rec
			return
		}
	}
	s.ledger = append(s.ledger, rec)
}

func (s *Session) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *Session) warn(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}

// newUpsertRequest parses row for sel. A blank or non-numeric Obtained is a
// *core.ValidationError.
func newUpsertRequest(sel Selection, studentID string, row EditRow, total float64) (UpsertRequest, error) {
	obtained, err := strconv.ParseFloat(strings.TrimSpace(row.Obtained), 64)
	if err != nil || math.IsNaN(obtained) || math.IsInf(obtained, 0) || obtained < 0 {
		msg := "enter a valid number"
		if strings.TrimSpace(row.Obtained) == "" {
			msg = "this field is required"
		}
		return UpsertRequest{}, core.NewValidationError(
			errors.Errorf("invalid marks for student %s", studentID),
			core.FieldError{Field: string(FieldObtained), Error: msg},
		)
	}
	return UpsertRequest{
		StudentID:     studentID,
		SubjectID:     sel.SubjectID,
		ClassID:       sel.ClassID,
		ExamType:      sel.ExamType,
		MarksObtained: &obtained,
		TotalMarks:    total,
		Remarks:       row.Remarks,
	}, nil
}

// Results fetches the signed in student's marks. Stats are recomputed locally.
func Results(ctx context.Context, backend Backend) (Report, error) {
	own, err := backend.ListOwnMarks(ctx)
	if err != nil {
		return Report{}, asTransportError("listing own marks", err)
	}
	rep := Report{Rows: make([]ResultRow, 0, len(own.Marks))}
	records := make([]MarkRecord, 0, len(own.Marks))
	for _, r := range own.Marks {
		records = append(records, r.Mark)
		row := ResultRow{Result: r}
		row.Percentage, row.HasPercent = mark.Percent(r.MarksObtained, r.TotalMarks)
		row.Pass = row.HasPercent && PassStyled(row.Percentage)
		row.Tier = ClassifyGrade(r.Grade)
		rep.Rows = append(rep.Rows, row)
	}
	rep.Stats = Aggregate(records)
	return rep, nil
}

// Report is the read side of a student's results.
type Report struct {
	Rows  []ResultRow
	Stats Stats
}

type ResultRow struct {
	mark.Result
	HasPercent bool
	Pass       bool
	Tier       Tier
}
