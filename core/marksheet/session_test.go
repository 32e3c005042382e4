package marksheet

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/mark"
)

type fakeBackend struct {
	mu         sync.Mutex
	rosters    map[string][]Student
	ledger     []MarkRecord
	failFor    map[string]bool // student IDs whose upsert fails
	rosterErr  error
	gates      map[string]chan struct{} // class ID -> released when closed
	upsertGate chan struct{}            // holds every upsert until closed
	waiting    int                      // upserts held by upsertGate
	upserts    []UpsertRequest
	marksHits  int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		rosters: map[string][]Student{},
		failFor: map[string]bool{},
		gates:   map[string]chan struct{}{},
	}
}

func (fb *fakeBackend) ListStudentsByClass(ctx context.Context, classID string) ([]Student, error) {
	fb.mu.Lock()
	gate := fb.gates[classID]
	fb.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	fb.mu.Lock()
	defer fb.mu.Unlock()
	if fb.rosterErr != nil {
		return nil, fb.rosterErr
	}
	return append([]Student(nil), fb.rosters[classID]...), nil
}

func (fb *fakeBackend) ListMarks(_ context.Context, classID, subjectID string, examType mark.ExamType) ([]MarkRecord, error) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.marksHits++
	var out []MarkRecord
	for _, rec := range fb.ledger {
		if rec.ClassID == classID && rec.SubjectID == subjectID && rec.ExamType == examType {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (fb *fakeBackend) UpsertMark(ctx context.Context, req UpsertRequest) (MarkRecord, error) {
	fb.mu.Lock()
	gate := fb.upsertGate
	if gate != nil {
		fb.waiting++
	}
	fb.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return MarkRecord{}, ctx.Err()
		}
	}

	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.upserts = append(fb.upserts, req)
	if fb.failFor[req.StudentID] {
		return MarkRecord{}, &TransportError{Op: "PUT /v1/marks", Status: 500, Err: errors.New("internal server error")}
	}
	rec := MarkRecord{
		ID:            "m-" + req.StudentID,
		StudentID:     req.StudentID,
		SubjectID:     req.SubjectID,
		ClassID:       req.ClassID,
		ExamType:      req.ExamType,
		MarksObtained: *req.MarksObtained,
		TotalMarks:    req.TotalMarks,
		Remarks:       req.Remarks,
	}
	for i := range fb.ledger {
		if fb.ledger[i].Key() == rec.Key() {
			fb.ledger[i] = rec
			return rec, nil
		}
	}
	fb.ledger = append(fb.ledger, rec)
	return rec, nil
}

func (fb *fakeBackend) ListOwnMarks(context.Context) (OwnMarks, error) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	var own OwnMarks
	for _, rec := range fb.ledger {
		own.Marks = append(own.Marks, mark.NewResult(rec))
	}
	own.Stats = mark.Summarize(fb.ledger)
	return own, nil
}

func (fb *fakeBackend) waitingUpserts() int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.waiting
}

func (fb *fakeBackend) upsertedIDs() []string {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	ids := make([]string, 0, len(fb.upserts))
	for _, req := range fb.upserts {
		ids = append(ids, req.StudentID)
	}
	return ids
}

var midterm = Selection{ClassID: "c1", SubjectID: "s1", ExamType: mark.ExamMidterm}

func setupSession(t *testing.T) (*Session, *fakeBackend) {
	t.Helper()
	fb := newFakeBackend()
	fb.rosters["c1"] = students("1", "2", "3")
	fb.rosters["c2"] = students("x", "y")
	fb.ledger = []MarkRecord{record("1", 30, 40, "solid")}
	return NewSession(fb, Options{Workers: 2}), fb
}

func TestSession_Load(t *testing.T) {
	sess, _ := setupSession(t)
	assert.Equal(t, Idle, sess.Status())

	require.NoError(t, sess.Load(context.Background(), midterm))

	sh := sess.Sheet()
	assert.Equal(t, Ready, sh.Status)
	assert.Equal(t, 40.0, sh.TotalMarks)
	require.Len(t, sh.Rows, 3)
	assert.Equal(t, "30", sh.Rows[0].Edit.Obtained)
	assert.True(t, sh.Rows[0].Recorded)
	assert.True(t, sh.Rows[0].HasPercent)
	assert.Equal(t, 75.0, sh.Rows[0].Percentage)
	assert.True(t, sh.Rows[0].Pass)
	assert.False(t, sh.Rows[1].Recorded)
	assert.False(t, sh.Rows[1].HasPercent)
}

func TestSession_LoadIncompleteSelection(t *testing.T) {
	sess, fb := setupSession(t)

	err := sess.Load(context.Background(), Selection{SubjectID: "s1", ExamType: mark.ExamQuiz})
	assert.Equal(t, ErrIncompleteSelection, err)
	assert.Equal(t, Idle, sess.Status())

	// roster only: the ledger is not fetched
	require.NoError(t, sess.Load(context.Background(), Selection{ClassID: "c1"}))
	assert.Equal(t, 0, fb.marksHits)
	assert.Len(t, sess.Sheet().Rows, 3)

	_, err = sess.SubmitAll(context.Background())
	assert.Equal(t, ErrIncompleteSelection, err)
}

func TestSession_LoadFailure(t *testing.T) {
	sess, fb := setupSession(t)
	require.NoError(t, sess.Load(context.Background(), midterm))

	fb.rosterErr = errors.New("connection refused")
	err := sess.Load(context.Background(), Selection{ClassID: "c2", SubjectID: "s1", ExamType: mark.ExamFinal})

	var terr *TransportError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, Idle, sess.Status())
	assert.Empty(t, sess.Sheet().Rows)
	assert.Equal(t, ErrNotReady, sess.SetField("x", FieldObtained, "1"))
}

func TestSession_StaleLoadIsDiscarded(t *testing.T) {
	sess, fb := setupSession(t)
	gate := make(chan struct{})
	fb.gates["c1"] = gate

	staleErr := make(chan error, 1)
	go func() {
		staleErr <- sess.Load(context.Background(), midterm)
	}()
	// wait for the first load to be in flight
	require.Eventually(t, func() bool { return sess.Status() == Loading }, time.Second, time.Millisecond)

	newer := Selection{ClassID: "c2", SubjectID: "s1", ExamType: mark.ExamFinal}
	require.NoError(t, sess.Load(context.Background(), newer))
	require.NoError(t, sess.SetField("x", FieldObtained, "12"))

	close(gate)
	assert.Equal(t, ErrStaleSelection, <-staleErr)

	sh := sess.Sheet()
	assert.Equal(t, newer, sh.Selection)
	assert.Equal(t, Ready, sh.Status)
	require.Len(t, sh.Rows, 2)
	assert.Equal(t, "x", sh.Rows[0].Student.ID)
	assert.Equal(t, "12", sh.Rows[0].Edit.Obtained)
}

func TestSession_ReloadFailureKeepsSheet(t *testing.T) {
	sess, fb := setupSession(t)
	ctx := context.Background()
	require.NoError(t, sess.Load(ctx, midterm))
	require.NoError(t, sess.SetField("2", FieldObtained, "12"))

	fb.rosterErr = errors.New("connection refused")
	err := sess.Load(ctx, midterm)

	var terr *TransportError
	require.True(t, errors.As(err, &terr))
	sh := sess.Sheet()
	assert.Equal(t, Ready, sh.Status)
	assert.Equal(t, 40.0, sh.TotalMarks)
	require.Len(t, sh.Rows, 3)
	assert.True(t, sh.Rows[0].Recorded)
	assert.Equal(t, "12", sh.Rows[1].Edit.Obtained)

	// the kept sheet can still be submitted once the backend is back
	fb.rosterErr = nil
	rec, err := sess.Submit(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, 12.0, rec.MarksObtained)
}

func TestSession_StaleSubmitIsDiscarded(t *testing.T) {
	final := Selection{ClassID: "c1", SubjectID: "s1", ExamType: mark.ExamFinal}

	// the newer sheet must look exactly as loaded and edited
	checkNewer := func(t *testing.T, sess *Session) {
		t.Helper()
		sh := sess.Sheet()
		assert.Equal(t, final, sh.Selection)
		assert.Equal(t, Ready, sh.Status)
		require.Len(t, sh.Rows, 3)
		for _, r := range sh.Rows {
			assert.False(t, r.Recorded, r.Student.ID)
		}
		assert.Equal(t, "", sh.Rows[0].Edit.Obtained)
		assert.Equal(t, "", sh.Rows[1].Edit.Obtained)
		assert.Equal(t, "7", sh.Rows[2].Edit.Obtained)
	}

	t.Run("submit all", func(t *testing.T) {
		sess, fb := setupSession(t)
		ctx := context.Background()
		require.NoError(t, sess.Load(ctx, midterm))
		require.NoError(t, sess.SetField("2", FieldObtained, "20"))
		gate := make(chan struct{})
		fb.upsertGate = gate

		type bulkOutcome struct {
			res BulkResult
			err error
		}
		done := make(chan bulkOutcome, 1)
		go func() {
			res, err := sess.SubmitAll(ctx)
			done <- bulkOutcome{res, err}
		}()
		require.Eventually(t, func() bool { return fb.waitingUpserts() == 2 }, time.Second, time.Millisecond)

		require.NoError(t, sess.Load(ctx, final))
		require.NoError(t, sess.SetField("3", FieldObtained, "7"))

		close(gate)
		out := <-done
		require.NoError(t, out.err)
		assert.Len(t, out.res.Saved, 2)
		checkNewer(t, sess)
	})

	t.Run("single submit", func(t *testing.T) {
		sess, fb := setupSession(t)
		ctx := context.Background()
		require.NoError(t, sess.Load(ctx, midterm))
		require.NoError(t, sess.SetField("2", FieldObtained, "20"))
		gate := make(chan struct{})
		fb.upsertGate = gate

		done := make(chan error, 1)
		go func() {
			_, err := sess.Submit(ctx, "2")
			done <- err
		}()
		require.Eventually(t, func() bool { return fb.waitingUpserts() == 1 }, time.Second, time.Millisecond)

		require.NoError(t, sess.Load(ctx, final))
		require.NoError(t, sess.SetField("3", FieldObtained, "7"))

		close(gate)
		require.NoError(t, <-done)
		checkNewer(t, sess)
	})
}

func TestSession_Submit(t *testing.T) {
	sess, fb := setupSession(t)
	ctx := context.Background()
	require.NoError(t, sess.Load(ctx, midterm))

	t.Run("blank obtained", func(t *testing.T) {
		_, err := sess.Submit(ctx, "2")
		var verr *core.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "obtained", verr.Fields[0].Field)
		assert.Empty(t, fb.upsertedIDs())
	})

	t.Run("non-numeric obtained", func(t *testing.T) {
		require.NoError(t, sess.SetField("2", FieldObtained, "twelve"))
		_, err := sess.Submit(ctx, "2")
		var verr *core.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Empty(t, fb.upsertedIDs())
	})

	t.Run("unknown student", func(t *testing.T) {
		_, err := sess.Submit(ctx, "nope")
		assert.Equal(t, ErrUnknownStudent, errors.Cause(err))
	})

	t.Run("ok", func(t *testing.T) {
		require.NoError(t, sess.SetField("2", FieldObtained, "18.5"))
		require.NoError(t, sess.SetField("2", FieldRemarks, "late"))
		rec, err := sess.Submit(ctx, "2")
		require.NoError(t, err)
		assert.Equal(t, 18.5, rec.MarksObtained)
		assert.Equal(t, 40.0, rec.TotalMarks)
		assert.Equal(t, "late", rec.Remarks)
		assert.Equal(t, []string{"2"}, fb.upsertedIDs())
		assert.True(t, sess.Sheet().Rows[1].Recorded)
	})

	t.Run("transport failure", func(t *testing.T) {
		fb.failFor["3"] = true
		require.NoError(t, sess.SetField("3", FieldObtained, "5"))
		_, err := sess.Submit(ctx, "3")
		var terr *TransportError
		require.True(t, errors.As(err, &terr))
		assert.Equal(t, 500, terr.Status)
		assert.Equal(t, Ready, sess.Status())
	})
}

func TestSession_SubmitAll(t *testing.T) {
	sess, fb := setupSession(t)
	ctx := context.Background()
	fb.rosters["c1"] = students("1", "2", "3", "4")
	require.NoError(t, sess.Load(ctx, midterm))
	require.NoError(t, sess.SetField("1", FieldObtained, "35"))
	require.NoError(t, sess.SetField("2", FieldObtained, "20"))
	require.NoError(t, sess.SetField("3", FieldObtained, "38"))
	fb.failFor["2"] = true

	res, err := sess.SubmitAll(ctx)

	var berr *BulkError
	require.True(t, errors.As(err, &berr))
	assert.Equal(t, 3, berr.Attempted)
	require.Len(t, berr.Failed, 1)
	assert.Equal(t, "2", berr.Failed[0].StudentID)

	assert.Equal(t, []string{"4"}, res.Skipped)
	require.Len(t, res.Saved, 2)
	assert.ElementsMatch(t, []string{"1", "2", "3"}, fb.upsertedIDs())

	// saved rows stay saved and nothing is re-issued
	own, err := fb.ListOwnMarks(ctx)
	require.NoError(t, err)
	saved := map[string]float64{}
	for _, r := range own.Marks {
		saved[r.StudentID] = r.MarksObtained
	}
	assert.Equal(t, map[string]float64{"1": 35, "3": 38}, saved)
	assert.Len(t, fb.upsertedIDs(), 3)
	assert.Equal(t, Ready, sess.Status())
}

func TestSession_SubmitAllInvalidRow(t *testing.T) {
	sess, fb := setupSession(t)
	ctx := context.Background()
	require.NoError(t, sess.Load(ctx, midterm))
	require.NoError(t, sess.SetField("2", FieldObtained, "x"))

	res, err := sess.SubmitAll(ctx)
	var berr *BulkError
	require.True(t, errors.As(err, &berr))
	require.Len(t, berr.Failed, 1)
	var verr *core.ValidationError
	assert.True(t, errors.As(berr.Failed[0].Err, &verr))
	assert.Equal(t, []string{"1"}, fb.upsertedIDs())
	assert.Equal(t, []string{"3"}, res.Skipped)
}

func TestSession_SubmitAllNothingEntered(t *testing.T) {
	sess, fb := setupSession(t)
	fb.ledger = nil
	require.NoError(t, sess.Load(context.Background(), midterm))

	res, err := sess.SubmitAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, res.Skipped)
	assert.Empty(t, fb.upsertedIDs())
}

func TestSession_SetTotalMarks(t *testing.T) {
	sess, _ := setupSession(t)
	require.NoError(t, sess.Load(context.Background(), midterm))

	var verr *core.ValidationError
	assert.True(t, errors.As(sess.SetTotalMarks(0), &verr))
	require.NoError(t, sess.SetTotalMarks(60))
	assert.Equal(t, 50.0, sess.Sheet().Rows[0].Percentage)
}

func TestResults(t *testing.T) {
	fb := newFakeBackend()
	fb.ledger = []MarkRecord{record("1", 45, 50, ""), record("1", 15, 40, "")}
	fb.ledger[1].ExamType = mark.ExamFinal

	rep, err := Results(context.Background(), fb)
	require.NoError(t, err)
	require.Len(t, rep.Rows, 2)
	assert.Equal(t, TierTop, rep.Rows[0].Tier)
	assert.True(t, rep.Rows[0].Pass)
	assert.Equal(t, TierLowest, rep.Rows[1].Tier)
	assert.False(t, rep.Rows[1].Pass)
	assert.Equal(t, Stats{Count: 2, Average: 63.8, Max: 90, Min: 37.5}, rep.Stats)
}
