package mongorepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trezcool/alama/core/mark"
)

type dbMark struct {
	ID            string    `bson:"_id"`
	StudentID     string    `bson:"student_id"`
	SubjectID     string    `bson:"subject_id"`
	ClassID       string    `bson:"class_id"`
	ExamType      string    `bson:"exam_type"`
	MarksObtained float64   `bson:"marks_obtained"`
	TotalMarks    float64   `bson:"total_marks"`
	Remarks       string    `bson:"remarks,omitempty"`
	RecordedBy    string    `bson:"recorded_by,omitempty"`
	CreatedAt     time.Time `bson:"created_at"`
	UpdatedAt     time.Time `bson:"updated_at"`
}

func (d dbMark) toMark() mark.Mark {
	return mark.Mark{
		ID:            d.ID,
		StudentID:     d.StudentID,
		SubjectID:     d.SubjectID,
		ClassID:       d.ClassID,
		ExamType:      mark.ExamType(d.ExamType),
		MarksObtained: d.MarksObtained,
		TotalMarks:    d.TotalMarks,
		Remarks:       d.Remarks,
		RecordedBy:    d.RecordedBy,
		CreatedAt:     d.CreatedAt.UTC(),
		UpdatedAt:     d.UpdatedAt.UTC(),
	}
}

type markRepository struct {
	db *DB
}

var _ mark.Repository = (*markRepository)(nil)

func NewMarkRepository(db *DB) mark.Repository {
	return &markRepository{db: db}
}

func keyFilter(k mark.Key) bson.D {
	return bson.D{
		{Key: studentIDKey, Value: k.StudentID},
		{Key: subjectIDKey, Value: k.SubjectID},
		{Key: classIDKey, Value: k.ClassID},
		{Key: examTypeKey, Value: string(k.ExamType)},
	}
}

// UpsertMark matches on the natural key; _id and created_at are only written on insert.
func (repo *markRepository) UpsertMark(ctx context.Context, m mark.Mark) (mark.Mark, error) {
	update := bson.D{
		{Key: actionSet, Value: bson.D{
			{Key: "marks_obtained", Value: m.MarksObtained},
			{Key: "total_marks", Value: m.TotalMarks},
			{Key: "remarks", Value: m.Remarks},
			{Key: "recorded_by", Value: m.RecordedBy},
			{Key: "updated_at", Value: m.UpdatedAt.UTC()},
		}},
		{Key: actionSetOnInsert, Value: bson.D{
			{Key: idKey, Value: uuid.NewString()},
			{Key: createdAtKey, Value: m.CreatedAt.UTC()},
		}},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var doc dbMark
	err := repo.db.marks.FindOneAndUpdate(ctx, keyFilter(m.Key()), update, opts).Decode(&doc)
	if err != nil {
		return mark.Mark{}, errors.Wrap(err, "upserting mark")
	}
	return doc.toMark(), nil
}

func (repo *markRepository) find(ctx context.Context, filter interface{}, sort bson.D) ([]mark.Mark, error) {
	var docs []dbMark
	if err := findAll(ctx, repo.db.marks, filter, sort, &docs); err != nil {
		return nil, err
	}
	marks := make([]mark.Mark, 0, len(docs))
	for _, d := range docs {
		marks = append(marks, d.toMark())
	}
	return marks, nil
}

func (repo *markRepository) QueryMarks(ctx context.Context, filter mark.QueryFilter) ([]mark.Mark, error) {
	query := bson.D{
		{Key: classIDKey, Value: filter.ClassID},
		{Key: subjectIDKey, Value: filter.SubjectID},
		{Key: examTypeKey, Value: string(filter.ExamType)},
	}
	return repo.find(ctx, query, bson.D{{Key: studentIDKey, Value: 1}})
}

func (repo *markRepository) MarksByStudent(ctx context.Context, studentID string) ([]mark.Mark, error) {
	return repo.find(ctx, bson.M{studentIDKey: studentID}, bson.D{{Key: createdAtKey, Value: 1}, {Key: idKey, Value: 1}})
}

func (repo *markRepository) CountMarksByExamType(ctx context.Context) (map[mark.ExamType]int, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{{Key: idKey, Value: "$" + examTypeKey}, {Key: "n", Value: bson.D{{Key: "$sum", Value: 1}}}}}},
	}
	cur, err := repo.db.marks.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, errors.Wrap(err, "counting marks")
	}
	var rows []struct {
		ExamType string `bson:"_id"`
		N        int    `bson:"n"`
	}
	if err = cur.All(ctx, &rows); err != nil {
		return nil, errors.Wrap(err, "decoding mark counts")
	}
	counts := make(map[mark.ExamType]int, len(rows))
	for _, r := range rows {
		counts[mark.ExamType(r.ExamType)] = r.N
	}
	return counts, nil
}
