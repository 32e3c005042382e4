package mongorepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trezcool/alama/core/roster"
)

type (
	dbClass struct {
		ID        string    `bson:"_id"`
		SchoolID  string    `bson:"school_id"`
		Name      string    `bson:"name"`
		CreatedAt time.Time `bson:"created_at"`
	}

	dbSubject struct {
		ID   string `bson:"_id"`
		Name string `bson:"name"`
		Code string `bson:"code"`
	}

	dbStudent struct {
		ID        string    `bson:"_id"`
		Name      string    `bson:"name"`
		ClassID   string    `bson:"class_id"`
		CreatedAt time.Time `bson:"created_at"`
	}
)

type rosterRepository struct {
	db *DB
}

var _ roster.Repository = (*rosterRepository)(nil)

func NewRosterRepository(db *DB) roster.Repository {
	return &rosterRepository{db: db}
}

func findOne(ctx context.Context, coll *mongo.Collection, id string, out interface{}, notFound error) error {
	err := coll.FindOne(ctx, bson.M{idKey: id}).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return notFound
	}
	return errors.Wrapf(err, "finding %s", coll.Name())
}

func findAll(ctx context.Context, coll *mongo.Collection, filter interface{}, sort bson.D, out interface{}) error {
	cur, err := coll.Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return errors.Wrapf(err, "querying %s", coll.Name())
	}
	return errors.Wrapf(cur.All(ctx, out), "decoding %s", coll.Name())
}

func (repo *rosterRepository) CreateClass(ctx context.Context, c roster.Class) (roster.Class, error) {
	c.ID = uuid.NewString()
	doc := dbClass{ID: c.ID, SchoolID: c.SchoolID, Name: c.Name, CreatedAt: c.CreatedAt.UTC()}
	if _, err := repo.db.classes.InsertOne(ctx, doc); err != nil {
		return roster.Class{}, errors.Wrap(err, "inserting class")
	}
	return c, nil
}

func (repo *rosterRepository) GetClassByID(ctx context.Context, id string) (roster.Class, error) {
	var doc dbClass
	if err := findOne(ctx, repo.db.classes, id, &doc, roster.ErrClassNotFound); err != nil {
		return roster.Class{}, err
	}
	return roster.Class(doc), nil
}

func (repo *rosterRepository) QueryClasses(ctx context.Context, filter roster.ClassFilter) ([]roster.Class, error) {
	query := bson.M{}
	if filter.SchoolID != "" {
		query[schoolIDKey] = filter.SchoolID
	}
	var docs []dbClass
	if err := findAll(ctx, repo.db.classes, query, bson.D{{Key: nameKey, Value: 1}, {Key: idKey, Value: 1}}, &docs); err != nil {
		return nil, err
	}
	classes := make([]roster.Class, 0, len(docs))
	for _, d := range docs {
		classes = append(classes, roster.Class(d))
	}
	return classes, nil
}

func (repo *rosterRepository) CreateSubject(ctx context.Context, s roster.Subject) (roster.Subject, error) {
	s.ID = uuid.NewString()
	if _, err := repo.db.subjects.InsertOne(ctx, dbSubject(s)); err != nil {
		return roster.Subject{}, errors.Wrap(err, "inserting subject")
	}
	return s, nil
}

func (repo *rosterRepository) GetSubjectByID(ctx context.Context, id string) (roster.Subject, error) {
	var doc dbSubject
	if err := findOne(ctx, repo.db.subjects, id, &doc, roster.ErrSubjectNotFound); err != nil {
		return roster.Subject{}, err
	}
	return roster.Subject(doc), nil
}

func (repo *rosterRepository) QuerySubjects(ctx context.Context) ([]roster.Subject, error) {
	var docs []dbSubject
	if err := findAll(ctx, repo.db.subjects, bson.M{}, bson.D{{Key: codeKey, Value: 1}}, &docs); err != nil {
		return nil, err
	}
	subjects := make([]roster.Subject, 0, len(docs))
	for _, d := range docs {
		subjects = append(subjects, roster.Subject(d))
	}
	return subjects, nil
}

func (repo *rosterRepository) CreateStudent(ctx context.Context, s roster.Student) (roster.Student, error) {
	s.ID = uuid.NewString()
	doc := dbStudent{ID: s.ID, Name: s.Name, ClassID: s.ClassID, CreatedAt: s.CreatedAt.UTC()}
	if _, err := repo.db.students.InsertOne(ctx, doc); err != nil {
		return roster.Student{}, errors.Wrap(err, "inserting student")
	}
	return s, nil
}

func (repo *rosterRepository) GetStudentByID(ctx context.Context, id string) (roster.Student, error) {
	var doc dbStudent
	if err := findOne(ctx, repo.db.students, id, &doc, roster.ErrStudentNotFound); err != nil {
		return roster.Student{}, err
	}
	return roster.Student(doc), nil
}

func (repo *rosterRepository) StudentsByClass(ctx context.Context, classID string) ([]roster.Student, error) {
	var docs []dbStudent
	sort := bson.D{{Key: nameKey, Value: 1}, {Key: idKey, Value: 1}}
	if err := findAll(ctx, repo.db.students, bson.M{classIDKey: classID}, sort, &docs); err != nil {
		return nil, err
	}
	students := make([]roster.Student, 0, len(docs))
	for _, d := range docs {
		students = append(students, roster.Student(d))
	}
	return students, nil
}

func (repo *rosterRepository) CountRoster(ctx context.Context) (roster.Counts, error) {
	var (
		c   roster.Counts
		err error
	)
	for _, cnt := range []struct {
		coll *mongo.Collection
		dst  *int
	}{
		{repo.db.classes, &c.Classes},
		{repo.db.subjects, &c.Subjects},
		{repo.db.students, &c.Students},
	} {
		var n int64
		if n, err = cnt.coll.CountDocuments(ctx, bson.M{}); err != nil {
			return roster.Counts{}, errors.Wrapf(err, "counting %s", cnt.coll.Name())
		}
		*cnt.dst = int(n)
	}
	return c, nil
}
