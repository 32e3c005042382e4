// Package mongorepos stores rosters and mark ledgers in MongoDB.
package mongorepos

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	// Collections
	classCollection   = "classes"
	subjectCollection = "subjects"
	studentCollection = "students"
	markCollection    = "marks"

	// Keys
	idKey        = "_id"
	nameKey      = "name"
	codeKey      = "code"
	schoolIDKey  = "school_id"
	classIDKey   = "class_id"
	subjectIDKey = "subject_id"
	studentIDKey = "student_id"
	examTypeKey  = "exam_type"
	createdAtKey = "created_at"

	// Actions
	actionSet         = "$set"
	actionSetOnInsert = "$setOnInsert"
)

// DB holds the ledger collections.
type DB struct {
	db       *mongo.Database
	classes  *mongo.Collection
	subjects *mongo.Collection
	students *mongo.Collection
	marks    *mongo.Collection
}

// Connect opens dbName at connectionURL and makes sure the indexes exist.
func Connect(ctx context.Context, connectionURL, dbName string) (*DB, error) {
	if connectionURL == "" {
		return nil, errors.New("missing mongodb connection URL")
	}
	if dbName == "" {
		return nil, errors.New("missing mongodb database name")
	}

	serverAPI := options.ServerAPI(options.ServerAPIVersion1)
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(connectionURL).SetServerAPIOptions(serverAPI))
	if err != nil {
		return nil, errors.Wrap(err, "connecting to mongodb")
	}
	if err = client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(err, "pinging mongodb")
	}

	mdb := client.Database(dbName)
	db := &DB{
		db:       mdb,
		classes:  mdb.Collection(classCollection),
		subjects: mdb.Collection(subjectCollection),
		students: mdb.Collection(studentCollection),
		marks:    mdb.Collection(markCollection),
	}
	if err = db.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return db, nil
}

func (db *DB) ensureIndexes(ctx context.Context) error {
	indexes := []struct {
		coll  *mongo.Collection
		model mongo.IndexModel
	}{
		{db.subjects, mongo.IndexModel{Keys: bson.D{{Key: codeKey, Value: 1}}, Options: options.Index().SetUnique(true)}},
		{db.students, mongo.IndexModel{Keys: bson.D{{Key: classIDKey, Value: 1}, {Key: nameKey, Value: 1}, {Key: idKey, Value: 1}}}},
		{db.marks, mongo.IndexModel{
			Keys: bson.D{
				{Key: studentIDKey, Value: 1},
				{Key: subjectIDKey, Value: 1},
				{Key: classIDKey, Value: 1},
				{Key: examTypeKey, Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName("mark_natural_key"),
		}},
	}
	for _, idx := range indexes {
		if _, err := idx.coll.Indexes().CreateOne(ctx, idx.model); err != nil {
			return errors.Wrapf(err, "creating index on %s", idx.coll.Name())
		}
	}
	return nil
}

// Close disconnects the client.
func (db *DB) Close(ctx context.Context) error {
	return errors.Wrap(db.db.Client().Disconnect(ctx), "disconnecting from mongodb")
}
