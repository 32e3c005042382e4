// Package storage opens the repositories selected by the configuration.
package storage

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/mark"
	"github.com/trezcool/alama/core/roster"
	"github.com/trezcool/alama/core/school"
	"github.com/trezcool/alama/core/user"
	"github.com/trezcool/alama/storage/database"
	dummydb "github.com/trezcool/alama/storage/database/dummy"
	mongorepos "github.com/trezcool/alama/storage/database/mongodb"
	sqlxrepos "github.com/trezcool/alama/storage/database/sqlx"
)

const (
	EnginePostgres = "postgres"
	EngineMemory   = "memory"

	LedgerDatabase = "database"
	LedgerMongoDB  = "mongodb"
)

type Repositories struct {
	Users   user.Repository
	Schools school.Repository
	Roster  roster.Repository
	Marks   mark.Repository

	// SQL is nil unless the postgres engine is used.
	SQL *sqlx.DB

	mongo *mongorepos.DB
}

// Open builds the repositories for conf.Database.Engine. Rosters and marks go
// to MongoDB instead when conf.Ledger.Store says so.
func Open(ctx context.Context, conf *core.Config, logger core.Logger) (*Repositories, error) {
	repos := new(Repositories)

	switch conf.Database.Engine {
	case EngineMemory:
		db := dummydb.Open()
		repos.Users = dummydb.NewUserRepository(db)
		repos.Schools = dummydb.NewSchoolRepository(db)
		repos.Roster = dummydb.NewRosterRepository(db)
		repos.Marks = dummydb.NewMarkRepository(db)
	case EnginePostgres:
		db, err := database.Open(ctx, conf)
		if err != nil {
			return nil, err
		}
		repos.SQL = db
		repos.Users = sqlxrepos.NewUserRepository(db)
		repos.Schools = sqlxrepos.NewSchoolRepository(db)
		repos.Roster = sqlxrepos.NewRosterRepository(db)
		repos.Marks = sqlxrepos.NewMarkRepository(db)
	default:
		return nil, errors.Errorf("unknown database engine %q", conf.Database.Engine)
	}

	switch conf.Ledger.Store {
	case "", LedgerDatabase:
	case LedgerMongoDB:
		mdb, err := mongorepos.Connect(ctx, conf.Ledger.MongoURL, conf.Ledger.MongoName)
		if err != nil {
			_ = repos.Close(ctx)
			return nil, err
		}
		repos.mongo = mdb
		repos.Roster = mongorepos.NewRosterRepository(mdb)
		repos.Marks = mongorepos.NewMarkRepository(mdb)
	default:
		_ = repos.Close(ctx)
		return nil, errors.Errorf("unknown ledger store %q", conf.Ledger.Store)
	}

	logger.Info("storage ready", map[string]interface{}{"engine": conf.Database.Engine, "ledger": conf.Ledger.Store})
	return repos, nil
}

func (r *Repositories) Close(ctx context.Context) error {
	var err error
	if r.mongo != nil {
		err = r.mongo.Close(ctx)
	}
	if r.SQL != nil {
		if cerr := r.SQL.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "closing database")
		}
	}
	return err
}
