// Package sqlxrepos implements the repositories on PostgreSQL with sqlx.
package sqlxrepos

import (
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// whereClause collects AND-ed conditions written with ? placeholders.
type whereClause struct {
	conds []string
	args  []interface{}
}

func (w *whereClause) add(cond string, args ...interface{}) {
	w.conds = append(w.conds, "("+cond+")")
	w.args = append(w.args, args...)
}

func (w *whereClause) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// trapNoRows maps sql.ErrNoRows to notFound.
func trapNoRows(err error, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// excludeIDs adds an "id NOT IN (...)" condition when ids is not empty.
func excludeIDs(w *whereClause, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	q, args, err := sqlx.In("id NOT IN (?)", ids)
	if err != nil {
		return errors.Wrap(err, "expanding excluded IDs")
	}
	w.add(q, args...)
	return nil
}
