// Package dummydb keeps every table in memory. It backs tests and the "memory" engine.
package dummydb

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/mark"
	"github.com/trezcool/alama/core/roster"
	"github.com/trezcool/alama/core/school"
	"github.com/trezcool/alama/core/user"
)

type (
	DB struct {
		user   *userTable
		school *schoolTable
		roster *rosterTables
		mark   *markTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	schoolTable struct {
		sync.RWMutex
		table map[string]*school.School
	}

	rosterTables struct {
		sync.RWMutex
		classes  map[string]*roster.Class
		subjects map[string]*roster.Subject
		students map[string]*roster.Student
	}

	markTable struct {
		sync.RWMutex
		table map[mark.Key]*mark.Mark
	}
)

func Open() *DB {
	return &DB{
		user:   &userTable{table: make(map[string]*user.User)},
		school: &schoolTable{table: make(map[string]*school.School)},
		roster: &rosterTables{
			classes:  make(map[string]*roster.Class),
			subjects: make(map[string]*roster.Subject),
			students: make(map[string]*roster.Student),
		},
		mark: &markTable{table: make(map[mark.Key]*mark.Mark)},
	}
}

// sortBy orders items by the first allowed orderings, then by key(item) ascending.
func sortBy(orderings []core.DBOrdering, less map[string]func(i, j int) int, key func(i int) string) func(i, j int) bool {
	return func(i, j int) bool {
		for _, ord := range orderings {
			cmp, ok := less[ord.Field]
			if !ok {
				continue
			}
			c := cmp(i, j)
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return key(i) < key(j)
	}
}

func cmpString(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

func cmpTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}

func isExcluded(id string, excluded []string) bool {
	i := sort.SearchStrings(excluded, id)
	return i < len(excluded) && excluded[i] == id
}
