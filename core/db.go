package core

import "strings"

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// OrderByClause renders orderings whose Field is in allowed, falling back to def.
func OrderByClause(orderings []DBOrdering, allowed map[string]bool, def string) string {
	parts := make([]string, 0, len(orderings))
	for _, ord := range orderings {
		if allowed[ord.Field] {
			parts = append(parts, ord.String())
		}
	}
	if len(parts) == 0 {
		return def
	}
	return strings.Join(parts, ", ")
}
