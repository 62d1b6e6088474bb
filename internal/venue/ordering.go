package venue

import (
	"sort"

	"github.com/iliyamo/table-allocation/internal/model"
)

// Ordering ranks tables for assignment. Tables listed in the venue's
// assignment order come first in list order; the rest follow by ID.
type Ordering struct {
	rank     map[int]int
	unlisted int // rank shared by every table missing from the list
}

// NewOrdering builds an Ordering from a list of table IDs. A repeated ID
// keeps its first position.
func NewOrdering(ids []int) Ordering {
	rank := make(map[int]int, len(ids))
	for i, id := range ids {
		if _, seen := rank[id]; !seen {
			rank[id] = i
		}
	}
	return Ordering{rank: rank, unlisted: len(ids)}
}

// Rank returns the priority of t; lower ranks are assigned first.
func (o Ordering) Rank(t model.Table) int {
	if r, ok := o.rank[t.ID]; ok {
		return r
	}
	return o.unlisted
}

// Less orders by rank, then by ID.
func (o Ordering) Less(a, b model.Table) bool {
	ra, rb := o.Rank(a), o.Rank(b)
	if ra != rb {
		return ra < rb
	}
	return a.ID < b.ID
}

// Sort returns a copy of tables in canonical order.
func (o Ordering) Sort(tables []model.Table) []model.Table {
	out := model.CloneTables(tables)
	sort.SliceStable(out, func(i, j int) bool { return o.Less(out[i], out[j]) })
	return out
}
