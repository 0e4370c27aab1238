// ABOUTME: Collation shared by the in-memory and Redis backends
// ABOUTME: Mirrors the ORDER BY expression used by SQLiteStore

package store

import (
	"cmp"
	"encoding/json"
	"slices"

	"github.com/2389/agent-roster/internal/roster"
)

const (
	rankMissing = iota
	rankNumber
	rankString
	rankComposite
)

func rank(v any) int {
	switch v.(type) {
	case nil:
		return rankMissing
	case bool, float64, int, int64, json.Number:
		return rankNumber
	case string:
		return rankString
	default:
		return rankComposite
	}
}

func number(v any) float64 {
	switch n := v.(type) {
	case bool:
		if n {
			return 1
		}
		return 0
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		f, _ := n.Float64()
		return f
	}
	return 0
}

func jsonText(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// compareValues orders two decoded JSON values by the store collation.
func compareValues(a, b any) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return cmp.Compare(ra, rb)
	}
	switch ra {
	case rankNumber:
		return cmp.Compare(number(a), number(b))
	case rankString:
		return cmp.Compare(a.(string), b.(string))
	case rankComposite:
		return cmp.Compare(jsonText(a), jsonText(b))
	}
	return 0
}

// sortRows orders rows by key in the requested direction, ids ascending on
// ties, then applies the limit.
func sortRows(rows []Row, descending bool, limit int) []Row {
	slices.SortStableFunc(rows, func(a, b Row) int {
		c := compareValues(a.Key, b.Key)
		if descending {
			c = -c
		}
		if c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows
}

// queryEntries builds the rows for QueryBySortedField from a full listing.
func queryEntries(entries []KeyValue, field string, opts QueryOptions) []Row {
	rows := make([]Row, 0, len(entries))
	for _, kv := range entries {
		if roster.IsDeleted(kv.Value) {
			continue
		}
		row := Row{ID: kv.Key, Key: kv.Value[field]}
		if opts.IncludeDocs {
			row.Doc = kv.Value
		}
		rows = append(rows, row)
	}
	return sortRows(rows, opts.Descending, opts.Limit)
}
