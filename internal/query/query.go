// Package query builds the parameterized read over one user's applications.
// Values are always bound; only allow-listed identifiers reach the SQL text.
package query

import "strings"

// Columns is the projection shared by every application read.
const Columns = "id, company, role, status, updates, notes, user_id"

const (
	DefaultSort  = "id"
	DefaultOrder = "desc"
)

var (
	sortColumns = map[string]struct{}{"company": {}, "role": {}, "status": {}}
	sortOrders  = map[string]struct{}{"asc": {}, "desc": {}}
)

// Filter selects and orders a user's applications. Zero values mean "no
// filter" and the default ordering.
type Filter struct {
	UserID int64
	Status string
	Sort   string
	Order  string
	Search string
}

// SortColumn returns the column the filter orders by, falling back to the
// default for anything outside the allow-list.
func (f Filter) SortColumn() string {
	if _, ok := sortColumns[f.Sort]; ok {
		return f.Sort
	}
	return DefaultSort
}

// SortOrder returns asc or desc, defaulting to desc.
func (f Filter) SortOrder() string {
	if _, ok := sortOrders[f.Order]; ok {
		return f.Order
	}
	return DefaultOrder
}

// Build returns the query text and its positional arguments.
func Build(f Filter) (string, []any) {
	conds := []string{"user_id = ?"}
	args := []any{f.UserID}

	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, f.Status)
	}
	if f.Search != "" {
		like := "%" + f.Search + "%"
		conds = append(conds, "(company LIKE ? OR role LIKE ? OR notes LIKE ?)")
		args = append(args, like, like, like)
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(Columns)
	b.WriteString(" FROM applications WHERE ")
	b.WriteString(strings.Join(conds, " AND "))
	b.WriteString(" ORDER BY ")
	b.WriteString(f.SortColumn())
	b.WriteString(" ")
	b.WriteString(f.SortOrder())

	return b.String(), args
}
