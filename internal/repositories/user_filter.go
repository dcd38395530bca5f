package repositories

import (
	"math"
	"strings"

	"gorm.io/gorm"

	"userhub/internal/models"
)

// PerPage is the fixed number of users returned per list page.
const PerPage = 10

// searchColumns enumerates every expression a search term is matched against.
// Search input only ever reaches the query as a bound parameter.
var searchColumns = []string{
	"firstname",
	"lastname",
	"email",
	"phone",
	"firstname || ' ' || lastname",
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// UserFilter narrows a user listing by free-text search terms.
// Every term must match at least one searchable column.
type UserFilter struct {
	Terms []string
}

// NewUserFilter splits search on whitespace. A blank search yields an empty filter.
func NewUserFilter(search string) UserFilter {
	return UserFilter{Terms: strings.Fields(search)}
}

// IsEmpty reports whether the filter matches every user.
func (f UserFilter) IsEmpty() bool {
	return len(f.Terms) == 0
}

// Scope applies the filter to a GORM query as one parenthesized OR group per term.
func (f UserFilter) Scope(db *gorm.DB) *gorm.DB {
	for _, term := range f.Terms {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
		conds := make([]string, len(searchColumns))
		args := make([]interface{}, len(searchColumns))
		for i, col := range searchColumns {
			conds[i] = "LOWER(" + col + ") LIKE ? ESCAPE '\\'"
			args[i] = pattern
		}
		db = db.Where("("+strings.Join(conds, " OR ")+")", args...)
	}
	return db
}

// Match evaluates the filter against a user in memory with the same
// semantics as Scope.
func (f UserFilter) Match(u models.User) bool {
	values := []string{
		u.Firstname,
		u.Lastname,
		u.Email,
		u.Phone,
		u.Firstname + " " + u.Lastname,
	}
	for _, term := range f.Terms {
		t := strings.ToLower(term)
		matched := false
		for _, v := range values {
			if strings.Contains(strings.ToLower(v), t) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

// Page is a 1-based page number into a user listing.
type Page int

// MaxPage is the largest page whose offset still fits in an int.
const MaxPage = math.MaxInt / PerPage

// NewPage clamps n to a valid page number, between 1 and MaxPage.
func NewPage(n int) Page {
	if n < 1 {
		return 1
	}
	if n > MaxPage {
		return MaxPage
	}
	return Page(n)
}

// Offset returns the number of rows to skip.
func (p Page) Offset() int {
	return (int(NewPage(int(p))) - 1) * PerPage
}

// Limit returns the page size.
func (p Page) Limit() int {
	return PerPage
}

// LastPage returns the number of the final page for total rows, at least 1.
func LastPage(total int64) int {
	if total <= 0 {
		return 1
	}
	return int(math.Ceil(float64(total) / float64(PerPage)))
}
