package listing

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Query is the fixed-shape list window: a clamped limit plus a sort
// direction over one column. There is deliberately no cursor or page
// arithmetic here.
type Query struct {
	Limit int
	Asc   bool
}

// FromContext extracts ?limit= and ?order=asc|desc from the request.
func FromContext(c *gin.Context) Query {
	limit := parseIntOr(c.DefaultQuery("limit", ""), DefaultLimit)
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return Query{
		Limit: limit,
		Asc:   c.Query("order") == "asc",
	}
}

// Apply orders by the given column and applies the limit.
func Apply(tx *gorm.DB, q Query, column string) *gorm.DB {
	dir := "DESC"
	if q.Asc {
		dir = "ASC"
	}
	return tx.Order(fmt.Sprintf("%s %s", column, dir)).Limit(q.Limit)
}

func parseIntOr(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
