package option

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// QueryOption mutates a gorm query before it is executed by the repository.
type QueryOption func(*gorm.DB) *gorm.DB

type Operator string

const (
	EQ  Operator = "="
	NEQ Operator = "<>"
	GT  Operator = ">"
	GTE Operator = ">="
	LT  Operator = "<"
	LTE Operator = "<="
)

type Condition struct {
	Field    string
	Operator Operator
	Value    any
}

type QuerySortBy struct {
	SortBy  string
	OrderBy string
	// Allow whitelists sortable columns; anything else falls back to created_at.
	Allow map[string]bool
}

// LockingUpdate is a gorm scope enabling SELECT ... FOR UPDATE on every query
// inside a transaction.
func LockingUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

func WithLockingUpdate() QueryOption {
	return LockingUpdate
}

func ApplyOperator(c Condition) QueryOption {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(fmt.Sprintf("%s %s ?", c.Field, c.Operator), c.Value)
	}
}

// ApplyKeysetBefore filters to rows strictly before the (value, id) boundary
// in descending (column, id) order. Rows sharing the boundary's column value
// fall back to the id comparison so pages never skip ties.
func ApplyKeysetBefore(column string, value any, id string) QueryOption {
	return func(db *gorm.DB) *gorm.DB {
		cond := fmt.Sprintf("%s < ? OR (%s = ? AND id < ?)", column, column)
		return db.Where(cond, value, value, id)
	}
}

func WithSortBy(sort QuerySortBy) QueryOption {
	return func(db *gorm.DB) *gorm.DB {
		column := sort.SortBy
		if column == "" || (sort.Allow != nil && !sort.Allow[column]) {
			column = "created_at"
		}
		order := "ASC"
		if sort.OrderBy != "" && (sort.OrderBy == "desc" || sort.OrderBy == "DESC") {
			order = "DESC"
		}
		return db.Order(fmt.Sprintf("%s %s", column, order))
	}
}

// WithOrder appends a raw order expression, for tiebreak columns beyond what
// WithSortBy covers.
func WithOrder(expr string) QueryOption {
	return func(db *gorm.DB) *gorm.DB {
		return db.Order(expr)
	}
}

func WithLimit(limit int) QueryOption {
	return func(db *gorm.DB) *gorm.DB {
		if limit <= 0 {
			return db
		}
		return db.Limit(limit)
	}
}
