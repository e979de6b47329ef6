package option

import (
	"fmt"
	"strings"

	"github.com/smallbiznis/masstrack/pkg/db/pagination"
	"gorm.io/gorm"
)

// QueryOption mutates a statement before execution.
type QueryOption interface {
	Apply(*gorm.DB) *gorm.DB
}

type queryOptionFunc func(*gorm.DB) *gorm.DB

func (f queryOptionFunc) Apply(db *gorm.DB) *gorm.DB { return f(db) }

// ApplyPagination adds LIMIT/OFFSET for a normalized page.
func ApplyPagination(p pagination.Pagination) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		if p.PerPage <= 0 {
			return db
		}
		return db.Limit(p.Limit()).Offset(p.Offset())
	})
}

// QuerySortBy orders by Field when it is allow-listed, else by Default.
type QuerySortBy struct {
	Field   string
	Desc    bool
	Allow   map[string]bool
	Default string
}

func WithSortBy(s QuerySortBy) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		field := strings.TrimSpace(s.Field)
		if field == "" || !s.Allow[field] {
			if s.Default == "" {
				return db
			}
			return db.Order(s.Default)
		}
		dir := "ASC"
		if s.Desc {
			dir = "DESC"
		}
		return db.Order(fmt.Sprintf("%s %s", field, dir))
	})
}

// Apply runs every option over db in order.
func Apply(db *gorm.DB, opts ...QueryOption) *gorm.DB {
	for _, opt := range opts {
		if opt != nil {
			db = opt.Apply(db)
		}
	}
	return db
}
