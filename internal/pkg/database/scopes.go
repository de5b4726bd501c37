package database

import "gorm.io/gorm"

const maxPageSize = 100

// Paginate limits a query to one page. Pages start at 1; sizes are
// clamped to [1, 100] with 10 as the default.
func Paginate(page, pageSize int) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if page < 1 {
			page = 1
		}
		if pageSize < 1 {
			pageSize = 10
		}
		if pageSize > maxPageSize {
			pageSize = maxPageSize
		}
		return db.Offset((page - 1) * pageSize).Limit(pageSize)
	}
}

// Newest orders rows by creation time, latest first
func Newest(db *gorm.DB) *gorm.DB {
	return db.Order("created_at DESC")
}
