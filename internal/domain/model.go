package domain

import (
	"math"
	"time"
)

// BaseModel is the common base struct for persisted records with timestamps.
// It replaces gorm.Model to avoid the implicit soft delete behavior of DeletedAt.
type BaseModel struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PageRequest is a validated 1-based page selection.
type PageRequest struct {
	Page    int
	PerPage int
}

// Offset returns the number of rows to skip for this page. It saturates at
// math.MaxInt instead of wrapping.
func (r PageRequest) Offset() int {
	if r.Page < 1 || r.PerPage < 1 {
		return 0
	}
	if r.Page-1 > math.MaxInt/r.PerPage {
		return math.MaxInt
	}
	return (r.Page - 1) * r.PerPage
}
