package pkg

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/itemhub/internal/domain"
)

const (
	defaultPage    = 1
	defaultPerPage = 10
	maxPerPage     = 200

	// maxPage keeps (page-1)*per_page within int for every accepted per_page.
	maxPage = math.MaxInt / maxPerPage
)

// Pagination is the page metadata carried by list envelopes.
type Pagination struct {
	CurrentPage int   `json:"current_page"`
	PerPage     int   `json:"per_page"`
	LastPage    int   `json:"last_page"`
	Total       int64 `json:"total"`
}

// NewPagination computes page metadata. LastPage is 1 when there are no rows.
func NewPagination(page, perPage int, total int64) Pagination {
	lastPage := 1
	if total > 0 && perPage > 0 {
		lastPage = int(math.Ceil(float64(total) / float64(perPage)))
	}
	return Pagination{
		CurrentPage: page,
		PerPage:     perPage,
		LastPage:    lastPage,
		Total:       total,
	}
}

// ParsePageRequest reads page_no and per_page from the query string.
// Values that are not integers or are out of range are rejected, not clamped.
func ParsePageRequest(c *gin.Context) (domain.PageRequest, error) {
	details := make(map[string]string)

	page, ok := queryInt(c, "page_no", defaultPage)
	switch {
	case !ok || page < 1:
		details["page_no"] = "gte=1"
	case page > maxPage:
		details["page_no"] = "lte=" + strconv.Itoa(maxPage)
	}

	perPage, ok := queryInt(c, "per_page", defaultPerPage)
	if !ok || perPage < 1 || perPage > maxPerPage {
		details["per_page"] = "between=1,200"
	}

	if len(details) > 0 {
		return domain.PageRequest{}, domain.NewValidationError("Validation error", details)
	}
	return domain.PageRequest{Page: page, PerPage: perPage}, nil
}

// queryInt returns def when key is absent and false when it is not an integer.
func queryInt(c *gin.Context, key string, def int) (int, bool) {
	raw, present := c.GetQuery(key)
	if !present {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}
