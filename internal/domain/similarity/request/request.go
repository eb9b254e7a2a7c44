package request

import (
	"fmt"

	"github.com/kailas-cloud/peerdex/internal/domain"
)

// Pagination limits.
const (
	DefaultSize = 10
	DefaultPage = 1
	MaxSize     = 100

	// MaxResultWindow mirrors the engine's index.max_result_window default.
	MaxResultWindow = 10000
)

// Request is a validated similarity lookup: seed company plus 1-indexed page.
type Request struct {
	companyID int64
	page      int
	size      int
}

// New validates the company id and pagination. maxSize <= 0 means MaxSize.
func New(companyID int64, page, size, maxSize int) (Request, error) {
	if companyID <= 0 {
		return Request{}, fmt.Errorf("%w: %d", domain.ErrInvalidCompanyID, companyID)
	}
	if maxSize <= 0 {
		maxSize = MaxSize
	}
	if page < 1 {
		return Request{}, fmt.Errorf("%w: page must be >= 1, got %d", domain.ErrInvalidPagination, page)
	}
	if size < 1 || size > maxSize {
		return Request{}, fmt.Errorf("%w: size must be between 1 and %d, got %d",
			domain.ErrInvalidPagination, maxSize, size)
	}
	// Same as page*size > MaxResultWindow, without overflowing on huge pages.
	if page > MaxResultWindow/size {
		return Request{}, fmt.Errorf("%w: page %d of size %d exceeds result window %d",
			domain.ErrInvalidPagination, page, size, MaxResultWindow)
	}
	return Request{companyID: companyID, page: page, size: size}, nil
}

// Offset converts a 1-indexed page into a zero-based hit offset.
func Offset(page, size int) int {
	return page*size - size
}

// CompanyID returns the seed company identifier.
func (r Request) CompanyID() int64 { return r.companyID }

// Page returns the 1-indexed page.
func (r Request) Page() int { return r.page }

// Size returns the page size.
func (r Request) Size() int { return r.size }

// Offset returns the zero-based offset of the first hit on this page.
func (r Request) Offset() int { return Offset(r.page, r.size) }
