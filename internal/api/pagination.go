package api

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/types"
)

const (
	defaultPageSize = 6
	maxPageSize     = 10
	// maxCartPageSize applies when listing the shopping cart, which the
	// frontend fetches in one go.
	maxCartPageSize = 100
)

// pageParams are the page and limit query parameters, already clamped.
type pageParams struct {
	Page  int
	Limit int
}

func (p pageParams) Offset() int {
	return (p.Page - 1) * p.Limit
}

// parsePage reads ?page= and ?limit=. A missing or invalid limit falls back
// to the default; a limit above maxLimit is capped. A page that is not a positive
// integer, or too large to address, is not found.
func parsePage(c *gin.Context, maxLimit int) (pageParams, error) {
	p := pageParams{Page: 1, Limit: defaultPageSize}

	if raw := c.Query("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return p, service.ErrNotFound
		}
		p.Page = page
	}
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil && limit > 0 {
		p.Limit = limit
	}
	if p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	// No result set is that large, and the offset would overflow.
	if p.Page > math.MaxInt/p.Limit {
		return p, service.ErrNotFound
	}
	return p, nil
}

// newPage wraps results in the paginated envelope. It fails with
// ErrNotFound when the requested page lies past the last one.
func newPage[T any](c *gin.Context, p pageParams, count int64, results []T) (types.Page[T], error) {
	if p.Page > 1 && int64(p.Offset()) >= count {
		return types.Page[T]{}, service.ErrNotFound
	}
	if results == nil {
		results = []T{}
	}

	page := types.Page[T]{Count: count, Results: results}
	if int64(p.Page*p.Limit) < count {
		next := pageURL(c, p.Page+1)
		page.Next = &next
	}
	if p.Page > 1 {
		prev := pageURL(c, p.Page-1)
		page.Previous = &prev
	}
	return page, nil
}

// pageURL is the absolute URL of the current request with page replaced.
// The first page is linked without a page parameter.
func pageURL(c *gin.Context, page int) string {
	u := *c.Request.URL
	u.Scheme = "http"
	if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
		u.Scheme = "https"
	}
	u.Host = c.Request.Host

	q := u.Query()
	if page <= 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(page))
	}
	u.RawQuery = q.Encode()
	return u.String()
}
