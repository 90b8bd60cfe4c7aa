package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/utafrali/catalog-search/internal/domain"
)

// KeyPrefix namespaces search pages in a shared Redis.
const KeyPrefix = "product_search:"

// Key derives the cache key of req. req must already be normalized: the
// query lowercased and trimmed, page and page size resolved to the values
// actually served. Every field is encoded in a fixed order, so the order
// of URL parameters has no effect.
func Key(req *domain.SearchRequest) string {
	var b strings.Builder
	field := func(name, value string) {
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(strconv.Quote(value))
		b.WriteByte('&')
	}
	number := func(v *float64) string {
		if v == nil {
			return ""
		}
		return strconv.FormatFloat(*v, 'g', -1, 64)
	}

	field("search", req.Query)
	field("category", req.Category)
	field("brand", req.Brand)
	field("min_calories", number(req.MinCalories))
	field("max_calories", number(req.MaxCalories))
	field("page", strconv.Itoa(req.Page))
	field("page_size", strconv.Itoa(req.PageSize))

	sum := sha256.Sum256([]byte(b.String()))
	return KeyPrefix + hex.EncodeToString(sum[:])
}
