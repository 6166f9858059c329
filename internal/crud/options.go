package crud

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const maxLimit = 100

// reservedParams lists query parameter names that shape the query rather than filter it.
var reservedParams = map[string]bool{
	"limit":  true,
	"offset": true,
	"sort":   true,
}

// FindOptions narrows a FindAll query using what the ORM provides natively.
// Where keys are JSON field names; Order is "field:asc" or "field:desc".
// A zero Limit means no limit.
type FindOptions struct {
	Where  map[string]any
	Order  string
	Limit  int
	Offset int
}

// ParseFindOptions extracts limit, offset, sort and equality filters from query params.
// Filter values stay strings here; the repository converts them to the column type.
func ParseFindOptions(c *gin.Context) FindOptions {
	var opts FindOptions

	if limit, err := strconv.Atoi(c.Query("limit")); err == nil && limit > 0 {
		opts.Limit = min(limit, maxLimit)
	}
	if offset, err := strconv.Atoi(c.Query("offset")); err == nil && offset > 0 {
		opts.Offset = offset
	}
	opts.Order = strings.TrimSpace(c.Query("sort"))

	for key, values := range c.Request.URL.Query() {
		if reservedParams[key] {
			continue
		}
		if len(values) > 0 && values[0] != "" {
			if opts.Where == nil {
				opts.Where = make(map[string]any)
			}
			opts.Where[key] = values[0]
		}
	}
	return opts
}

// parseOrder splits "field:dir" into its parts. ok is false for anything else.
func parseOrder(order string) (field string, desc bool, ok bool) {
	parts := strings.SplitN(order, ":", 2)
	if len(parts) != 2 {
		return "", false, false
	}
	field = strings.TrimSpace(parts[0])
	switch strings.ToLower(strings.TrimSpace(parts[1])) {
	case "asc":
		return field, false, field != ""
	case "desc":
		return field, true, field != ""
	}
	return "", false, false
}
