package services

import (
	"strings"

	"assettrack/internal/validate"
)

const (
	defaultPageSize = 50
	maxPageSize     = 1000
)

// pageBounds applies the list defaults: limit 0 means defaultPageSize.
func pageBounds(limit, offset int) (int, int, error) {
	if limit == 0 {
		limit = defaultPageSize
	}
	if limit < 1 || limit > maxPageSize {
		return 0, 0, invalid("limit", "max=1000")
	}
	if offset < 0 {
		return 0, 0, invalid("offset", "min=0")
	}
	return limit, offset, nil
}

// trimmed returns a trimmed copy of a patch field; nil stays nil.
func trimmed(p *string) *string {
	if p == nil {
		return nil
	}
	s := strings.TrimSpace(*p)
	return &s
}

// patchNullable applies a patch to a nullable column: nil keeps cur and a
// blank value clears it.
func patchNullable(p, cur *string) *string {
	if p == nil {
		return cur
	}
	return validate.Optional(*p)
}
