package service

import "realtyhub/internal/models"

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100

	TestimonialPageLimit = 10
)

// NormalizePage clamps paging input. Pages start at 1; a missing limit takes
// def and no limit exceeds MaxPageLimit.
func NormalizePage(page, limit, def int) models.Page {
	if page < 1 {
		page = 1
	}
	if def <= 0 {
		def = DefaultPageLimit
	}
	if limit <= 0 {
		limit = def
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return models.Page{Page: page, Limit: limit}
}
