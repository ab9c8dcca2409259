package repository

import "github.com/sparkmatch/messaging-service/internal/models"

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 50
)

// ClampLimit normalizes a requested page size into [1, MaxPageLimit],
// defaulting when unset.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultPageLimit
	}
	if limit > MaxPageLimit {
		return MaxPageLimit
	}
	return limit
}

// BuildPage derives pagination metadata from a fetched window. HasMore is
// true exactly when the window is full; NextCursor is the id of the oldest
// message in the window.
func BuildPage(msgs []*models.Message, limit int) Page {
	p := Page{Limit: limit, HasMore: len(msgs) == limit}
	if len(msgs) > 0 {
		p.NextCursor = msgs[len(msgs)-1].ID
	}
	return p
}
