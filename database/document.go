package database

import (
	"errors"
	"time"
)

// ErrNotFound is returned when no document exists under an ID.
var ErrNotFound = errors.New("document not found")

type Document struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Language  string    `json:"language"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired reports whether now is past the document's expiry.
func (d *Document) Expired(now time.Time) bool {
	return now.After(d.ExpiresAt)
}
