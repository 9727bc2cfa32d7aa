package id

import (
	"crypto/rand"

	"github.com/oklog/ulid/v2"
)

// New generates a new ULID string. ULIDs sort by creation time, so rows
// created in the same sweep batch keep their insertion order on ties.
func New() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}
