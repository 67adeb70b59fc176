package ids

import "github.com/oklog/ulid/v2"

// New returns a lexicographically sortable identifier. ULIDs embed the
// creation instant, so rows ordered by ID are also ordered by time.
func New() string {
	return ulid.Make().String()
}
