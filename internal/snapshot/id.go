package snapshot

import "time"

// IDLayout is the snapshot identifier layout: UTC, second resolution,
// sortable, and free of colons so it is safe as a directory name.
const IDLayout = "2006-01-02T15-04-05Z"

// NewID derives the snapshot identifier from t.
// It names both the snapshot directory and the archive.
func NewID(t time.Time) string {
	return t.UTC().Format(IDLayout)
}
