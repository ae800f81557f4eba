package normalize

import (
	"github.com/roach88/sorsync/internal/feed"
)

// Generic normalizes a flat feed whose records already are entities. The
// natural id is read from f.IDField and the first occurrence of an id wins.
func Generic(f feed.Feed) (Result, error) {
	idField := f.IDField
	if idField == "" {
		idField = feed.DefaultIDField
	}

	res := newResult()
	for _, rec := range f.Records {
		id := naturalID(rec, idField)
		if id == "" {
			res.Dropped++
			continue
		}
		if !res.add(id, f.Source, rec.Clone()) {
			res.Duplicates++
			logDuplicate(f.Source, id)
		}
	}
	return *res, nil
}
