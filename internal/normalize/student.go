package normalize

import (
	"github.com/roach88/sorsync/internal/feed"
)

// Registration sub-fields that may hold one or many values.
var studentListFields = []string{"affiliation", "program", "course"}

// Students normalizes a registry extract. Each record is keyed by sfuid and
// its reginfo list fields are coerced to lists. A repeated sfuid keeps its
// first record.
func Students(f feed.Feed) (Result, error) {
	res := newResult()
	for _, rec := range f.Records {
		id := naturalID(rec, NaturalIDKey)
		if id == "" {
			res.Dropped++
			continue
		}

		student := rec.Clone()
		if reginfo, ok := student.Obj("reginfo"); ok {
			for _, key := range studentListFields {
				coerceList(reginfo, key)
			}
		}

		if !res.add(id, f.Source, student) {
			res.Duplicates++
			logDuplicate(f.Source, id)
		}
	}
	return *res, nil
}
