package normalize

import (
	"strconv"

	"github.com/roach88/sorsync/internal/feed"
	"github.com/roach88/sorsync/internal/ir"
)

// minInstructorID is the smallest instructor id accepted. Lower values are
// placeholder ids the course feed uses for unassigned sections.
const minInstructorID = 10000

// Section attributes and the course or component field each is copied from.
var (
	courseSectionFields = []struct{ out, in string }{
		{"term", "term"},
		{"name", "crsename"},
		{"num", "crsenum"},
		{"title", "crsetitle"},
	}
	componentSectionFields = []struct{ out, in string }{
		{"section", "sect"},
		{"type", "classtype"},
		{"status", "classstat"},
	}
)

// Instructors normalizes a course extract. The extract lists courses with
// their sections and each section's instructors; the result lists
// instructors, each with every section they teach, concatenated in feed order.
func Instructors(f feed.Feed) (Result, error) {
	res := newResult()
	for _, course := range f.Records {
		sections, ok := course.Obj("classsections")
		if !ok {
			continue
		}
		for _, a := range ir.AsList(sections["associated"]) {
			assoc, ok := a.(ir.Object)
			if !ok {
				continue
			}
			// No component means a placeholder course with nothing scheduled yet.
			for _, c := range ir.AsList(assoc["component"]) {
				component, ok := c.(ir.Object)
				if !ok {
					continue
				}
				for _, in := range ir.AsList(component["instructor"]) {
					res.addInstructor(f.Source, course, component, in)
				}
			}
		}
	}
	return *res, nil
}

func (r *Result) addInstructor(source string, course, component ir.Object, v ir.Value) {
	instructor, ok := v.(ir.Object)
	if !ok {
		r.Dropped++
		return
	}
	id := naturalID(instructor, "id")
	if !ValidInstructorID(id) {
		r.Dropped++
		return
	}

	section := ir.Object{}
	for _, f := range courseSectionFields {
		if val, ok := course[f.in]; ok {
			section[f.out] = val
		}
	}
	if attrs, ok := component.Obj(feed.AttrKey); ok {
		if code, ok := attrs["code"]; ok {
			section["code"] = code
		}
	}
	for _, f := range componentSectionFields {
		if val, ok := component[f.in]; ok {
			section[f.out] = val
		}
	}
	if role, ok := instructor["rolecode"]; ok {
		section["rolecode"] = role
	}

	if existing, ok := r.Entities[id]; ok {
		sections, _ := existing.Attrs["sections"].(ir.Array)
		existing.Attrs["sections"] = append(sections, section)
		return
	}
	r.add(id, source, ir.Object{
		NaturalIDKey: ir.String(id),
		"sections":   ir.Array{section},
	})
}

// ValidInstructorID reports whether id is an all-digit id of at least five
// digits above 9999.
func ValidInstructorID(id string) bool {
	if len(id) < 5 {
		return false
	}
	for _, c := range id {
		if c < '0' || c > '9' {
			return false
		}
	}
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return false
	}
	return n >= minInstructorID
}
