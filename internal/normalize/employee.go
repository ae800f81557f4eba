package normalize

import (
	"log/slog"

	"github.com/roach88/sorsync/internal/feed"
	"github.com/roach88/sorsync/internal/ir"
)

// Employee roles, chosen by the element that holds a department's people.
const (
	RoleApplicant = "applicant"
	RoleEmployee  = "employee"
)

// jobTerminated is the only job status that does not keep a person active.
const jobTerminated = "T"

// Employees normalizes an HR extract. The extract lists departments, each with
// its people; the result lists people, each with every job they hold across
// departments. Jobs are stamped with their department and concatenated in feed
// order. A person is active when any of their jobs is not terminated.
func Employees(f feed.Feed) (Result, error) {
	res := newResult()
	for i, dept := range f.Records {
		people, role, ok := departmentPeople(dept)
		if !ok {
			slog.Warn("unrecognized department employee type, skipping department",
				"source", f.Source, "index", i)
			continue
		}

		for _, p := range ir.AsList(people) {
			rec, ok := p.(ir.Object)
			if !ok {
				res.Dropped++
				continue
			}
			id := naturalID(rec, NaturalIDKey)
			if id == "" {
				res.Dropped++
				continue
			}

			person := employeeFromDepartment(rec.Clone(), role, dept)
			if existing, ok := res.Entities[id]; ok {
				mergeEmployee(existing.Attrs, person)
				continue
			}
			res.add(id, f.Source, person)
		}
	}
	return *res, nil
}

// departmentPeople picks the people of a department and the role they hold.
func departmentPeople(dept ir.Object) (ir.Value, string, bool) {
	employees, ok := dept.Obj("employees")
	if !ok {
		return nil, "", false
	}
	if v, ok := employees["applicant"]; ok {
		return v, RoleApplicant, true
	}
	if v, ok := employees["emp"]; ok {
		return v, RoleEmployee, true
	}
	return nil, "", false
}

func employeeFromDepartment(person ir.Object, role string, dept ir.Object) ir.Object {
	person["role"] = ir.String(role)
	status := ir.StatusInactive

	if v, ok := person["job"]; ok {
		jobs := ir.AsList(v)
		for _, j := range jobs {
			job, ok := j.(ir.Object)
			if !ok {
				continue
			}
			if code, ok := dept["deptcode"]; ok {
				job["deptcode"] = code
			}
			if name, ok := dept["deptname"]; ok {
				job["deptname"] = name
			}
			if s, _ := job.Text("status"); s != jobTerminated {
				status = ir.StatusActive
			}
		}
		person["job"] = jobs
	}

	person[ir.AttrStatus] = ir.String(status)
	return person
}

// mergeEmployee folds a later occurrence into the first. Jobs concatenate,
// active dominates, every other attribute keeps its first value.
func mergeEmployee(into, later ir.Object) {
	if jobs, ok := later["job"].(ir.Array); ok {
		existing, _ := into["job"].(ir.Array)
		into["job"] = append(existing, jobs...)
	}
	if s, _ := later.Text(ir.AttrStatus); s == string(ir.StatusActive) {
		into[ir.AttrStatus] = ir.String(ir.StatusActive)
	}
}
