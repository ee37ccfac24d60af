package course

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/hazard-Tom2004/TESA-API/core"
	"github.com/hazard-Tom2004/TESA-API/core/academic"
)

type Course struct {
	ID         string    `json:"id"`
	CourseCode string    `json:"courseCode"`
	CourseName string    `json:"courseName"`
	Department []string  `json:"department"`
	Level      []string  `json:"level"`
	Units      []int     `json:"units"`
	Semester   string    `json:"semester"`
	Session    string    `json:"session"`
	Shared     bool      `json:"shared"`
	CreatedBy  string    `json:"createdBy,omitempty"`
	CreatedAt  time.Time `json:"createdAt"` // UTC
	UpdatedAt  time.Time `json:"updatedAt"` // UTC
}

// NewCourse contains information needed to create a Course. Session and
// semester are never client-supplied, they come from the current term.
type NewCourse struct {
	CourseCode string   `json:"courseCode" validate:"required"`
	CourseName string   `json:"courseName" validate:"required"`
	Department []string `json:"department" validate:"required,alldepartments"`
	Level      []string `json:"level" validate:"required,alllevels"`
	Units      []int    `json:"units" validate:"required,min=1,dive,gt=0"`
}

func (nc *NewCourse) Validate() error {
	nc.CourseCode = core.CleanString(nc.CourseCode)
	nc.CourseName = core.CleanString(nc.CourseName)
	nc.Department = core.CleanStrings(nc.Department)
	nc.Level = core.CleanStrings(nc.Level)
	return core.Validate.Struct(nc)
}

type UpdateCourse struct {
	CourseName string   `json:"courseName"`
	Department []string `json:"department" validate:"omitempty,alldepartments"`
	Level      []string `json:"level" validate:"omitempty,alllevels"`
	Units      []int    `json:"units" validate:"omitempty,min=1,dive,gt=0"`
}

func (uc *UpdateCourse) Validate() error {
	uc.CourseName = core.CleanString(uc.CourseName)
	uc.Department = core.CleanStrings(uc.Department)
	uc.Level = core.CleanStrings(uc.Level)
	return core.Validate.Struct(uc)
}

// SyncCourse widens an existing course's audience.
type SyncCourse struct {
	CourseCode string   `json:"courseCode" validate:"required"`
	Department []string `json:"department" validate:"required,alldepartments"`
	Level      []string `json:"level" validate:"required,alllevels"`
}

func (sc *SyncCourse) Validate() error {
	sc.CourseCode = core.CleanString(sc.CourseCode)
	sc.Department = core.CleanStrings(sc.Department)
	sc.Level = core.CleanStrings(sc.Level)
	return core.Validate.Struct(sc)
}

// QueryFilter restricts a course listing. Zero values mean "any".
type QueryFilter struct {
	Department string
	Level      string
	CourseCode string
	CourseName string
}

var allowedQueryKeys = []string{"courseCode", "courseName", "department", "level"}

// ParseQueryFilter builds a filter from request query params. Unknown keys and
// out-of-range department/level values are rejected outright rather than
// silently ignored, with the allowed values named in the error.
func ParseQueryFilter(values url.Values) (QueryFilter, error) {
	var f QueryFilter
	for key, vals := range values {
		if len(vals) == 0 || vals[0] == "" {
			continue
		}
		v := core.CleanString(vals[0])
		switch key {
		case "department":
			if !academic.ValidDepartment(v) {
				return QueryFilter{}, core.NewValidationError(nil, core.FieldError{
					Field: "department",
					Error: fmt.Sprintf("must be one of: %s", strings.Join(academic.Departments, ", ")),
				})
			}
			f.Department = v
		case "level":
			if !academic.ValidLevel(v) {
				return QueryFilter{}, core.NewValidationError(nil, core.FieldError{
					Field: "level",
					Error: fmt.Sprintf("must be one of: %s", strings.Join(academic.Levels, ", ")),
				})
			}
			f.Level = v
		case "courseCode":
			f.CourseCode = v
		case "courseName":
			f.CourseName = v
		default:
			return QueryFilter{}, core.NewValidationError(nil, core.FieldError{
				Field: key,
				Error: fmt.Sprintf("unknown filter; allowed filters are: %s", strings.Join(allowedQueryKeys, ", ")),
			})
		}
	}
	return f, nil
}

// Matches applies the filter in memory. Code matching is case-insensitive,
// name matching is a case-insensitive substring match.
func (f QueryFilter) Matches(c Course) bool {
	if f.Department != "" && !contains(c.Department, f.Department) {
		return false
	}
	if f.Level != "" && !contains(c.Level, f.Level) {
		return false
	}
	if f.CourseCode != "" && !strings.EqualFold(c.CourseCode, f.CourseCode) {
		return false
	}
	if f.CourseName != "" && !strings.Contains(strings.ToLower(c.CourseName), strings.ToLower(f.CourseName)) {
		return false
	}
	return true
}

func contains(vals []string, v string) bool {
	for _, val := range vals {
		if strings.EqualFold(val, v) {
			return true
		}
	}
	return false
}

// union merges b into a, preserving a's order and deduplicating.
func union(a, b []string) []string {
	out := append([]string(nil), a...)
	for _, v := range b {
		if !contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}
