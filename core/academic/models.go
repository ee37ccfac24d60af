package academic

import (
	"regexp"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/hazard-Tom2004/TESA-API/core"
)

// Semesters
const (
	SemesterFirst  = "first"
	SemesterSecond = "second"
)

var (
	Departments = []string{
		"Agricultural and Environmental Engineering",
		"Automotive Engineering",
		"Biomedical Engineering",
		"Civil Engineering",
		"Electrical and Electronic engineering",
		"Food Engineering",
		"Industrial and Production Engineering",
		"Mechanical Engineering",
		"Petroleum Engineering",
		"Wood and Biomaterials Engineering",
	}
	Levels    = []string{"100", "200", "300", "400", "500"}
	Semesters = []string{SemesterFirst, SemesterSecond}

	// academic sessions are year pairs, eg. "2025/2026"
	sessionRegex = regexp.MustCompile(`^\d{4}/\d{4}$`)
)

type (
	// Session is the singleton-per-period "current academic session" marker.
	Session struct {
		ID        string    `json:"id"`
		Session   string    `json:"session"`
		IsCurrent bool      `json:"isCurrent"`
		SetBy     string    `json:"setBy"`
		CreatedAt time.Time `json:"createdAt"` // UTC
		UpdatedAt time.Time `json:"updatedAt"` // UTC
	}

	// Semester is the singleton-per-period "current semester" marker.
	Semester struct {
		ID        string    `json:"id"`
		Semester  string    `json:"semester"`
		IsCurrent bool      `json:"isCurrent"`
		SetBy     string    `json:"setBy"`
		CreatedAt time.Time `json:"createdAt"` // UTC
		UpdatedAt time.Time `json:"updatedAt"` // UTC
	}

	// Term scopes course identity to a (session, semester) pair.
	Term struct {
		Session  string `json:"session"`
		Semester string `json:"semester"`
	}
)

// SetSession contains information needed to mark a new current session.
type SetSession struct {
	Session string `json:"session" validate:"required,session"`
}

func (ss *SetSession) Validate() error {
	ss.Session = core.CleanString(ss.Session)
	return core.Validate.Struct(ss)
}

// SetSemester contains information needed to mark a new current semester.
type SetSemester struct {
	Semester string `json:"semester" validate:"required,semester"`
}

func (ss *SetSemester) Validate() error {
	ss.Semester = core.CleanString(ss.Semester, true /* lower */)
	return core.Validate.Struct(ss)
}

// custom validation tags & texts
var (
	allDepartmentsTag  = "alldepartments"
	allDepartmentsText = "invalid departments"

	allLevelsTag  = "alllevels"
	allLevelsText = "invalid levels"

	semesterTag  = "semester"
	semesterText = "semester must be one of: first, second"

	sessionTag  = "session"
	sessionText = "session must be a year pair, eg. 2025/2026"
)

// InitValidators registers the academic taxonomy validators.
func InitValidators() {
	_ = core.Validate.RegisterValidation(allDepartmentsTag, allDepartmentsValidation)
	core.RegisterCustomTranslation(allDepartmentsTag, allDepartmentsText)

	_ = core.Validate.RegisterValidation(allLevelsTag, allLevelsValidation)
	core.RegisterCustomTranslation(allLevelsTag, allLevelsText)

	_ = core.Validate.RegisterValidation(semesterTag, semesterValidation)
	core.RegisterCustomTranslation(semesterTag, semesterText)

	_ = core.Validate.RegisterValidation(sessionTag, sessionValidation)
	core.RegisterCustomTranslation(sessionTag, sessionText)
}

// ValidDepartment checks a single value against the department enum.
func ValidDepartment(val string) bool {
	return contains(Departments, val)
}

// ValidLevel checks a single value against the level enum.
func ValidLevel(val string) bool {
	return contains(Levels, val)
}

func contains(allowed []string, val string) bool {
	i := sort.SearchStrings(allowed, val)
	return i < len(allowed) && allowed[i] == val
}

func allIn(allowed []string, vals []string) bool {
	if len(vals) == 0 {
		return false
	}
	for _, v := range vals {
		if !contains(allowed, v) {
			return false
		}
	}
	return true
}

func allDepartmentsValidation(fl validator.FieldLevel) bool {
	if vals, ok := fl.Field().Interface().([]string); ok {
		return allIn(Departments, vals)
	}
	return ValidDepartment(fl.Field().String())
}

func allLevelsValidation(fl validator.FieldLevel) bool {
	if vals, ok := fl.Field().Interface().([]string); ok {
		return allIn(Levels, vals)
	}
	return ValidLevel(fl.Field().String())
}

func semesterValidation(fl validator.FieldLevel) bool {
	return contains(Semesters, fl.Field().String())
}

func sessionValidation(fl validator.FieldLevel) bool {
	return sessionRegex.MatchString(fl.Field().String())
}
