package course_test

import (
	"context"
	"net/url"
	"os"
	"testing"

	"github.com/pkg/errors"

	"github.com/hazard-Tom2004/TESA-API/core"
	"github.com/hazard-Tom2004/TESA-API/core/academic"
	"github.com/hazard-Tom2004/TESA-API/core/course"
	"github.com/hazard-Tom2004/TESA-API/core/user"
	inmemdb "github.com/hazard-Tom2004/TESA-API/storage/database/inmem"
	testutil "github.com/hazard-Tom2004/TESA-API/tests"
)

func TestMain(m *testing.M) {
	core.InitValidators()
	academic.InitValidators()
	os.Exit(m.Run())
}

func newTestService(t *testing.T) (*course.Service, academic.Repository) {
	t.Helper()
	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("inmemdb.Open(): %v", err)
	}
	acaRepo := inmemdb.NewAcademicRepository(db)
	svc := course.NewService(inmemdb.NewCourseRepository(db), academic.NewService(acaRepo), testutil.NewLogger())
	return svc, acaRepo
}

func newCourseDTO(code string) course.NewCourse {
	return course.NewCourse{
		CourseCode: code,
		CourseName: "Engineering Mathematics I",
		Department: []string{academic.Departments[0], academic.Departments[7]},
		Level:      []string{"200"},
		Units:      []int{3},
	}
}

func Test_Service_Create(t *testing.T) {
	ctx := context.Background()
	svc, acaRepo := newTestService(t)

	// no current term set yet
	if _, err := svc.Create(ctx, newCourseDTO("GEM 201"), "admin1"); err != academic.ErrNoCurrentSession {
		t.Fatalf("Create(no term) err = %v; want ErrNoCurrentSession", err)
	}

	testutil.SetTerm(t, acaRepo, "2025/2026", academic.SemesterFirst)

	crs, err := svc.Create(ctx, newCourseDTO("GEM 201"), "admin1")
	if err != nil {
		t.Fatalf("Create(): %v", err)
	}
	if crs.ID == "" {
		t.Error("ID not assigned")
	}
	if crs.Session != "2025/2026" || crs.Semester != academic.SemesterFirst {
		t.Errorf("term = (%q, %q); want the current term", crs.Session, crs.Semester)
	}
	if crs.Shared {
		t.Error("new courses must not start shared")
	}
	if crs.CreatedBy != "admin1" {
		t.Errorf("CreatedBy = %q; want %q", crs.CreatedBy, "admin1")
	}

	// the code is taken within this term
	if _, err = svc.Create(ctx, newCourseDTO("GEM 201"), "admin1"); errors.Cause(err) != course.ErrCourseExists {
		t.Errorf("Create(duplicate) err = %v; want ErrCourseExists", err)
	}

	// the same code under a new term is a different course
	testutil.SetTerm(t, acaRepo, "2025/2026", academic.SemesterSecond)
	if _, err = svc.Create(ctx, newCourseDTO("GEM 201"), "admin1"); err != nil {
		t.Errorf("Create(new term): %v", err)
	}
}

func Test_Service_Create_validation(t *testing.T) {
	ctx := context.Background()
	svc, acaRepo := newTestService(t)
	testutil.SetTerm(t, acaRepo, "2025/2026", academic.SemesterFirst)

	tests := []struct {
		name   string
		mutate func(*course.NewCourse)
	}{
		{"missing code", func(nc *course.NewCourse) { nc.CourseCode = "" }},
		{"missing name", func(nc *course.NewCourse) { nc.CourseName = "" }},
		{"unknown department", func(nc *course.NewCourse) { nc.Department = []string{"Astrology"} }},
		{"unknown level", func(nc *course.NewCourse) { nc.Level = []string{"900"} }},
		{"no units", func(nc *course.NewCourse) { nc.Units = nil }},
		{"zero units", func(nc *course.NewCourse) { nc.Units = []int{0} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nc := newCourseDTO("GEM 201")
			tt.mutate(&nc)
			if _, err := svc.Create(ctx, nc, "admin1"); err == nil {
				t.Error("Create() accepted invalid input")
			}
		})
	}
}

func Test_Service_Sync(t *testing.T) {
	ctx := context.Background()
	svc, acaRepo := newTestService(t)
	testutil.SetTerm(t, acaRepo, "2025/2026", academic.SemesterFirst)

	nc := newCourseDTO("GEM 201")
	nc.Department = []string{academic.Departments[0]}
	nc.Level = []string{"200"}
	if _, err := svc.Create(ctx, nc, "admin1"); err != nil {
		t.Fatalf("Create(): %v", err)
	}

	crs, err := svc.Sync(ctx, course.SyncCourse{
		CourseCode: "GEM 201",
		Department: []string{academic.Departments[0], academic.Departments[3]},
		Level:      []string{"300"},
	})
	if err != nil {
		t.Fatalf("Sync(): %v", err)
	}
	if !crs.Shared {
		t.Error("synced courses must be flagged shared")
	}
	if len(crs.Department) != 2 {
		t.Errorf("Department = %v; want the union of both audiences", crs.Department)
	}
	if len(crs.Level) != 2 {
		t.Errorf("Level = %v; want the union of both audiences", crs.Level)
	}

	// syncing an unknown course fails
	sc := course.SyncCourse{CourseCode: "NOPE 101", Department: []string{academic.Departments[0]}, Level: []string{"200"}}
	if _, err = svc.Sync(ctx, sc); errors.Cause(err) != course.ErrNotFound {
		t.Errorf("Sync(unknown) err = %v; want ErrNotFound", err)
	}
}

func Test_Service_GetByCode(t *testing.T) {
	ctx := context.Background()
	svc, acaRepo := newTestService(t)
	testutil.SetTerm(t, acaRepo, "2025/2026", academic.SemesterFirst)

	if _, err := svc.Create(ctx, newCourseDTO("GEM 201"), "admin1"); err != nil {
		t.Fatalf("Create(): %v", err)
	}

	if _, err := svc.GetByCode(ctx, " GEM 201 "); err != nil {
		t.Errorf("GetByCode(): %v", err)
	}
	if _, err := svc.GetByCode(ctx, "NOPE 101"); errors.Cause(err) != course.ErrNotFound {
		t.Errorf("GetByCode(unknown) err = %v; want ErrNotFound", err)
	}

	// a past-term course is invisible by code
	testutil.SetTerm(t, acaRepo, "2026/2027", academic.SemesterFirst)
	if _, err := svc.GetByCode(ctx, "GEM 201"); errors.Cause(err) != course.ErrNotFound {
		t.Errorf("GetByCode(past term) err = %v; want ErrNotFound", err)
	}
}

func Test_Service_GetUserCourses(t *testing.T) {
	ctx := context.Background()
	svc, acaRepo := newTestService(t)
	testutil.SetTerm(t, acaRepo, "2025/2026", academic.SemesterFirst)

	mech := newCourseDTO("MEE 201")
	mech.Department = []string{academic.Departments[7]} // Mechanical
	mech.Level = []string{"200"}
	civil := newCourseDTO("CVE 301")
	civil.Department = []string{academic.Departments[3]} // Civil
	civil.Level = []string{"300"}
	if _, err := svc.Create(ctx, mech, "admin1"); err != nil {
		t.Fatalf("Create(): %v", err)
	}
	if _, err := svc.Create(ctx, civil, "admin1"); err != nil {
		t.Fatalf("Create(): %v", err)
	}

	usr := user.User{Department: []string{academic.Departments[7]}, Level: []string{"200"}}
	courses, err := svc.GetUserCourses(ctx, usr)
	if err != nil {
		t.Fatalf("GetUserCourses(): %v", err)
	}
	if len(courses) != 1 || courses[0].CourseCode != "MEE 201" {
		t.Errorf("GetUserCourses() = %v; want just MEE 201", courses)
	}

	// right department, wrong level
	usr.Level = []string{"500"}
	if courses, _ = svc.GetUserCourses(ctx, usr); len(courses) != 0 {
		t.Errorf("GetUserCourses() = %v; want none", courses)
	}
}

func TestParseQueryFilter(t *testing.T) {
	tests := []struct {
		name    string
		query   url.Values
		want    course.QueryFilter
		wantErr bool
	}{
		{"empty", url.Values{}, course.QueryFilter{}, false},
		{
			"by code and name",
			url.Values{"courseCode": {"GEM 201"}, "courseName": {"Math"}},
			course.QueryFilter{CourseCode: "GEM 201", CourseName: "Math"},
			false,
		},
		{
			"by department",
			url.Values{"department": {academic.Departments[0]}},
			course.QueryFilter{Department: academic.Departments[0]},
			false,
		},
		{"blank values are ignored", url.Values{"courseCode": {""}}, course.QueryFilter{}, false},
		{"unknown key", url.Values{"semester": {"first"}}, course.QueryFilter{}, true},
		{"unknown department", url.Values{"department": {"Astrology"}}, course.QueryFilter{}, true},
		{"unknown level", url.Values{"level": {"900"}}, course.QueryFilter{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := course.ParseQueryFilter(tt.query)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseQueryFilter() err = %v; wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseQueryFilter() = %+v; want %+v", got, tt.want)
			}
		})
	}
}
