package academic_test

import (
	"context"
	"os"
	"testing"

	"github.com/hazard-Tom2004/TESA-API/core"
	"github.com/hazard-Tom2004/TESA-API/core/academic"
	inmemdb "github.com/hazard-Tom2004/TESA-API/storage/database/inmem"
)

func TestMain(m *testing.M) {
	core.InitValidators()
	academic.InitValidators()
	os.Exit(m.Run())
}

func newTestService(t *testing.T) *academic.Service {
	t.Helper()
	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("inmemdb.Open(): %v", err)
	}
	return academic.NewService(inmemdb.NewAcademicRepository(db))
}

func Test_Service_CurrentTerm_requiresBothMarkers(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	if _, err := svc.CurrentTerm(ctx); err != academic.ErrNoCurrentSession {
		t.Errorf("CurrentTerm() err = %v; want ErrNoCurrentSession", err)
	}

	if _, err := svc.SetCurrentSession(ctx, academic.SetSession{Session: "2025/2026"}, "admin1"); err != nil {
		t.Fatalf("SetCurrentSession(): %v", err)
	}
	if _, err := svc.CurrentTerm(ctx); err != academic.ErrNoCurrentSemester {
		t.Errorf("CurrentTerm() err = %v; want ErrNoCurrentSemester", err)
	}

	if _, err := svc.SetCurrentSemester(ctx, academic.SetSemester{Semester: academic.SemesterFirst}, "admin1"); err != nil {
		t.Fatalf("SetCurrentSemester(): %v", err)
	}
	term, err := svc.CurrentTerm(ctx)
	if err != nil {
		t.Fatalf("CurrentTerm(): %v", err)
	}
	if term.Session != "2025/2026" || term.Semester != academic.SemesterFirst {
		t.Errorf("CurrentTerm() = %+v", term)
	}
}

func Test_Service_SetCurrentSession_supersedesPrevious(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	first, err := svc.SetCurrentSession(ctx, academic.SetSession{Session: "2024/2025"}, "admin1")
	if err != nil {
		t.Fatalf("SetCurrentSession(): %v", err)
	}
	second, err := svc.SetCurrentSession(ctx, academic.SetSession{Session: "2025/2026"}, "admin2")
	if err != nil {
		t.Fatalf("SetCurrentSession(): %v", err)
	}
	if first.ID == second.ID {
		t.Fatal("each marker must be a distinct record")
	}

	curr, err := svc.CurrentSession(ctx)
	if err != nil {
		t.Fatalf("CurrentSession(): %v", err)
	}
	if curr.ID != second.ID {
		t.Errorf("CurrentSession() = %s; want %s", curr.ID, second.ID)
	}
	if curr.Session != "2025/2026" {
		t.Errorf("CurrentSession().Session = %q; want %q", curr.Session, "2025/2026")
	}
	if curr.SetBy != "admin2" {
		t.Errorf("CurrentSession().SetBy = %q; want %q", curr.SetBy, "admin2")
	}
}

func Test_Service_SetCurrentSemester_supersedesPrevious(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	if _, err := svc.SetCurrentSemester(ctx, academic.SetSemester{Semester: academic.SemesterFirst}, "admin1"); err != nil {
		t.Fatalf("SetCurrentSemester(): %v", err)
	}
	second, err := svc.SetCurrentSemester(ctx, academic.SetSemester{Semester: academic.SemesterSecond}, "admin1")
	if err != nil {
		t.Fatalf("SetCurrentSemester(): %v", err)
	}

	curr, err := svc.CurrentSemester(ctx)
	if err != nil {
		t.Fatalf("CurrentSemester(): %v", err)
	}
	if curr.ID != second.ID || curr.Semester != academic.SemesterSecond {
		t.Errorf("CurrentSemester() = %+v; want the second marker", curr)
	}
}

func Test_SetSession_Validate(t *testing.T) {
	tests := []struct {
		name    string
		session string
		wantErr bool
	}{
		{"valid", "2025/2026", false},
		{"valid with spaces", "  2025/2026  ", false},
		{"missing", "", true},
		{"single year", "2025", true},
		{"wrong separator", "2025-2026", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ss := academic.SetSession{Session: tt.session}
			if err := ss.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() err = %v; wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func Test_SetSemester_Validate(t *testing.T) {
	tests := []struct {
		name     string
		semester string
		wantErr  bool
	}{
		{"first", "first", false},
		{"second", "second", false},
		{"case folded", "FIRST", false},
		{"missing", "", true},
		{"unknown", "third", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ss := academic.SetSemester{Semester: tt.semester}
			if err := ss.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() err = %v; wantErr %v", err, tt.wantErr)
			}
		})
	}
}
