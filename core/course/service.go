package course

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/hazard-Tom2004/TESA-API/core"
	"github.com/hazard-Tom2004/TESA-API/core/academic"
	"github.com/hazard-Tom2004/TESA-API/core/user"
)

var (
	ErrNotFound     = errors.New("course not found")
	ErrCourseExists = errors.New("course already exists for the current session and semester")
)

type Repository interface {
	CreateCourse(ctx context.Context, crs *Course) error
	UpdateCourse(ctx context.Context, crs *Course) error
	// GetCourseByTerm looks a course up by code within one session+semester.
	GetCourseByTerm(ctx context.Context, code, session, semester string) (Course, error)
	GetCourseByID(ctx context.Context, id string) (Course, error)
	QueryCourses(ctx context.Context, filter QueryFilter) ([]Course, error)
	DeleteCourse(ctx context.Context, id string) error
}

type Service struct {
	repo     Repository
	academic *academic.Service
	log      core.Logger
}

func NewService(repo Repository, academicSvc *academic.Service, log core.Logger) *Service {
	return &Service{repo: repo, academic: academicSvc, log: log}
}

// Create registers a course under the current term. It fails with a distinct
// precondition error when no current session or semester is set, and with
// ErrCourseExists when the code is already taken within that term. The same
// code under a different term is a different course.
func (svc *Service) Create(ctx context.Context, nc NewCourse, createdBy string) (Course, error) {
	if err := nc.Validate(); err != nil {
		return Course{}, err
	}
	term, err := svc.academic.CurrentTerm(ctx)
	if err != nil {
		return Course{}, err
	}

	if _, err = svc.repo.GetCourseByTerm(ctx, nc.CourseCode, term.Session, term.Semester); err == nil {
		return Course{}, ErrCourseExists
	} else if errors.Cause(err) != ErrNotFound {
		return Course{}, err
	}

	now := time.Now().UTC()
	crs := Course{
		ID:         uuid.New().String(),
		CourseCode: nc.CourseCode,
		CourseName: nc.CourseName,
		Department: nc.Department,
		Level:      nc.Level,
		Units:      nc.Units,
		Semester:   term.Semester,
		Session:    term.Session,
		CreatedBy:  createdBy,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err = svc.repo.CreateCourse(ctx, &crs); err != nil {
		return Course{}, errors.Wrap(err, "creating course")
	}
	return crs, nil
}

// Sync widens a current-term course to additional departments and levels. The
// result is the set union of the existing and requested audiences, and the
// course is flagged shared.
func (svc *Service) Sync(ctx context.Context, sc SyncCourse) (Course, error) {
	if err := sc.Validate(); err != nil {
		return Course{}, err
	}
	term, err := svc.academic.CurrentTerm(ctx)
	if err != nil {
		return Course{}, err
	}
	crs, err := svc.repo.GetCourseByTerm(ctx, sc.CourseCode, term.Session, term.Semester)
	if err != nil {
		return Course{}, err
	}

	crs.Department = union(crs.Department, sc.Department)
	crs.Level = union(crs.Level, sc.Level)
	crs.Shared = true
	crs.UpdatedAt = time.Now().UTC()
	if err = svc.repo.UpdateCourse(ctx, &crs); err != nil {
		return Course{}, errors.Wrap(err, "syncing course")
	}
	return crs, nil
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Course, error) {
	return svc.repo.QueryCourses(ctx, filter)
}

// GetByCode fetches a current-term course by its code.
func (svc *Service) GetByCode(ctx context.Context, code string) (Course, error) {
	term, err := svc.academic.CurrentTerm(ctx)
	if err != nil {
		return Course{}, err
	}
	return svc.repo.GetCourseByTerm(ctx, core.CleanString(code), term.Session, term.Semester)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourseByID(ctx, id)
}

func (svc *Service) Update(ctx context.Context, id string, uc UpdateCourse) (Course, error) {
	if err := uc.Validate(); err != nil {
		return Course{}, err
	}
	crs, err := svc.repo.GetCourseByID(ctx, id)
	if err != nil {
		return Course{}, err
	}

	if uc.CourseName != "" {
		crs.CourseName = uc.CourseName
	}
	if len(uc.Department) > 0 {
		crs.Department = uc.Department
	}
	if len(uc.Level) > 0 {
		crs.Level = uc.Level
	}
	if len(uc.Units) > 0 {
		crs.Units = uc.Units
	}
	crs.UpdatedAt = time.Now().UTC()
	if err = svc.repo.UpdateCourse(ctx, &crs); err != nil {
		return Course{}, errors.Wrap(err, "updating course")
	}
	return crs, nil
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteCourse(ctx, id)
}

// GetUserCourses lists the current-term courses whose audience intersects the
// given user's departments and levels.
func (svc *Service) GetUserCourses(ctx context.Context, usr user.User) ([]Course, error) {
	term, err := svc.academic.CurrentTerm(ctx)
	if err != nil {
		return nil, err
	}
	all, err := svc.repo.QueryCourses(ctx, QueryFilter{})
	if err != nil {
		return nil, err
	}

	courses := make([]Course, 0, len(all))
	for _, crs := range all {
		if crs.Session != term.Session || crs.Semester != term.Semester {
			continue
		}
		if intersects(crs.Department, usr.Department) && intersects(crs.Level, usr.Level) {
			courses = append(courses, crs)
		}
	}
	return courses, nil
}

func intersects(a, b []string) bool {
	for _, v := range b {
		if contains(a, v) {
			return true
		}
	}
	return false
}
