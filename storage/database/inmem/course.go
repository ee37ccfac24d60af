package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/hazard-Tom2004/TESA-API/core/course"
)

type courseRepository struct {
	db *courseTable
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) course.Repository {
	return &courseRepository{db: db.course}
}

func (repo *courseRepository) CreateCourse(ctx context.Context, crs *course.Course) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, c := range repo.db.table {
		if strings.EqualFold(c.CourseCode, crs.CourseCode) && c.Session == crs.Session && c.Semester == crs.Semester {
			return course.ErrCourseExists
		}
	}
	cp := *crs
	repo.db.table[crs.ID] = &cp
	return nil
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, crs *course.Course) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[crs.ID]; !ok {
		return course.ErrNotFound
	}
	cp := *crs
	repo.db.table[crs.ID] = &cp
	return nil
}

func (repo *courseRepository) GetCourseByTerm(ctx context.Context, code, session, semester string) (course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, c := range repo.db.table {
		if strings.EqualFold(c.CourseCode, code) && c.Session == session && c.Semester == semester {
			return *c, nil
		}
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) GetCourseByID(ctx context.Context, id string) (course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if c, ok := repo.db.table[id]; ok {
		return *c, nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) QueryCourses(ctx context.Context, filter course.QueryFilter) ([]course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	courses := make([]course.Course, 0, len(repo.db.table))
	for _, c := range repo.db.table {
		if filter.Matches(*c) {
			courses = append(courses, *c)
		}
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].CourseCode < courses[j].CourseCode })
	return courses, nil
}

func (repo *courseRepository) DeleteCourse(ctx context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return course.ErrNotFound
	}
	delete(repo.db.table, id)
	return nil
}
