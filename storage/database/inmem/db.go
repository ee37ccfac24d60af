package inmemdb

import (
	"sync"

	"github.com/hazard-Tom2004/TESA-API/core/academic"
	"github.com/hazard-Tom2004/TESA-API/core/course"
	"github.com/hazard-Tom2004/TESA-API/core/material"
	"github.com/hazard-Tom2004/TESA-API/core/user"
)

// DB is a process-local store keyed by ID. It backs tests and local
// development; the sqlx implementation is the production path.
type (
	DB struct {
		user     *userTable
		academic *academicTable
		course   *courseTable
		material *materialTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	academicTable struct {
		sync.RWMutex
		sessions  map[string]*academic.Session
		semesters map[string]*academic.Semester
	}

	courseTable struct {
		sync.RWMutex
		table map[string]*course.Course
	}

	materialTable struct {
		sync.RWMutex
		materials   map[string]*material.Material
		suggestions map[string]*material.Suggestion
	}
)

func Open() (*DB, error) {
	db := &DB{
		user:     &userTable{table: make(map[string]*user.User)},
		academic: &academicTable{sessions: make(map[string]*academic.Session), semesters: make(map[string]*academic.Semester)},
		course:   &courseTable{table: make(map[string]*course.Course)},
		material: &materialTable{materials: make(map[string]*material.Material), suggestions: make(map[string]*material.Suggestion)},
	}
	return db, nil
}
