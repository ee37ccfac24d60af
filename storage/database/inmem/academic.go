package inmemdb

import (
	"context"

	"github.com/hazard-Tom2004/TESA-API/core/academic"
)

type academicRepository struct {
	db *academicTable
}

var _ academic.Repository = (*academicRepository)(nil) // interface compliance check

func NewAcademicRepository(db *DB) academic.Repository {
	return &academicRepository{db: db.academic}
}

// SetCurrentSession clears every current flag and marks sess under one lock,
// so readers never observe zero or two current sessions.
func (repo *academicRepository) SetCurrentSession(ctx context.Context, sess academic.Session) (academic.Session, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, s := range repo.db.sessions {
		s.IsCurrent = false
	}
	sess.IsCurrent = true
	repo.db.sessions[sess.ID] = &sess
	return sess, nil
}

func (repo *academicRepository) GetCurrentSession(ctx context.Context) (academic.Session, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, s := range repo.db.sessions {
		if s.IsCurrent {
			return *s, nil
		}
	}
	return academic.Session{}, academic.ErrNoCurrentSession
}

func (repo *academicRepository) SetCurrentSemester(ctx context.Context, sem academic.Semester) (academic.Semester, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, s := range repo.db.semesters {
		s.IsCurrent = false
	}
	sem.IsCurrent = true
	repo.db.semesters[sem.ID] = &sem
	return sem, nil
}

func (repo *academicRepository) GetCurrentSemester(ctx context.Context) (academic.Semester, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, s := range repo.db.semesters {
		if s.IsCurrent {
			return *s, nil
		}
	}
	return academic.Semester{}, academic.ErrNoCurrentSemester
}
