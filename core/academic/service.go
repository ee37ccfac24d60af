package academic

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// errors
	ErrNoCurrentSession  = errors.New("no current academic session is set")
	ErrNoCurrentSemester = errors.New("no current semester is set")
)

type (
	// Repository persists the current-period markers.
	//
	// SetCurrentSession/SetCurrentSemester must clear the previous current
	// record and insert the new one as one atomic operation: two concurrent
	// calls may not leave two (or zero) records flagged current.
	Repository interface {
		SetCurrentSession(ctx context.Context, s Session) (Session, error)
		GetCurrentSession(ctx context.Context) (Session, error)
		SetCurrentSemester(ctx context.Context, s Semester) (Semester, error)
		GetCurrentSemester(ctx context.Context) (Semester, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) SetCurrentSession(ctx context.Context, ss SetSession, setBy string) (Session, error) {
	now := time.Now().UTC()
	return svc.repo.SetCurrentSession(ctx, Session{
		ID:        uuid.New().String(),
		Session:   ss.Session,
		IsCurrent: true,
		SetBy:     setBy,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (svc *Service) SetCurrentSemester(ctx context.Context, ss SetSemester, setBy string) (Semester, error) {
	now := time.Now().UTC()
	return svc.repo.SetCurrentSemester(ctx, Semester{
		ID:        uuid.New().String(),
		Semester:  ss.Semester,
		IsCurrent: true,
		SetBy:     setBy,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (svc *Service) CurrentSession(ctx context.Context) (Session, error) {
	return svc.repo.GetCurrentSession(ctx)
}

func (svc *Service) CurrentSemester(ctx context.Context) (Semester, error) {
	return svc.repo.GetCurrentSemester(ctx)
}

// CurrentTerm resolves the (session, semester) pair scoping course identity.
// A missing marker means "no current period configured", never a default.
func (svc *Service) CurrentTerm(ctx context.Context) (Term, error) {
	sess, err := svc.repo.GetCurrentSession(ctx)
	if err != nil {
		return Term{}, err
	}
	sem, err := svc.repo.GetCurrentSemester(ctx)
	if err != nil {
		return Term{}, err
	}
	return Term{Session: sess.Session, Semester: sem.Semester}, nil
}
