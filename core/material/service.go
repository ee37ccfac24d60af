package material

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/hazard-Tom2004/TESA-API/core"
	"github.com/hazard-Tom2004/TESA-API/core/course"
)

var (
	ErrNotFound           = errors.New("material not found")
	ErrSuggestionNotFound = errors.New("suggestion not found")
	ErrUnsupportedFormat  = errors.New("unsupported file format for this material type")
	ErrFileRequired       = errors.New("a file is required unless a video URL is provided")
	ErrAlreadyReviewed    = errors.New("suggestion has already been reviewed")
)

type Repository interface {
	CreateMaterial(ctx context.Context, mat *Material) error
	GetMaterialByID(ctx context.Context, id string) (Material, error)
	QueryMaterialsByCourse(ctx context.Context, courseID string) ([]Material, error)
	QueryMaterialsByCategory(ctx context.Context, category string) ([]Material, error)
	SearchMaterials(ctx context.Context, query string) ([]Material, error)

	CreateSuggestion(ctx context.Context, sug *Suggestion) error
	GetSuggestionByID(ctx context.Context, id string) (Suggestion, error)
	QuerySuggestionsByStatus(ctx context.Context, status string) ([]Suggestion, error)
	UpdateSuggestion(ctx context.Context, sug *Suggestion) error
	CountSuggestionsByStatus(ctx context.Context) (Stats, error)
}

type Service struct {
	repo    Repository
	courses *course.Service
	blobs   core.BlobService
	log     core.Logger
}

func NewService(repo Repository, courses *course.Service, blobs core.BlobService, log core.Logger) *Service {
	return &Service{repo: repo, courses: courses, blobs: blobs, log: log}
}

// resolveAttachment classifies the payload and stores the binary when there is
// one. Videos carry an embed URL and never touch blob storage.
func (svc *Service) resolveAttachment(ctx context.Context, nm NewMaterial, up *Upload) (Attachment, error) {
	if nm.Category == CategoryVideos {
		if nm.VideoURL == "" {
			return Attachment{}, ErrFileRequired
		}
		return Attachment{Kind: KindVideo, URL: nm.VideoURL}, nil
	}
	if up == nil || len(up.Content) == 0 {
		return Attachment{}, ErrFileRequired
	}
	kind, err := KindFromMIME(nm.Category, up.ContentType)
	if err != nil {
		return Attachment{}, err
	}

	key := fmt.Sprintf("materials/%s/%s-%s", nm.CourseCode, uuid.New().String(), up.Filename)
	url, err := svc.blobs.Put(ctx, key, core.Upload{
		Filename:    up.Filename,
		ContentType: up.ContentType,
		Content:     bytes.NewReader(up.Content),
	})
	if err != nil {
		return Attachment{}, errors.Wrap(err, "storing material file")
	}
	return Attachment{Kind: kind, URL: url}, nil
}

// Upload stores one material under an existing course.
func (svc *Service) Upload(ctx context.Context, nm NewMaterial, up *Upload, uploadedBy string) (Material, error) {
	if err := nm.Validate(); err != nil {
		return Material{}, err
	}
	crs, err := svc.courses.GetByCode(ctx, nm.CourseCode)
	if err != nil {
		return Material{}, err
	}
	att, err := svc.resolveAttachment(ctx, nm, up)
	if err != nil {
		return Material{}, err
	}

	now := time.Now().UTC()
	mat := Material{
		ID:          uuid.New().String(),
		Name:        nm.Name,
		Description: nm.Description,
		Category:    nm.Category,
		CourseID:    crs.ID,
		UploadedBy:  uploadedBy,
		Attachment:  att,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err = svc.repo.CreateMaterial(ctx, &mat); err != nil {
		return Material{}, errors.Wrap(err, "creating material")
	}
	return mat, nil
}

// BatchUpload processes items independently. A failing item is reported by
// index and reason; the rest still go through.
func (svc *Service) BatchUpload(ctx context.Context, items []BatchItem, uploadedBy string) (BatchResult, error) {
	res := BatchResult{Created: []Material{}, Failures: []BatchFailure{}}
	for i, item := range items {
		mat, err := svc.Upload(ctx, item.NewMaterial, item.File, uploadedBy)
		if err != nil {
			res.Failures = append(res.Failures, BatchFailure{Index: i, Reason: err.Error()})
			continue
		}
		res.Created = append(res.Created, mat)
	}
	return res, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (Material, error) {
	return svc.repo.GetMaterialByID(ctx, id)
}

// GetByCourse lists the materials of a current-term course given its code.
func (svc *Service) GetByCourse(ctx context.Context, courseCode string) ([]Material, error) {
	crs, err := svc.courses.GetByCode(ctx, courseCode)
	if err != nil {
		return nil, err
	}
	return svc.repo.QueryMaterialsByCourse(ctx, crs.ID)
}

func (svc *Service) GetByCategory(ctx context.Context, category string) ([]Material, error) {
	if !ValidCategory(category) {
		return nil, core.NewValidationError(nil, core.FieldError{
			Field: "type", Error: allCategoriesText,
		})
	}
	return svc.repo.QueryMaterialsByCategory(ctx, category)
}

func (svc *Service) Search(ctx context.Context, query string) ([]Material, error) {
	return svc.repo.SearchMaterials(ctx, core.CleanString(query))
}

// CreateSuggestion records a student-submitted material in pending state.
func (svc *Service) CreateSuggestion(ctx context.Context, ns NewSuggestion, up *Upload, suggestedBy string) (Suggestion, error) {
	if err := ns.Validate(); err != nil {
		return Suggestion{}, err
	}
	crs, err := svc.courses.GetByCode(ctx, ns.CourseCode)
	if err != nil {
		return Suggestion{}, err
	}
	att, err := svc.resolveAttachment(ctx, ns.NewMaterial, up)
	if err != nil {
		return Suggestion{}, err
	}

	now := time.Now().UTC()
	sug := Suggestion{
		ID:          uuid.New().String(),
		Name:        ns.Name,
		Description: ns.Description,
		Email:       ns.Email,
		Category:    ns.Category,
		Status:      StatusPending,
		CourseID:    crs.ID,
		SuggestedBy: suggestedBy,
		Attachment:  att,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err = svc.repo.CreateSuggestion(ctx, &sug); err != nil {
		return Suggestion{}, errors.Wrap(err, "creating suggestion")
	}
	return sug, nil
}

func (svc *Service) PendingSuggestions(ctx context.Context) ([]Suggestion, error) {
	return svc.repo.QuerySuggestionsByStatus(ctx, StatusPending)
}

// Review settles a pending suggestion. Approved and rejected are terminal:
// reviewing twice fails with ErrAlreadyReviewed and changes nothing.
func (svc *Service) Review(ctx context.Context, id string, approve bool, notes string) (Suggestion, error) {
	sug, err := svc.repo.GetSuggestionByID(ctx, id)
	if err != nil {
		return Suggestion{}, err
	}
	if sug.Terminal() {
		return Suggestion{}, ErrAlreadyReviewed
	}

	if approve {
		sug.Status = StatusApproved
	} else {
		sug.Status = StatusRejected
	}
	sug.ReviewNotes = notes
	sug.UpdatedAt = time.Now().UTC()
	if err = svc.repo.UpdateSuggestion(ctx, &sug); err != nil {
		return Suggestion{}, errors.Wrap(err, "reviewing suggestion")
	}

	// An approved suggestion becomes a regular material.
	if approve {
		mat := Material{
			ID:          uuid.New().String(),
			Name:        sug.Name,
			Description: sug.Description,
			Category:    sug.Category,
			CourseID:    sug.CourseID,
			UploadedBy:  sug.SuggestedBy,
			Attachment:  sug.Attachment,
			CreatedAt:   sug.UpdatedAt,
			UpdatedAt:   sug.UpdatedAt,
		}
		if err = svc.repo.CreateMaterial(ctx, &mat); err != nil {
			svc.log.Error("promoting approved suggestion to material", err)
		}
	}
	return sug, nil
}

func (svc *Service) SuggestionStats(ctx context.Context) (Stats, error) {
	return svc.repo.CountSuggestionsByStatus(ctx)
}
