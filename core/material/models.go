package material

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/hazard-Tom2004/TESA-API/core"
)

// Categories group materials by what they are, and each category pins the
// file kinds it accepts.
const (
	CategorySlidesNotes = "slides/Notes"
	CategoryVideos      = "videos"
	CategoryPastQA      = "past Q&A"
	CategorySolutions   = "Solutions"
	CategoryPracticals  = "Practicals"
	CategoryBooks       = "Books"
)

var Categories = []string{
	CategorySlidesNotes,
	CategoryVideos,
	CategoryPastQA,
	CategorySolutions,
	CategoryPracticals,
	CategoryBooks,
}

// FileKind is the storage format of an attachment.
type FileKind string

const (
	KindVideo FileKind = "video"
	KindPDF   FileKind = "pdf"
	KindDoc   FileKind = "doc"
	KindPPT   FileKind = "ppt"
)

var categoryKinds = map[string][]FileKind{
	CategorySlidesNotes: {KindPPT, KindDoc},
	CategoryVideos:      {KindVideo},
	CategoryPastQA:      {KindPDF},
	CategorySolutions:   {KindPDF},
	CategoryPracticals:  {KindPDF},
	CategoryBooks:       {KindPDF},
}

func ValidCategory(cat string) bool {
	_, ok := categoryKinds[cat]
	return ok
}

// KindFromMIME classifies an uploaded file's content type within a category.
// The category constrains which kinds are acceptable; a PPT under a
// PDF-only category is a format error, not a reclassification.
func KindFromMIME(category, mimeType string) (FileKind, error) {
	mt := strings.ToLower(mimeType)
	switch category {
	case CategorySlidesNotes:
		if strings.Contains(mt, "presentation") || strings.Contains(mt, "powerpoint") {
			return KindPPT, nil
		}
		if strings.Contains(mt, "msword") || strings.Contains(mt, "wordprocessing") {
			return KindDoc, nil
		}
		return "", ErrUnsupportedFormat
	case CategoryVideos:
		return "", ErrUnsupportedFormat // videos take an embed URL, not a file
	case CategoryPastQA, CategorySolutions, CategoryPracticals, CategoryBooks:
		if strings.Contains(mt, "pdf") {
			return KindPDF, nil
		}
		return "", ErrUnsupportedFormat
	}
	return "", ErrUnsupportedFormat
}

// Attachment binds a stored file (or video embed) to its kind. Exactly one
// of videoUrl/pdfUrl/docUrl/pptUrl appears on the wire, keyed by Kind.
type Attachment struct {
	Kind FileKind
	URL  string
}

func (a Attachment) wireKey() string {
	switch a.Kind {
	case KindVideo:
		return "videoUrl"
	case KindPDF:
		return "pdfUrl"
	case KindDoc:
		return "docUrl"
	case KindPPT:
		return "pptUrl"
	}
	return ""
}

type Material struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Category    string     `json:"type"`
	CourseID    string     `json:"courseRef"`
	UploadedBy  string     `json:"uploadedBy"`
	Attachment  Attachment `json:"-"`
	CreatedAt   time.Time  `json:"createdAt"` // UTC
	UpdatedAt   time.Time  `json:"updatedAt"` // UTC
}

// MarshalJSON flattens the attachment into its kind-specific URL field.
func (m Material) MarshalJSON() ([]byte, error) {
	type alias Material // avoid recursion
	data, err := json.Marshal(alias(m))
	if err != nil {
		return nil, err
	}
	return injectAttachment(data, m.Attachment)
}

func injectAttachment(data []byte, a Attachment) ([]byte, error) {
	if key := a.wireKey(); key != "" && a.URL != "" {
		obj := make(map[string]interface{})
		if err := json.Unmarshal(data, &obj); err != nil {
			return nil, err
		}
		obj[key] = a.URL
		return json.Marshal(obj)
	}
	return data, nil
}

// Suggestion review statuses. Pending is the only non-terminal state.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Suggestion is a student-submitted material awaiting moderation.
type Suggestion struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Email       string     `json:"email"`
	Category    string     `json:"type"`
	Status      string     `json:"status"`
	ReviewNotes string     `json:"reviewNotes,omitempty"`
	CourseID    string     `json:"courseRef"`
	SuggestedBy string     `json:"suggestedBy"`
	Attachment  Attachment `json:"-"`
	CreatedAt   time.Time  `json:"createdAt"` // UTC
	UpdatedAt   time.Time  `json:"updatedAt"` // UTC
}

func (s Suggestion) MarshalJSON() ([]byte, error) {
	type alias Suggestion
	data, err := json.Marshal(alias(s))
	if err != nil {
		return nil, err
	}
	return injectAttachment(data, s.Attachment)
}

// Terminal reports whether the suggestion has already been reviewed.
func (s Suggestion) Terminal() bool { return s.Status != StatusPending }

// NewMaterial carries the metadata of a single upload. The binary (or the
// video embed URL) travels alongside, not inside.
type NewMaterial struct {
	CourseCode  string `json:"courseCode" validate:"required"`
	Name        string `json:"materialName" validate:"required"`
	Description string `json:"materialDescription" validate:"required"`
	Category    string `json:"type" validate:"required,allcategories"`
	VideoURL    string `json:"youtubeUrl" validate:"omitempty,url"`
}

func (nm *NewMaterial) Validate() error {
	nm.CourseCode = core.CleanString(nm.CourseCode)
	nm.Name = core.CleanString(nm.Name)
	nm.Description = core.CleanString(nm.Description)
	if err := core.Validate.Struct(nm); err != nil {
		return err
	}
	if nm.Category == CategoryVideos && nm.VideoURL == "" {
		return core.NewValidationError(nil, core.FieldError{
			Field: "youtubeUrl", Error: "required for video materials",
		})
	}
	return nil
}

// NewSuggestion is the student-facing variant of NewMaterial.
type NewSuggestion struct {
	NewMaterial
	Email string `json:"email" validate:"required,email"`
}

func (ns *NewSuggestion) Validate() error {
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	if err := core.Validate.Struct(ns); err != nil {
		return err
	}
	if ns.Category == CategoryVideos && ns.VideoURL == "" {
		return core.NewValidationError(nil, core.FieldError{
			Field: "youtubeUrl", Error: "required for video materials",
		})
	}
	return nil
}

// ReviewSuggestion carries the moderator's verdict notes.
type ReviewSuggestion struct {
	Review string `json:"review"`
}

// Stats counts suggestions per review status.
type Stats struct {
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
}

// BatchItem is one entry of a batch upload request.
type BatchItem struct {
	NewMaterial
	File *Upload `json:"-"`
}

// Upload is a received file: its MIME type and content.
type Upload struct {
	Filename    string
	ContentType string
	Content     []byte
}

// BatchFailure reports why one batch item was not created.
type BatchFailure struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// BatchResult pairs created materials with per-index failures. Batch uploads
// are never atomic, a bad item does not poison its neighbors.
type BatchResult struct {
	Created  []Material     `json:"created"`
	Failures []BatchFailure `json:"failed"`
}

// custom validation tags & texts
var (
	allCategoriesTag  = "allcategories"
	allCategoriesText = "material type must be one of: " + strings.Join(Categories, ", ")
)

// InitValidators registers the material validation tags.
func InitValidators() {
	_ = core.Validate.RegisterValidation(allCategoriesTag, func(fl validator.FieldLevel) bool {
		return ValidCategory(fl.Field().String())
	})
	core.RegisterCustomTranslation(allCategoriesTag, allCategoriesText)
}
