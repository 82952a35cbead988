package dto

import (
	"time"

	"github.com/noah-isme/examhub-api/internal/models"
)

// CreateDocumentRequest carries the metadata of a new submission.
type CreateDocumentRequest struct {
	Title       string  `json:"title" form:"title" validate:"required,max=200"`
	Description string  `json:"description" form:"description" validate:"max=2000"`
	Classe      string  `json:"classe" form:"classe" validate:"required,max=100"`
	Matiere     string  `json:"matiere" form:"matiere" validate:"required,max=100"`
	LevelID     string  `json:"levelId" form:"levelId" validate:"required,max=100"`
	FileName    string  `json:"fileName" form:"fileName" validate:"required,max=255"`
	FileSize    float64 `json:"fileSize" form:"fileSize" validate:"gte=0"`
	FileRef     string  `json:"fileRef" form:"fileRef" validate:"required"`
}

// UploadURLRequest asks for a presigned direct upload target.
type UploadURLRequest struct {
	FileName    string `json:"fileName" validate:"required,max=255"`
	ContentType string `json:"contentType"`
}

// UploadURLResponse is the presigned target plus the fileRef to submit afterwards.
type UploadURLResponse struct {
	UploadURL string    `json:"uploadUrl"`
	FileRef   string    `json:"fileRef"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// RejectDocumentRequest optionally explains a rejection.
type RejectDocumentRequest struct {
	Reason *string `json:"reason" validate:"omitempty,max=1000"`
}

// DownloadResponse returns the updated document and where to fetch its file.
type DownloadResponse struct {
	Document  models.Document `json:"document"`
	URL       string          `json:"url,omitempty"`
	ExpiresAt *time.Time      `json:"expiresAt,omitempty"`
}

// CatalogQuery binds listing query parameters.
type CatalogQuery struct {
	Classe    string `form:"classe"`
	Matiere   string `form:"matiere"`
	Sort      string `form:"sort"`
	Search    string `form:"search"`
	Status    string `form:"status"`
	Page      int    `form:"page"`
	Limit     int    `form:"limit"`
	Signature string `form:"sig"`
}

// SearchQuery binds ranked search parameters.
type SearchQuery struct {
	Term      string `form:"q"`
	Page      int    `form:"page"`
	Limit     int    `form:"limit"`
	Signature string `form:"sig"`
}

// SearchHit is one ranked search result.
type SearchHit struct {
	models.Document
	Score int `json:"score"`
}

// CatalogPage is one page of a catalog listing. Signature identifies the
// result view; echo it back as sig to keep the page while the view is unchanged.
type CatalogPage struct {
	Items      []models.Document  `json:"items"`
	Pagination *models.Pagination `json:"pagination"`
	Signature  string             `json:"signature"`
	CacheHit   bool               `json:"-"`
}

// SearchPage is one page of ranked search results.
type SearchPage struct {
	Items      []SearchHit        `json:"items"`
	Pagination *models.Pagination `json:"pagination"`
	Signature  string             `json:"signature"`
	CacheHit   bool               `json:"-"`
}
