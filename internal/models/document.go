package models

import (
	"strings"
	"time"
)

// DocumentStatus captures the moderation state of a catalog document.
type DocumentStatus string

const (
	DocumentStatusPending  DocumentStatus = "pending"
	DocumentStatusApproved DocumentStatus = "approved"
	DocumentStatusRejected DocumentStatus = "rejected"
)

// Valid reports whether the status is one of the stored states.
func (s DocumentStatus) Valid() bool {
	switch s {
	case DocumentStatusPending, DocumentStatusApproved, DocumentStatusRejected:
		return true
	}
	return false
}

// NormalizeStatus maps raw stored values onto a concrete status. Rows without a
// status predate moderation and count as approved.
func NormalizeStatus(raw string) DocumentStatus {
	status := DocumentStatus(strings.ToLower(strings.TrimSpace(raw)))
	if status == "" {
		return DocumentStatusApproved
	}
	return status
}

// Uploader identifies who submitted a document.
type Uploader struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Document is an uploaded exam paper together with its classification and counters.
type Document struct {
	ID              string         `json:"id"`
	Title           string         `json:"title"`
	Description     string         `json:"description"`
	Classe          string         `json:"classe"`
	Matiere         string         `json:"matiere"`
	LevelID         string         `json:"levelId"`
	FileName        string         `json:"fileName"`
	FileSize        float64        `json:"fileSize"`
	FileRef         string         `json:"fileRef,omitempty"`
	Downloads       int64          `json:"downloads"`
	Favorites       int64          `json:"favorites"`
	Uploader        Uploader       `json:"uploader"`
	UploadDate      time.Time      `json:"uploadDate"`
	SubmissionDate  time.Time      `json:"submissionDate"`
	ApprovedAt      *time.Time     `json:"approvedAt,omitempty"`
	RejectedAt      *time.Time     `json:"rejectedAt,omitempty"`
	RejectionReason *string        `json:"rejectionReason,omitempty"`
	Status          DocumentStatus `json:"status"`
	IsOfficial      bool           `json:"isOfficial"`
}

// Visible reports whether ordinary catalog readers may see the document.
func (d Document) Visible() bool {
	return d.Status == DocumentStatusApproved
}

// StatusChange carries the fields written alongside a moderation transition.
type StatusChange struct {
	Status          DocumentStatus `json:"status"`
	ApprovedAt      *time.Time     `json:"approvedAt,omitempty"`
	RejectedAt      *time.Time     `json:"rejectedAt,omitempty"`
	RejectionReason *string        `json:"rejectionReason,omitempty"`
}

// DocumentPredicate selects documents for AllWhere style queries.
type DocumentPredicate func(Document) bool

// WithStatus builds a predicate matching any of the provided statuses.
func WithStatus(statuses ...DocumentStatus) DocumentPredicate {
	return func(d Document) bool {
		for _, s := range statuses {
			if d.Status == s {
				return true
			}
		}
		return false
	}
}
