package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/examhub-api/internal/models"
)

const documentColumns = `id, title, description, classe, matiere, level_id, file_name, file_size, file_ref,
       downloads, favorites, uploader_id, uploader_name, upload_date, submission_date,
       approved_at, rejected_at, rejection_reason, status, is_official`

// stored status with legacy NULL rows folded onto approved
const statusExpr = "COALESCE(NULLIF(LOWER(status), ''), 'approved')"

type documentRow struct {
	ID              string         `db:"id"`
	Title           string         `db:"title"`
	Description     string         `db:"description"`
	Classe          string         `db:"classe"`
	Matiere         string         `db:"matiere"`
	LevelID         string         `db:"level_id"`
	FileName        string         `db:"file_name"`
	FileSize        float64        `db:"file_size"`
	FileRef         string         `db:"file_ref"`
	Downloads       int64          `db:"downloads"`
	Favorites       int64          `db:"favorites"`
	UploaderID      string         `db:"uploader_id"`
	UploaderName    string         `db:"uploader_name"`
	UploadDate      time.Time      `db:"upload_date"`
	SubmissionDate  time.Time      `db:"submission_date"`
	ApprovedAt      *time.Time     `db:"approved_at"`
	RejectedAt      *time.Time     `db:"rejected_at"`
	RejectionReason *string        `db:"rejection_reason"`
	Status          sql.NullString `db:"status"`
	IsOfficial      bool           `db:"is_official"`
}

func (r documentRow) toModel() models.Document {
	return models.Document{
		ID:              r.ID,
		Title:           r.Title,
		Description:     r.Description,
		Classe:          r.Classe,
		Matiere:         r.Matiere,
		LevelID:         r.LevelID,
		FileName:        r.FileName,
		FileSize:        r.FileSize,
		FileRef:         r.FileRef,
		Downloads:       r.Downloads,
		Favorites:       r.Favorites,
		Uploader:        models.Uploader{ID: r.UploaderID, Name: r.UploaderName},
		UploadDate:      r.UploadDate,
		SubmissionDate:  r.SubmissionDate,
		ApprovedAt:      r.ApprovedAt,
		RejectedAt:      r.RejectedAt,
		RejectionReason: r.RejectionReason,
		Status:          models.NormalizeStatus(r.Status.String),
		IsOfficial:      r.IsOfficial,
	}
}

func rowFromModel(doc *models.Document) documentRow {
	return documentRow{
		ID:              doc.ID,
		Title:           doc.Title,
		Description:     doc.Description,
		Classe:          doc.Classe,
		Matiere:         doc.Matiere,
		LevelID:         doc.LevelID,
		FileName:        doc.FileName,
		FileSize:        doc.FileSize,
		FileRef:         doc.FileRef,
		Downloads:       doc.Downloads,
		Favorites:       doc.Favorites,
		UploaderID:      doc.Uploader.ID,
		UploaderName:    doc.Uploader.Name,
		UploadDate:      doc.UploadDate,
		SubmissionDate:  doc.SubmissionDate,
		ApprovedAt:      doc.ApprovedAt,
		RejectedAt:      doc.RejectedAt,
		RejectionReason: doc.RejectionReason,
		Status:          sql.NullString{String: string(doc.Status), Valid: doc.Status != ""},
		IsOfficial:      doc.IsOfficial,
	}
}

// DocumentRepository persists catalog documents in PostgreSQL.
type DocumentRepository struct {
	db *sqlx.DB
}

// NewDocumentRepository constructs the repository.
func NewDocumentRepository(db *sqlx.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// prepareNewDocument applies creation defaults shared by every store: new
// documents always start pending with zeroed counters.
func prepareNewDocument(doc *models.Document, now time.Time) {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	doc.Status = models.DocumentStatusPending
	doc.Downloads = 0
	doc.Favorites = 0
	doc.SubmissionDate = now
	if doc.UploadDate.IsZero() {
		doc.UploadDate = now
	}
	doc.ApprovedAt = nil
	doc.RejectedAt = nil
	doc.RejectionReason = nil
	doc.IsOfficial = doc.LevelID == models.OfficialExamsLevelID
}

// Create inserts a new pending document.
func (r *DocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	prepareNewDocument(doc, time.Now().UTC())
	const query = `INSERT INTO documents
	(id, title, description, classe, matiere, level_id, file_name, file_size, file_ref, downloads, favorites,
	 uploader_id, uploader_name, upload_date, submission_date, approved_at, rejected_at, rejection_reason, status, is_official)
	VALUES (:id, :title, :description, :classe, :matiere, :level_id, :file_name, :file_size, :file_ref, :downloads, :favorites,
	 :uploader_id, :uploader_name, :upload_date, :submission_date, :approved_at, :rejected_at, :rejection_reason, :status, :is_official)`
	if _, err := r.db.NamedExecContext(ctx, query, rowFromModel(doc)); err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

// Get fetches a document by identifier. Missing rows surface as sql.ErrNoRows.
func (r *DocumentRepository) Get(ctx context.Context, id string) (*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	var row documentRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, err
	}
	doc := row.toModel()
	return &doc, nil
}

// List returns documents in insertion order, optionally restricted to statuses.
func (r *DocumentRepository) List(ctx context.Context, statuses ...models.DocumentStatus) ([]models.Document, error) {
	builder := strings.Builder{}
	builder.WriteString(`SELECT ` + documentColumns + ` FROM documents`)
	args := make([]interface{}, 0, len(statuses))
	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, status := range statuses {
			args = append(args, string(status))
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		builder.WriteString(fmt.Sprintf(" WHERE %s IN (%s)", statusExpr, strings.Join(placeholders, ",")))
	}
	builder.WriteString(" ORDER BY submission_date ASC, id ASC")

	var rows []documentRow
	if err := r.db.SelectContext(ctx, &rows, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	docs := make([]models.Document, len(rows))
	for i, row := range rows {
		docs[i] = row.toModel()
	}
	return docs, nil
}

// SetStatus writes a moderation outcome only while the document is still pending.
// sql.ErrNoRows is returned when the id is unknown or the document already left pending.
func (r *DocumentRepository) SetStatus(ctx context.Context, id string, change models.StatusChange) error {
	query := `UPDATE documents SET status = :status, approved_at = :approved_at, rejected_at = :rejected_at,
	rejection_reason = :rejection_reason WHERE id = :id AND ` + statusExpr + ` = 'pending'`
	result, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"id":               id,
		"status":           string(change.Status),
		"approved_at":      change.ApprovedAt,
		"rejected_at":      change.RejectedAt,
		"rejection_reason": change.RejectionReason,
	})
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	return requireAffected(result, "document status")
}

// IncrementDownloads atomically bumps the download counter and returns the new value.
func (r *DocumentRepository) IncrementDownloads(ctx context.Context, id string) (int64, error) {
	const query = `UPDATE documents SET downloads = downloads + 1 WHERE id = $1 RETURNING downloads`
	var downloads int64
	if err := r.db.QueryRowxContext(ctx, query, id).Scan(&downloads); err != nil {
		if err == sql.ErrNoRows {
			return 0, err
		}
		return 0, fmt.Errorf("increment downloads: %w", err)
	}
	return downloads, nil
}

// AdjustFavorites applies delta to the favorite counter, flooring at zero.
func (r *DocumentRepository) AdjustFavorites(ctx context.Context, id string, delta int64) (int64, error) {
	const query = `UPDATE documents SET favorites = GREATEST(favorites + $2, 0) WHERE id = $1 RETURNING favorites`
	var favorites int64
	if err := r.db.QueryRowxContext(ctx, query, id, delta).Scan(&favorites); err != nil {
		if err == sql.ErrNoRows {
			return 0, err
		}
		return 0, fmt.Errorf("adjust favorites: %w", err)
	}
	return favorites, nil
}

// SetFavoriteCount overwrites the favorite counter.
func (r *DocumentRepository) SetFavoriteCount(ctx context.Context, id string, count int64) error {
	if count < 0 {
		count = 0
	}
	const query = `UPDATE documents SET favorites = $2 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, count)
	if err != nil {
		return fmt.Errorf("set favorite count: %w", err)
	}
	return requireAffected(result, "favorite count")
}

// Delete removes the document row. Favorites cascade at the database level.
func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM documents WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return requireAffected(result, "document delete")
}

func requireAffected(result sql.Result, what string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check %s rows: %w", what, err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
