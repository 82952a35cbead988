package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/examhub-api/internal/models"
)

var documentRowColumns = []string{
	"id", "title", "description", "classe", "matiere", "level_id", "file_name", "file_size", "file_ref",
	"downloads", "favorites", "uploader_id", "uploader_name", "upload_date", "submission_date",
	"approved_at", "rejected_at", "rejection_reason", "status", "is_official",
}

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestDocumentRepositoryCreateForcesPending(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewDocumentRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO documents")).WillReturnResult(sqlmock.NewResult(1, 1))

	reason := "stale"
	doc := &models.Document{
		Title:           "BAC Maths 2023",
		Classe:          "Terminale",
		Matiere:         "Mathématiques",
		LevelID:         models.OfficialExamsLevelID,
		Status:          models.DocumentStatusApproved,
		Downloads:       40,
		Favorites:       3,
		RejectionReason: &reason,
	}
	require.NoError(t, repo.Create(context.Background(), doc))

	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, models.DocumentStatusPending, doc.Status)
	assert.Zero(t, doc.Downloads)
	assert.Zero(t, doc.Favorites)
	assert.Nil(t, doc.RejectionReason)
	assert.True(t, doc.IsOfficial)
	assert.False(t, doc.SubmissionDate.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryGetNormalizesLegacyStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewDocumentRepository(db)
	now := time.Now().UTC()
	rows := sqlmock.NewRows(documentRowColumns).
		AddRow("doc-1", "Sujet BEPC", "", "3ème", "Français", "examens-officiels", "bepc.pdf", 1.5, "local:documents/bepc.pdf",
			12, 2, "user-1", "Awa", now, now, nil, nil, nil, nil, true)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, title, description")).WithArgs("doc-1").WillReturnRows(rows)

	doc, err := repo.Get(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, models.DocumentStatusApproved, doc.Status)
	assert.Equal(t, models.Uploader{ID: "user-1", Name: "Awa"}, doc.Uploader)
	assert.EqualValues(t, 12, doc.Downloads)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, title, description")).WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(documentRowColumns))
	_, err = repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryListByStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewDocumentRepository(db)
	now := time.Now().UTC()
	rows := sqlmock.NewRows(documentRowColumns).
		AddRow("doc-2", "Probatoire SVT", "", "1ère", "SVT", "examens-officiels", "svt.pdf", 2.0, "",
			0, 0, "user-2", "Jean", now, now, nil, nil, nil, "pending", true)
	mock.ExpectQuery(`SELECT id, title, description.*WHERE COALESCE\(NULLIF\(LOWER\(status\), ''\), 'approved'\) IN \(\$1\)`).
		WithArgs("pending").
		WillReturnRows(rows)

	docs, err := repo.List(context.Background(), models.DocumentStatusPending)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, models.DocumentStatusPending, docs[0].Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositorySetStatusGuardsPending(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewDocumentRepository(db)
	now := time.Now().UTC()
	mock.ExpectExec(`UPDATE documents SET status = .* AND COALESCE.* = 'pending'`).WillReturnResult(sqlmock.NewResult(0, 1))
	err := repo.SetStatus(context.Background(), "doc-1", models.StatusChange{Status: models.DocumentStatusApproved, ApprovedAt: &now})
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE documents SET status")).WillReturnResult(sqlmock.NewResult(0, 0))
	err = repo.SetStatus(context.Background(), "doc-1", models.StatusChange{Status: models.DocumentStatusRejected, RejectedAt: &now})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryCounters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewDocumentRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE documents SET downloads = downloads + 1")).
		WithArgs("doc-1").
		WillReturnRows(sqlmock.NewRows([]string{"downloads"}).AddRow(41))
	downloads, err := repo.IncrementDownloads(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.EqualValues(t, 41, downloads)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE documents SET favorites = GREATEST(favorites + $2, 0)")).
		WithArgs("doc-1", int64(-1)).
		WillReturnRows(sqlmock.NewRows([]string{"favorites"}).AddRow(0))
	favorites, err := repo.AdjustFavorites(context.Background(), "doc-1", -1)
	require.NoError(t, err)
	assert.Zero(t, favorites)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE documents SET downloads")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"downloads"}))
	_, err = repo.IncrementDownloads(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE documents SET favorites = $2")).
		WithArgs("doc-1", int64(0)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.SetFavoriteCount(context.Background(), "doc-1", -4))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewDocumentRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM documents")).WithArgs("doc-1").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Delete(context.Background(), "doc-1"))

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM documents")).WithArgs("doc-1").WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.Delete(context.Background(), "doc-1"), sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
