package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/examhub-api/internal/dto"
	"github.com/noah-isme/examhub-api/internal/models"
	"github.com/noah-isme/examhub-api/internal/repository"
	appErrors "github.com/noah-isme/examhub-api/pkg/errors"
	"github.com/noah-isme/examhub-api/pkg/storage"
)

var (
	moderatorIdentity = &models.Identity{ID: "admin-1", Name: "Admin", Email: "admin@examhub.test", CanModerate: true}
	memberIdentity    = &models.Identity{ID: "user-1", Name: "Awa", Email: "awa@examhub.test"}
)

func seedDocuments() []models.Document {
	base := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	return []models.Document{
		{ID: "doc-approved", Title: "Mathématiques Bac 2023", Classe: "Terminale", Matiere: "Mathématiques", LevelID: "lycee", FileRef: "local:documents/2023/bac.pdf", Status: models.DocumentStatusApproved, UploadDate: base, SubmissionDate: base, Downloads: 10, Favorites: 1},
		{ID: "doc-pending", Title: "SVT 3ème", Classe: "3ème", Matiere: "SVT", LevelID: "college", FileRef: "s3://exams/svt.pdf", Status: models.DocumentStatusPending, UploadDate: base.Add(time.Hour), SubmissionDate: base.Add(time.Hour)},
		{ID: "doc-rejected", Title: "Brouillon", Classe: "Seconde", Matiere: "Physique", LevelID: "lycee", Status: models.DocumentStatusRejected, UploadDate: base.Add(2 * time.Hour), SubmissionDate: base.Add(2 * time.Hour)},
		{ID: "doc-legacy", Title: "Anglais BEPC", Classe: "BEPC", Matiere: "Anglais", LevelID: models.OfficialExamsLevelID, Status: "", UploadDate: base.Add(3 * time.Hour), SubmissionDate: base.Add(3 * time.Hour), Downloads: 3},
	}
}

type linkResolverStub struct {
	link  *storage.Link
	err   error
	calls []string
}

func (s *linkResolverStub) Resolve(_ context.Context, documentID, raw string) (*storage.Link, error) {
	s.calls = append(s.calls, documentID+"|"+raw)
	return s.link, s.err
}

type uploadPresignerStub struct {
	key string
}

func (s *uploadPresignerStub) Bucket() string { return "exams" }

func (s *uploadPresignerStub) PresignPut(_ context.Context, key, _ string) (string, time.Time, error) {
	s.key = key
	return "https://s3.test/exams/" + key + "?sig=1", time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC), nil
}

func newDocumentServiceForTest(t *testing.T, opts ...DocumentServiceOption) (*DocumentService, *repository.MemoryDocumentRepository, *repository.MemoryAuditRepository) {
	t.Helper()
	repo := repository.NewMemoryDocumentRepository(seedDocuments()...)
	audits := repository.NewMemoryAuditRepository()
	taxonomy := NewTaxonomyService(nil, "", nil, nil)
	svc := NewDocumentService(repo, taxonomy, NewSideEffects(audits, nil, nil), nil, nil, nil, nil, opts...)
	return svc, repo, audits
}

func validCreateRequest() dto.CreateDocumentRequest {
	return dto.CreateDocumentRequest{
		Title:    "<b>Baccalauréat</b> Maths & Physique",
		Classe:   "Baccalauréat",
		Matiere:  "Mathématiques",
		LevelID:  models.OfficialExamsLevelID,
		FileName: "bac-2024.pdf",
		FileSize: 1.5,
		FileRef:  "s3://exams/bac-2024.pdf",
	}
}

func TestDocumentCreateStartsPending(t *testing.T) {
	svc, repo, audits := newDocumentServiceForTest(t)
	ctx := context.Background()

	doc, err := svc.Create(ctx, memberIdentity, validCreateRequest())
	require.NoError(t, err)
	assert.Equal(t, models.DocumentStatusPending, doc.Status)
	assert.Equal(t, "Baccalauréat Maths & Physique", doc.Title)
	assert.True(t, doc.IsOfficial)
	assert.Equal(t, models.Uploader{ID: "user-1", Name: "Awa"}, doc.Uploader)
	assert.Zero(t, doc.Downloads)

	stored, err := repo.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DocumentStatusPending, stored.Status)

	logs, err := audits.ListByResource(ctx, "document", doc.ID, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.AuditActionDocumentCreate, logs[0].Action)
}

func TestDocumentCreateValidation(t *testing.T) {
	svc, _, _ := newDocumentServiceForTest(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, nil, validCreateRequest())
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))

	req := validCreateRequest()
	req.LevelID = "maternelle"
	_, err = svc.Create(ctx, memberIdentity, req)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	req = validCreateRequest()
	req.Title = "<script>alert(1)</script>"
	_, err = svc.Create(ctx, memberIdentity, req)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	req = validCreateRequest()
	req.FileRef = "ftp://exams/file.pdf"
	_, err = svc.Create(ctx, memberIdentity, req)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestDocumentUploadStoresFile(t *testing.T) {
	local, err := storage.NewLocalStorage(t.TempDir(), 16)
	require.NoError(t, err)
	svc, repo, _ := newDocumentServiceForTest(t, WithUploads(local, []string{"application/pdf"}))
	ctx := context.Background()

	req := validCreateRequest()
	req.FileRef = ""
	doc, err := svc.Upload(ctx, memberIdentity, req, strings.NewReader("%PDF-1.4"), "application/pdf; charset=binary")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(doc.FileRef, "local:documents/"))
	assert.InDelta(t, 8.0/bytesPerMB, doc.FileSize, 1e-12)

	_, err = svc.Upload(ctx, memberIdentity, req, strings.NewReader("x"), "image/png")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.Upload(ctx, memberIdentity, req, strings.NewReader(strings.Repeat("x", 64)), "application/pdf")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	pending, err := repo.List(ctx, models.DocumentStatusPending)
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}

func TestDocumentUploadURL(t *testing.T) {
	presigner := &uploadPresignerStub{}
	svc, _, _ := newDocumentServiceForTest(t, WithPresignedUploads(presigner))

	res, err := svc.UploadURL(context.Background(), memberIdentity, dto.UploadURLRequest{FileName: "sujet bac.pdf"})
	require.NoError(t, err)
	assert.Equal(t, "s3://exams/"+presigner.key, res.FileRef)
	assert.Contains(t, res.UploadURL, presigner.key)

	disabled, _, _ := newDocumentServiceForTest(t)
	_, err = disabled.UploadURL(context.Background(), memberIdentity, dto.UploadURLRequest{FileName: "a.pdf"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestDocumentGetHidesUnapproved(t *testing.T) {
	svc, _, _ := newDocumentServiceForTest(t)
	ctx := context.Background()

	_, err := svc.Get(ctx, memberIdentity, "doc-pending")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
	_, err = svc.Get(ctx, nil, "doc-rejected")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	doc, err := svc.Get(ctx, moderatorIdentity, "doc-pending")
	require.NoError(t, err)
	assert.Equal(t, models.DocumentStatusPending, doc.Status)

	legacy, err := svc.Get(ctx, nil, "doc-legacy")
	require.NoError(t, err)
	assert.Equal(t, models.DocumentStatusApproved, legacy.Status)

	_, err = svc.Get(ctx, nil, "missing")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestDocumentAllWhere(t *testing.T) {
	svc, _, _ := newDocumentServiceForTest(t)

	docs, err := svc.AllWhere(context.Background(), models.WithStatus(models.DocumentStatusApproved))
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "doc-approved", docs[0].ID)
	assert.Equal(t, "doc-legacy", docs[1].ID)

	all, err := svc.AllWhere(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestDocumentRecordDownload(t *testing.T) {
	expires := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	links := &linkResolverStub{link: &storage.Link{URL: "https://files.test/abc", ExpiresAt: &expires}}
	svc, repo, _ := newDocumentServiceForTest(t, WithFileLinks(links, nil))
	ctx := context.Background()

	res, err := svc.RecordDownload(ctx, nil, "doc-approved")
	require.NoError(t, err)
	assert.EqualValues(t, 11, res.Document.Downloads)
	assert.Equal(t, "https://files.test/abc", res.URL)
	assert.Equal(t, []string{"doc-approved|local:documents/2023/bac.pdf"}, links.calls)

	_, err = svc.RecordDownload(ctx, memberIdentity, "doc-pending")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
	pending, _ := repo.Get(ctx, "doc-pending")
	assert.Zero(t, pending.Downloads)

	links.err = errors.New("presign failed")
	_, err = svc.RecordDownload(ctx, nil, "doc-approved")
	require.Error(t, err)
	stored, _ := repo.Get(ctx, "doc-approved")
	assert.EqualValues(t, 11, stored.Downloads)
}

func TestDocumentOpenFile(t *testing.T) {
	local, err := storage.NewLocalStorage(t.TempDir(), 0)
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Minute)
	svc, _, _ := newDocumentServiceForTest(t, WithUploads(local, nil), WithFileLinks(nil, signer))
	ctx := context.Background()

	token, _, err := signer.Sign("doc-approved", "documents/2023/bac.pdf")
	require.NoError(t, err)
	path, doc, err := svc.OpenFile(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "doc-approved", doc.ID)
	assert.True(t, strings.HasSuffix(path, "bac.pdf"))

	forged, _, err := signer.Sign("doc-approved", "documents/other.pdf")
	require.NoError(t, err)
	_, _, err = svc.OpenFile(ctx, forged)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, _, err = svc.OpenFile(ctx, "garbage")
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
}
