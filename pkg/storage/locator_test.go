package storage

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/examhub-api/pkg/config"
)

func TestParseRef(t *testing.T) {
	cases := []struct {
		raw  string
		want Ref
	}{
		{raw: "local:documents/a.pdf", want: Ref{Scheme: SchemeLocal, Key: "documents/a.pdf"}},
		{raw: "documents/a.pdf", want: Ref{Scheme: SchemeLocal, Key: "documents/a.pdf"}},
		{raw: "s3://exams/bac/2023.pdf", want: Ref{Scheme: SchemeS3, Bucket: "exams", Key: "bac/2023.pdf"}},
		{raw: "https://cdn.example.com/a.pdf", want: Ref{Scheme: SchemeHTTP, URL: "https://cdn.example.com/a.pdf"}},
	}
	for _, tc := range cases {
		got, err := ParseRef(tc.raw)
		require.NoError(t, err, tc.raw)
		assert.Equal(t, tc.want, got, tc.raw)
	}

	for _, raw := range []string{"", "local:", "s3://bucket", "s3:///key", "ftp://host/file"} {
		_, err := ParseRef(raw)
		assert.ErrorIs(t, err, ErrUnsupportedRef, raw)
	}
}

func TestLocatorResolveLocal(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	locator := NewLocator(nil, signer, nil, "http://localhost:8080/api/v1/files/")

	link, err := locator.Resolve(context.Background(), "doc-1", LocalRef("documents/a.pdf"))
	require.NoError(t, err)
	require.NotNil(t, link.ExpiresAt)
	require.True(t, strings.HasPrefix(link.URL, "http://localhost:8080/api/v1/files/"))

	token := strings.TrimPrefix(link.URL, "http://localhost:8080/api/v1/files/")
	documentID, key, err := signer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "doc-1", documentID)
	assert.Equal(t, "documents/a.pdf", key)
}

func TestLocatorResolveExternalAndMissingS3(t *testing.T) {
	locator := NewLocator(nil, nil, nil, "")

	link, err := locator.Resolve(context.Background(), "doc-1", "https://cdn.example.com/a.pdf")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/a.pdf", link.URL)
	assert.Nil(t, link.ExpiresAt)

	_, err = locator.Resolve(context.Background(), "doc-1", "s3://exams/a.pdf")
	assert.ErrorIs(t, err, ErrS3Disabled)

	_, err = locator.Resolve(context.Background(), "doc-1", "local:a.pdf")
	assert.ErrorIs(t, err, ErrUnsupportedRef)
}

func TestLocatorResolveS3(t *testing.T) {
	presigner, err := NewS3Presigner(context.Background(), config.S3Config{
		Enabled:    true,
		Bucket:     "exams",
		Region:     "us-east-1",
		Endpoint:   "http://localhost:9000",
		AccessKey:  "minio",
		SecretKey:  "minio-secret",
		PresignTTL: 5 * time.Minute,
	})
	require.NoError(t, err)

	locator := NewLocator(nil, nil, presigner, "")
	link, err := locator.Resolve(context.Background(), "doc-1", S3Ref("exams", "bac/2023.pdf"))
	require.NoError(t, err)

	u, err := url.Parse(link.URL)
	require.NoError(t, err)
	assert.Equal(t, "localhost:9000", u.Host)
	assert.Equal(t, "/exams/bac/2023.pdf", u.Path)
	assert.NotEmpty(t, u.Query().Get("X-Amz-Signature"))
	assert.Equal(t, "300", u.Query().Get("X-Amz-Expires"))
}

func TestLocatorRemoveLocal(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir(), 0)
	require.NoError(t, err)
	_, err = store.SaveStream("documents/a.pdf", strings.NewReader("x"))
	require.NoError(t, err)

	locator := NewLocator(store, nil, nil, "")
	require.NoError(t, locator.Remove(context.Background(), LocalRef("documents/a.pdf")))
	require.NoError(t, locator.Remove(context.Background(), "https://cdn.example.com/a.pdf"))

	_, err = store.Open("documents/a.pdf")
	assert.Error(t, err)
}

func TestNewS3PresignerDisabled(t *testing.T) {
	_, err := NewS3Presigner(context.Background(), config.S3Config{})
	assert.ErrorIs(t, err, ErrS3Disabled)
}
