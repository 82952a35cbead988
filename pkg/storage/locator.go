package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Reference schemes understood by the locator.
const (
	SchemeLocal = "local"
	SchemeS3    = "s3"
	SchemeHTTP  = "http"
)

// ErrUnsupportedRef is returned for references the locator cannot serve.
var ErrUnsupportedRef = errors.New("unsupported file reference")

// Ref is a parsed document file reference.
type Ref struct {
	Scheme string
	Bucket string
	Key    string
	URL    string
}

// LocalRef formats a reference to a file kept in LocalStorage.
func LocalRef(key string) string {
	return SchemeLocal + ":" + key
}

// S3Ref formats a reference to an object in a bucket.
func S3Ref(bucket, key string) string {
	return "s3://" + bucket + "/" + key
}

// ParseRef splits a stored fileRef. A bare value is treated as a local key.
func ParseRef(raw string) (Ref, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Ref{}, ErrUnsupportedRef
	}

	switch {
	case strings.HasPrefix(raw, SchemeLocal+":"):
		key := strings.TrimPrefix(strings.TrimPrefix(raw, SchemeLocal+":"), "/")
		if key == "" {
			return Ref{}, ErrUnsupportedRef
		}
		return Ref{Scheme: SchemeLocal, Key: key}, nil
	case strings.HasPrefix(raw, "s3://"):
		rest := strings.TrimPrefix(raw, "s3://")
		bucket, key, ok := strings.Cut(rest, "/")
		if !ok || bucket == "" || key == "" {
			return Ref{}, ErrUnsupportedRef
		}
		return Ref{Scheme: SchemeS3, Bucket: bucket, Key: key}, nil
	case strings.HasPrefix(raw, "http://"), strings.HasPrefix(raw, "https://"):
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			return Ref{}, ErrUnsupportedRef
		}
		return Ref{Scheme: SchemeHTTP, URL: u.String()}, nil
	case strings.Contains(raw, "://"):
		return Ref{}, ErrUnsupportedRef
	default:
		return Ref{Scheme: SchemeLocal, Key: strings.TrimPrefix(raw, "/")}, nil
	}
}

// Link is a resolved download location.
type Link struct {
	URL       string     `json:"url"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

type objectPresigner interface {
	PresignGet(ctx context.Context, bucket, key string) (string, time.Time, error)
	Delete(ctx context.Context, bucket, key string) error
}

// Locator turns stored file references into downloadable links and removes stored files.
type Locator struct {
	local    *LocalStorage
	signer   *SignedURLSigner
	s3       objectPresigner
	filesURL string
}

// NewLocator wires the available backends. filesURL is the public prefix of the signed file route.
// A nil S3 presigner makes s3:// refs unresolvable.
func NewLocator(local *LocalStorage, signer *SignedURLSigner, presigner *S3Presigner, filesURL string) *Locator {
	l := &Locator{local: local, signer: signer, filesURL: strings.TrimRight(filesURL, "/")}
	if presigner != nil {
		l.s3 = presigner
	}
	return l
}

// Resolve produces a link for the document's file reference.
func (l *Locator) Resolve(ctx context.Context, documentID, raw string) (*Link, error) {
	ref, err := ParseRef(raw)
	if err != nil {
		return nil, err
	}

	switch ref.Scheme {
	case SchemeHTTP:
		return &Link{URL: ref.URL}, nil
	case SchemeS3:
		if l.s3 == nil {
			return nil, ErrS3Disabled
		}
		signed, expiresAt, err := l.s3.PresignGet(ctx, ref.Bucket, ref.Key)
		if err != nil {
			return nil, err
		}
		return &Link{URL: signed, ExpiresAt: &expiresAt}, nil
	default:
		if l.signer == nil {
			return nil, fmt.Errorf("%w: local signing disabled", ErrUnsupportedRef)
		}
		token, expiresAt, err := l.signer.Sign(documentID, ref.Key)
		if err != nil {
			return nil, err
		}
		return &Link{URL: l.filesURL + "/" + token, ExpiresAt: &expiresAt}, nil
	}
}

// Remove deletes the stored file behind a reference. External URLs are left alone.
func (l *Locator) Remove(ctx context.Context, raw string) error {
	ref, err := ParseRef(raw)
	if err != nil {
		return err
	}
	switch ref.Scheme {
	case SchemeLocal:
		if l.local == nil {
			return nil
		}
		return l.local.Delete(ref.Key)
	case SchemeS3:
		if l.s3 == nil {
			return ErrS3Disabled
		}
		return l.s3.Delete(ctx, ref.Bucket, ref.Key)
	default:
		return nil
	}
}
