package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrTokenInvalid covers malformed tokens and bad signatures.
	ErrTokenInvalid = errors.New("invalid download token")
	// ErrTokenExpired is returned once the token's deadline has passed.
	ErrTokenExpired = errors.New("download token expired")
)

// SignedURLSigner issues and verifies short-lived download tokens for locally stored files.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSignedURLSigner constructs a signer with the provided secret and TTL.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &SignedURLSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Sign returns a token granting access to key for documentID until the returned deadline.
func (s *SignedURLSigner) Sign(documentID, key string) (string, time.Time, error) {
	if documentID == "" || key == "" {
		return "", time.Time{}, fmt.Errorf("document id and key required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl).Truncate(time.Second)
	encodedKey := base64.RawURLEncoding.EncodeToString([]byte(key))
	exp := strconv.FormatInt(expiresAt.Unix(), 10)
	sig := s.mac(documentID, exp, encodedKey)
	return strings.Join([]string{documentID, exp, encodedKey, sig}, "."), expiresAt, nil
}

// Verify checks the token signature and deadline and returns what it grants.
func (s *SignedURLSigner) Verify(token string) (documentID, key string, err error) {
	parts := strings.Split(token, ".")
	if len(parts) != 4 {
		return "", "", ErrTokenInvalid
	}
	documentID, exp, encodedKey, sig := parts[0], parts[1], parts[2], parts[3]

	if !hmac.Equal([]byte(s.mac(documentID, exp, encodedKey)), []byte(sig)) {
		return "", "", ErrTokenInvalid
	}
	expUnix, err := strconv.ParseInt(exp, 10, 64)
	if err != nil {
		return "", "", ErrTokenInvalid
	}
	rawKey, err := base64.RawURLEncoding.DecodeString(encodedKey)
	if err != nil {
		return "", "", ErrTokenInvalid
	}
	if s.now().After(time.Unix(expUnix, 0)) {
		return "", "", ErrTokenExpired
	}
	return documentID, string(rawKey), nil
}

func (s *SignedURLSigner) mac(documentID, exp, encodedKey string) string {
	h := hmac.New(sha256.New, s.secret)
	_, _ = h.Write([]byte(documentID + "|" + exp + "|" + encodedKey))
	return hex.EncodeToString(h.Sum(nil))
}
