package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ObjectSigner issues and verifies capability tokens for single storage objects.
// A token grants read access to exactly one bucket/path pair until it expires.
type ObjectSigner struct {
	secret string
	now    func() time.Time
}

// NewObjectSigner creates a new object signer
func NewObjectSigner(secret string) *ObjectSigner {
	return &ObjectSigner{secret: secret, now: time.Now}
}

// Sign returns a token valid for ttl granting read access to bucket/path
func (s *ObjectSigner) Sign(bucket, path string, ttl time.Duration) (string, time.Time, error) {
	if ttl <= 0 {
		return "", time.Time{}, fmt.Errorf("ttl must be positive")
	}

	now := s.now()
	expiresAt := now.Add(ttl)
	claims := jwt.MapClaims{
		"bucket": bucket,
		"path":   path,
		"exp":    expiresAt.Unix(),
		"iat":    now.Unix(),
		"type":   "object",
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign object token: %w", err)
	}
	return token, expiresAt, nil
}

// Verify checks that token is valid and was issued for bucket/path
func (s *ObjectSigner) Verify(token, bucket, path string) error {
	claims, err := parseHMAC(s.secret, token, "object")
	if err != nil {
		return err
	}

	b, _ := claims["bucket"].(string)
	p, _ := claims["path"].(string)
	if b != bucket || p != path {
		return fmt.Errorf("token does not grant access to %s/%s", bucket, path)
	}
	return nil
}
