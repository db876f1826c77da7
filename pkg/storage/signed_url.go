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
	// ErrTokenInvalid is returned for malformed or tampered download tokens.
	ErrTokenInvalid = errors.New("storage: invalid download token")
	// ErrTokenExpired is returned once a token's lifetime has passed.
	ErrTokenExpired = errors.New("storage: download token expired")
)

// DownloadToken is the metadata carried by a signed token.
type DownloadToken struct {
	BatchID   string
	Path      string
	ExpiresAt time.Time
}

// SignedURLSigner issues and checks HMAC-signed download tokens for stored
// batch archives. A token is "<batch>.<expiry>.<path>.<signature>".
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
	return &SignedURLSigner{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Generate returns a token granting access to path for the signer's TTL.
func (s *SignedURLSigner) Generate(batchID, path string) (string, time.Time, error) {
	if batchID == "" || path == "" {
		return "", time.Time{}, fmt.Errorf("batch id and path required")
	}
	if strings.Contains(batchID, ".") {
		return "", time.Time{}, fmt.Errorf("batch id must not contain '.'")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl).Truncate(time.Second)
	parts := []string{
		batchID,
		strconv.FormatInt(expiresAt.Unix(), 10),
		base64.RawURLEncoding.EncodeToString([]byte(path)),
	}
	parts = append(parts, s.sign(parts))
	return strings.Join(parts, "."), expiresAt, nil
}

// Parse validates token. When allowExpired is true the expiry check is
// skipped so cleanup can still read old tokens.
func (s *SignedURLSigner) Parse(token string, allowExpired bool) (DownloadToken, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 4 {
		return DownloadToken{}, ErrTokenInvalid
	}
	if !hmac.Equal([]byte(s.sign(parts[:3])), []byte(parts[3])) {
		return DownloadToken{}, ErrTokenInvalid
	}

	expUnix, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return DownloadToken{}, ErrTokenInvalid
	}
	path, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return DownloadToken{}, ErrTokenInvalid
	}

	parsed := DownloadToken{BatchID: parts[0], Path: string(path), ExpiresAt: time.Unix(expUnix, 0)}
	if !allowExpired && s.now().After(parsed.ExpiresAt) {
		return parsed, ErrTokenExpired
	}
	return parsed, nil
}

func (s *SignedURLSigner) sign(parts []string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(mac.Sum(nil))
}
