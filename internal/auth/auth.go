// Package auth hashes passwords and signs session values.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// ErrEmptyPassword is returned by HashPassword for an empty password.
var ErrEmptyPassword = errors.New("password is empty")

// HashPassword returns a bcrypt hash of password.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("generate bcrypt hash: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword checks password against a stored hash. Besides bcrypt it
// accepts the older unsalted sha256 hex digests and plain text rows.
func VerifyPassword(stored, password string) bool {
	if stored == "" {
		return false
	}
	if strings.HasPrefix(stored, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(legacyHash(password))) == 1 {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(password)) == 1
}

// NeedsRehash reports whether stored should be replaced by a bcrypt hash.
func NeedsRehash(stored string) bool {
	return !strings.HasPrefix(stored, "$2")
}

func legacyHash(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// Sessions signs and verifies session cookie values of the form
// base64(email|expiry).hex(hmac).
type Sessions struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSessions returns a signer. A ttl of zero means sessions never expire.
func NewSessions(secret string, ttl time.Duration) *Sessions {
	return &Sessions{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Sign returns the cookie value for email.
func (s *Sessions) Sign(email string) string {
	var expiry int64
	if s.ttl > 0 {
		expiry = s.now().Add(s.ttl).Unix()
	}
	payload := base64.RawURLEncoding.EncodeToString([]byte(email + "|" + strconv.FormatInt(expiry, 10)))
	return payload + "." + hex.EncodeToString(s.mac(payload))
}

// Verify returns the email stored in a valid, unexpired value.
func (s *Sessions) Verify(value string) (string, bool) {
	payload, signature, ok := strings.Cut(value, ".")
	if !ok {
		return "", false
	}

	provided, err := hex.DecodeString(signature)
	if err != nil {
		return "", false
	}
	if !hmac.Equal(provided, s.mac(payload)) {
		return "", false
	}

	decoded, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return "", false
	}
	email, rawExpiry, ok := strings.Cut(string(decoded), "|")
	if !ok || email == "" {
		return "", false
	}
	expiry, err := strconv.ParseInt(rawExpiry, 10, 64)
	if err != nil {
		return "", false
	}
	if expiry > 0 && s.now().Unix() > expiry {
		return "", false
	}

	return email, true
}

func (s *Sessions) mac(payload string) []byte {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(payload))
	return mac.Sum(nil)
}
