// SPDX-License-Identifier: MIT

// Package sdkauth generates the credential bundle the external recorder uses
// to authenticate against the meeting provider: a signed SDK token plus an
// independent HMAC signature.
package sdkauth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/voicepick/recorderd/internal/log"
)

// ErrCredentialsUnavailable signals that the process-wide SDK secret pair is
// unset. Callers must treat this as recoverable and proceed without
// credentials (the recorder falls back to simulation mode).
var ErrCredentialsUnavailable = errors.New("meeting SDK credentials not configured")

// Token lifetime is fixed. The SDK requires a minimum of 1800 seconds.
const tokenTTL = 2 * time.Hour

// clockSkew backdates the issued-at claim to tolerate provider clock drift.
const clockSkew = 30 * time.Second

// Generator produces tokens and signatures from a shared secret pair. The
// pair is loaded once at startup and read-only thereafter.
type Generator struct {
	key    string
	secret string

	// now is swappable for tests.
	now func() time.Time
}

// New returns a Generator for the given SDK key/secret pair. Either may be
// empty; generation then fails with ErrCredentialsUnavailable.
func New(key, secret string) *Generator {
	return &Generator{key: key, secret: secret, now: time.Now}
}

// Signature is the HMAC-based authentication artifact, for recorders that
// authenticate via signature rather than token.
type Signature struct {
	Signature     string `json:"signature"`
	Timestamp     int64  `json:"timestamp"`
	AppKey        string `json:"appKey"`
	MeetingNumber string `json:"meetingNumber"`
	Role          int    `json:"role"`
}

// AuthConfig is the credential bundle written into the recorder
// configuration. Sensitive; log only lengths and prefixes.
type AuthConfig struct {
	JWT           string    `json:"jwt"`
	Signature     Signature `json:"signature"`
	MeetingNumber string    `json:"meetingNumber"`
	Password      string    `json:"password"`
	UserName      string    `json:"userName"`
	SDKKey        string    `json:"sdkKey"`
	Timestamp     int64     `json:"timestamp"`
}

// ValidationResult reports the outcome of token validation. Valid is false
// for expired, mis-signed or malformed tokens.
type ValidationResult struct {
	Valid  bool          `json:"valid"`
	Claims jwt.MapClaims `json:"decoded,omitempty"`
	Error  string        `json:"error,omitempty"`
}

// GenerateToken builds a signed SDK token for the given meeting number and
// role. Issued-at is backdated by the clock-skew allowance; expiry is fixed
// at two hours.
func (g *Generator) GenerateToken(meetingNumber string, role int) (string, error) {
	if g.key == "" || g.secret == "" {
		return "", ErrCredentialsUnavailable
	}

	iat := g.now().Add(-clockSkew).Unix()
	exp := iat + int64(tokenTTL.Seconds())

	claims := jwt.MapClaims{
		"iss":      g.key,
		"appKey":   g.key,
		"iat":      iat,
		"exp":      exp,
		"tokenExp": exp,
		"alg":      "HS256",
	}
	if meetingNumber != "" {
		claims["mn"] = meetingNumber
		claims["role"] = role
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(g.secret))
	if err != nil {
		return "", fmt.Errorf("sign SDK token: %w", err)
	}

	logger := log.WithComponent("sdkauth")
	logger.Debug().
		Str(log.FieldMeeting, meetingNumber).
		Int("role", role).
		Int("token_length", len(token)).
		Msg("generated SDK token")

	return token, nil
}

// ValidateToken checks a token against the shared secret. It never returns
// an error to the caller; invalid tokens yield Valid=false with a reason.
func (g *Generator) ValidateToken(token string) ValidationResult {
	if g.secret == "" {
		return ValidationResult{Valid: false, Error: ErrCredentialsUnavailable.Error()}
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Header["alg"])
		}
		return []byte(g.secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return ValidationResult{Valid: false, Error: err.Error()}
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return ValidationResult{Valid: false, Error: "unexpected claims type"}
	}
	return ValidationResult{Valid: true, Claims: claims}
}

// GenerateSignature builds the HMAC signature artifact with its own
// millisecond timestamp.
func (g *Generator) GenerateSignature(meetingNumber string, role int) (Signature, error) {
	if g.key == "" || g.secret == "" {
		return Signature{}, ErrCredentialsUnavailable
	}

	ts := g.now().UnixMilli()
	msg := base64.StdEncoding.EncodeToString(
		[]byte(fmt.Sprintf("%s%s%d%d", g.key, meetingNumber, ts, role)))

	mac := hmac.New(sha256.New, []byte(g.secret))
	mac.Write([]byte(msg))

	return Signature{
		Signature:     base64.StdEncoding.EncodeToString(mac.Sum(nil)),
		Timestamp:     ts,
		AppKey:        g.key,
		MeetingNumber: meetingNumber,
		Role:          role,
	}, nil
}

// GenerateAuthConfig composes token and signature into the credential bundle
// handed to the recorder. Role is always participant (0) for recording bots.
func (g *Generator) GenerateAuthConfig(meetingNumber, password, userName string) (AuthConfig, error) {
	token, err := g.GenerateToken(meetingNumber, 0)
	if err != nil {
		return AuthConfig{}, err
	}
	sig, err := g.GenerateSignature(meetingNumber, 0)
	if err != nil {
		return AuthConfig{}, err
	}

	return AuthConfig{
		JWT:           token,
		Signature:     sig,
		MeetingNumber: meetingNumber,
		Password:      password,
		UserName:      userName,
		SDKKey:        g.key,
		Timestamp:     g.now().UnixMilli(),
	}, nil
}

// MaskSecret renders a secret as an 8-character prefix for diagnostics.
func MaskSecret(s string) string {
	if s == "" {
		return "NOT_SET"
	}
	if len(s) <= 8 {
		return s[:1] + "..."
	}
	return s[:8] + "..."
}
