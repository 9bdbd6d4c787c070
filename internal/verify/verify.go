// Package verify authenticates inbound platform webhooks.
package verify

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ziadkadry99/botkit/internal/accounts"
)

// DefaultLeeway tolerates clock skew between the platform and the bot.
const DefaultLeeway = time.Second

// UnverifiedRequestError rejects a webhook whose authorization is missing or invalid.
type UnverifiedRequestError struct {
	Reason string
	Err    error
}

func (e *UnverifiedRequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unverified request: %s: %v", e.Reason, e.Err)
	}
	return "unverified request: " + e.Reason
}

func (e *UnverifiedRequestError) Unwrap() error { return e.Err }

// RequestHeadersNotProvidedError is returned when verification is requested
// but the transport passed no headers at all.
type RequestHeadersNotProvidedError struct{}

func (e *RequestHeadersNotProvidedError) Error() string {
	return "request headers are required for verification"
}

// Verifier checks bearer tokens signed with a registered bot's secret key.
type Verifier struct {
	registry *accounts.Registry
	leeway   time.Duration
	now      func() time.Time
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithLeeway overrides DefaultLeeway.
func WithLeeway(d time.Duration) Option {
	return func(v *Verifier) { v.leeway = d }
}

// WithClock replaces time.Now for exp/nbf/iat checks.
func WithClock(now func() time.Time) Option {
	return func(v *Verifier) { v.now = now }
}

// New creates a verifier backed by the account registry.
func New(registry *accounts.Registry, opts ...Option) *Verifier {
	v := &Verifier{registry: registry, leeway: DefaultLeeway, now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify validates the Authorization header and returns the bot id named in
// the token audience.
func (v *Verifier) Verify(header http.Header) (uuid.UUID, error) {
	if header == nil {
		return uuid.Nil, &RequestHeadersNotProvidedError{}
	}

	raw, err := bearerToken(header)
	if err != nil {
		return uuid.Nil, err
	}

	unverified := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, unverified); err != nil {
		return uuid.Nil, &UnverifiedRequestError{Reason: "undecodable token", Err: err}
	}

	botID, err := audienceBotID(unverified)
	if err != nil {
		return uuid.Nil, err
	}

	acc, err := v.registry.Account(botID)
	if err != nil {
		return uuid.Nil, &UnverifiedRequestError{Reason: "unknown audience", Err: err}
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(acc.Host),
		jwt.WithLeeway(v.leeway),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(v.now),
	)
	_, err = parser.ParseWithClaims(raw, jwt.MapClaims{}, func(*jwt.Token) (any, error) {
		return []byte(acc.SecretKey), nil
	})
	if err != nil {
		return uuid.Nil, &UnverifiedRequestError{Reason: failureReason(err), Err: err}
	}

	return botID, nil
}

func bearerToken(header http.Header) (string, error) {
	auth := strings.TrimSpace(header.Get("Authorization"))
	if auth == "" {
		return "", &UnverifiedRequestError{Reason: "missing authorization header"}
	}
	scheme, token, ok := strings.Cut(auth, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", &UnverifiedRequestError{Reason: "authorization header is not a bearer token"}
	}
	return strings.TrimSpace(token), nil
}

// audienceBotID requires aud to be a JSON list holding exactly one bot id.
func audienceBotID(claims jwt.MapClaims) (uuid.UUID, error) {
	rawAud, ok := claims["aud"]
	if !ok {
		return uuid.Nil, &UnverifiedRequestError{Reason: "audience is missing"}
	}
	list, ok := rawAud.([]any)
	if !ok {
		return uuid.Nil, &UnverifiedRequestError{Reason: "audience is not a list"}
	}
	if len(list) != 1 {
		return uuid.Nil, &UnverifiedRequestError{Reason: fmt.Sprintf("audience has %d entries, want 1", len(list))}
	}
	s, ok := list[0].(string)
	if !ok {
		return uuid.Nil, &UnverifiedRequestError{Reason: "audience is not a string"}
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, &UnverifiedRequestError{Reason: "audience is not a bot id", Err: err}
	}
	return id, nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "invalid signature"
	case errors.Is(err, jwt.ErrTokenExpired):
		return "token expired"
	case errors.Is(err, jwt.ErrTokenNotValidYet), errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return "token not yet valid"
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return "invalid issuer"
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "undecodable token"
	default:
		return "invalid token"
	}
}
