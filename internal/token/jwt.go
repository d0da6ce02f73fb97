package token

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dtroode/coursemarket-auth/internal/model"
)

// Numeric dates carry microsecond-aligned instants, the precision of a
// Postgres timestamptz, written with nanosecond digits. Decoding goes through
// float64, which is off by a fraction of a microsecond at current epochs, so
// toModel rounds back to the nearest microsecond. This keeps iat exact enough
// to order access tokens against a user's revocation instant.
func init() {
	jwt.TimePrecision = time.Nanosecond
}

// atMicros rounds a decoded numeric date to the microsecond it was issued with.
func atMicros(d *jwt.NumericDate) time.Time {
	return d.Time.Add(500 * time.Nanosecond).Truncate(time.Microsecond)
}

// Claims represents access token JWT claims.
type Claims struct {
	jwt.RegisteredClaims
	UserID uuid.UUID `json:"user_id"`
	Roles  []string  `json:"roles,omitempty"`
}

// JWT implements model.TokenCodec backed by symmetric HMAC.
type JWT struct {
	secretKey []byte
	issuer    string
	audience  string
	now       func() time.Time
}

var _ model.TokenCodec = (*JWT)(nil)

// Option configures a JWT codec.
type Option func(*JWT)

// WithClock overrides the time source used for issuing and validating tokens.
func WithClock(now func() time.Time) Option {
	return func(j *JWT) {
		j.now = now
	}
}

// NewJWT creates a new JWT codec bound to the given key, issuer and audience.
func NewJWT(secretKey, issuer, audience string, opts ...Option) *JWT {
	j := &JWT{
		secretKey: []byte(secretKey),
		issuer:    issuer,
		audience:  audience,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Issue signs claims into an access token valid for ttl from claims.IssuedAt.
// A zero IssuedAt is replaced with the current time and an empty TokenID with a random one.
func (j *JWT) Issue(claims model.Claims, ttl time.Duration) (string, error) {
	if claims.UserID == uuid.Nil {
		return "", fmt.Errorf("failed to sign access token: empty user id")
	}

	issuedAt := claims.IssuedAt
	if issuedAt.IsZero() {
		issuedAt = j.now()
	}
	issuedAt = issuedAt.Truncate(time.Microsecond)
	tokenID := claims.TokenID
	if tokenID == "" {
		tokenID = uuid.NewString()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID,
			Issuer:    j.issuer,
			Subject:   claims.UserID.String(),
			Audience:  jwt.ClaimStrings{j.audience},
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl).Truncate(time.Microsecond)),
		},
		UserID: claims.UserID,
		Roles:  claims.Roles,
	})

	tokenString, err := token.SignedString(j.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}

	return tokenString, nil
}

// Parse verifies issuer, audience, expiry and signature in that order and
// returns the first mismatch.
func (j *JWT) Parse(tokenString string) (model.Claims, error) {
	claims, err := j.decode(tokenString)
	if err != nil {
		return model.Claims{}, err
	}

	if claims.Issuer != j.issuer {
		return model.Claims{}, model.ErrWrongIssuer
	}
	if !slices.Contains(claims.Audience, j.audience) {
		return model.Claims{}, model.ErrWrongAudience
	}
	if claims.ExpiresAt == nil || !j.now().Before(atMicros(claims.ExpiresAt)) {
		return model.Claims{}, model.ErrTokenExpired
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(j.issuer),
		jwt.WithAudience(j.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	)
	_, err = parser.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("wrong signing method %v", t.Header["alg"])
		}
		return j.secretKey, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return model.Claims{}, model.ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenMalformed):
			return model.Claims{}, model.ErrMalformedToken
		default:
			return model.Claims{}, fmt.Errorf("%w: %v", model.ErrInvalidSignature, err)
		}
	}

	return claims.toModel(), nil
}

// ParseUnverified decodes claims without checking signature, issuer, audience or expiry.
func (j *JWT) ParseUnverified(tokenString string) (model.Claims, error) {
	claims, err := j.decode(tokenString)
	if err != nil {
		return model.Claims{}, err
	}
	return claims.toModel(), nil
}

func (j *JWT) decode(tokenString string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrMalformedToken, err)
	}
	if claims.UserID == uuid.Nil || claims.IssuedAt == nil {
		return nil, fmt.Errorf("%w: missing user id or issued-at", model.ErrMalformedToken)
	}
	return claims, nil
}

func (c *Claims) toModel() model.Claims {
	out := model.Claims{
		UserID:   c.UserID,
		Roles:    c.Roles,
		IssuedAt: atMicros(c.IssuedAt),
		TokenID:  c.ID,
	}
	if c.ExpiresAt != nil {
		out.ExpiresAt = atMicros(c.ExpiresAt)
	}
	return out
}
