package federated

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"golang.org/x/sync/singleflight"

	"github.com/dtroode/coursemarket-auth/internal/model"
)

const (
	keySetTTL = time.Hour
	// keyRefetchInterval bounds how often an unknown kid may trigger a fetch.
	keyRefetchInterval = time.Minute
	keyFetchTimeout    = 10 * time.Second
)

var errUnknownKey = errors.New("unknown signing key")

var googleIssuers = []string{"accounts.google.com", "https://accounts.google.com"}

type googleClaims struct {
	jwt.RegisteredClaims
	Email           string   `json:"email"`
	EmailVerified   flexBool `json:"email_verified"`
	AuthorizedParty string   `json:"azp"`
}

// flexBool accepts both JSON booleans and the "true"/"false" strings some
// Google tokens carry.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case bool:
		*b = flexBool(t)
	case string:
		*b = t == "true"
	default:
		*b = false
	}
	return nil
}

// AssertionVerifier validates Google ID tokens signed with RS256 against the
// published JWKS.
type AssertionVerifier struct {
	certsURL  string
	client    *http.Client
	clientIDs []string
	now       func() time.Time

	fetches singleflight.Group

	// mu guards the fields below and is never held across a fetch.
	mu          sync.RWMutex
	keys        jwk.Set
	fetchedAt   time.Time
	lastAttempt time.Time
}

func NewAssertionVerifier(certsURL string, client *http.Client, clientIDs []string) *AssertionVerifier {
	return &AssertionVerifier{
		certsURL:  certsURL,
		client:    client,
		clientIDs: clientIDs,
		now:       time.Now,
	}
}

func (a *AssertionVerifier) Verify(ctx context.Context, credential string) (model.FederatedIdentity, error) {
	claims := &googleClaims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)

	_, err := parser.ParseWithClaims(credential, claims, func(t *jwt.Token) (interface{}, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("missing kid header")
		}
		return a.publicKey(ctx, kid)
	})
	if err != nil {
		return model.FederatedIdentity{}, fmt.Errorf("failed to verify id token: %w", err)
	}

	if !issuerAllowed(claims.Issuer) {
		return model.FederatedIdentity{}, fmt.Errorf("unexpected issuer %q", claims.Issuer)
	}
	aud, ok := audienceAllowed(a.clientIDs, claims.Audience...)
	if !ok {
		return model.FederatedIdentity{}, errWrongAudience
	}

	return model.FederatedIdentity{
		Subject:       claims.Subject,
		Email:         claims.Email,
		EmailVerified: bool(claims.EmailVerified),
		Audience:      aud,
	}, nil
}

func issuerAllowed(iss string) bool {
	for _, allowed := range googleIssuers {
		if iss == allowed {
			return true
		}
	}
	return false
}

// publicKey resolves kid from the cached key set. A stale set is refetched;
// a kid missing from a fresh set triggers at most one fetch per
// keyRefetchInterval.
func (a *AssertionVerifier) publicKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	a.mu.RLock()
	keys := a.keys
	now := a.now()
	fresh := keys != nil && now.Sub(a.fetchedAt) < keySetTTL
	mayRefetch := now.Sub(a.lastAttempt) >= keyRefetchInterval
	a.mu.RUnlock()

	if fresh {
		if key, ok := keys.LookupKeyID(kid); ok {
			return exportRSA(key)
		}
		if !mayRefetch {
			return nil, fmt.Errorf("%w %q", errUnknownKey, kid)
		}
	}

	keys, err := a.fetchKeys(ctx)
	if err != nil {
		return nil, err
	}
	key, ok := keys.LookupKeyID(kid)
	if !ok {
		return nil, fmt.Errorf("%w %q", errUnknownKey, kid)
	}
	return exportRSA(key)
}

// fetchKeys downloads the key set once for all concurrent callers. The
// download outlives a caller whose context ends first.
func (a *AssertionVerifier) fetchKeys(ctx context.Context) (jwk.Set, error) {
	ch := a.fetches.DoChan(a.certsURL, func() (any, error) {
		a.mu.Lock()
		a.lastAttempt = a.now()
		a.mu.Unlock()

		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), keyFetchTimeout)
		defer cancel()

		set, err := jwk.Fetch(fetchCtx, a.certsURL, jwk.WithHTTPClient(a.client))
		if err != nil {
			return nil, fmt.Errorf("failed to fetch signing keys: %w", err)
		}

		a.mu.Lock()
		a.keys = set
		a.fetchedAt = a.now()
		a.mu.Unlock()
		return set, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for signing keys: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(jwk.Set), nil
	}
}

func exportRSA(key jwk.Key) (*rsa.PublicKey, error) {
	var raw any
	if err := jwk.Export(key, &raw); err != nil {
		return nil, fmt.Errorf("failed to export signing key: %w", err)
	}
	switch k := raw.(type) {
	case *rsa.PublicKey:
		return k, nil
	case rsa.PublicKey:
		return &k, nil
	default:
		return nil, fmt.Errorf("unexpected signing key type %T", raw)
	}
}
