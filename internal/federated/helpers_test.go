package federated

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const (
	webClientID    = "web.apps.googleusercontent.com"
	mobileClientID = "mobile.apps.googleusercontent.com"
	testKID        = "kid-1"
)

var testClientIDs = []string{webClientID, mobileClientID}

type googleFixture struct {
	key       *rsa.PrivateKey
	jwks      *httptest.Server
	jwksHits  atomic.Int32
	// jwksDelay stalls every JWKS response by the stored duration.
	jwksDelay atomic.Int64
	tokeninfo *httptest.Server
	// tokens maps opaque access tokens to tokeninfo responses.
	tokens map[string]tokenInfoResponse
}

func newGoogleFixture(t *testing.T) *googleFixture {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	f := &googleFixture{key: key, tokens: map[string]tokenInfoResponse{}}

	f.jwks = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		f.jwksHits.Add(1)
		time.Sleep(time.Duration(f.jwksDelay.Load()))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"keys": []map[string]string{{
				"kty": "RSA",
				"kid": testKID,
				"use": "sig",
				"alg": "RS256",
				"n":   base64.RawURLEncoding.EncodeToString(key.PublicKey.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.PublicKey.E)).Bytes()),
			}},
		})
	}))
	t.Cleanup(f.jwks.Close)

	f.tokeninfo = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info, ok := f.tokens[r.URL.Query().Get("access_token")]
		if !ok {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error_description":"Invalid Value"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(info)
	}))
	t.Cleanup(f.tokeninfo.Close)

	return f
}

type idTokenOpts struct {
	kid      string
	issuer   string
	audience string
	expires  time.Time
	key      *rsa.PrivateKey
}

func (f *googleFixture) idToken(t *testing.T, opts idTokenOpts) string {
	t.Helper()

	if opts.kid == "" {
		opts.kid = testKID
	}
	if opts.issuer == "" {
		opts.issuer = "https://accounts.google.com"
	}
	if opts.audience == "" {
		opts.audience = webClientID
	}
	if opts.expires.IsZero() {
		opts.expires = time.Now().Add(time.Hour)
	}
	if opts.key == nil {
		opts.key = f.key
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"iss":            opts.issuer,
		"aud":            opts.audience,
		"sub":            "google-subject-1",
		"email":          "learner@example.com",
		"email_verified": true,
		"iat":            time.Now().Unix(),
		"exp":            opts.expires.Unix(),
	})
	tok.Header["kid"] = opts.kid

	s, err := tok.SignedString(opts.key)
	require.NoError(t, err)
	return s
}
