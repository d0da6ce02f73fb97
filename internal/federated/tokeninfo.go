package federated

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/dtroode/coursemarket-auth/internal/model"
)

const maxTokenInfoBody = 1 << 20

type tokenInfoResponse struct {
	IssuedTo      string `json:"issued_to"`
	Audience      string `json:"audience"`
	UserID        string `json:"user_id"`
	Scope         string `json:"scope"`
	ExpiresIn     int64  `json:"expires_in"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
}

// TokenInfoVerifier treats the credential as an opaque Google access token and
// asks the tokeninfo endpoint about it.
type TokenInfoVerifier struct {
	endpoint  string
	client    *http.Client
	clientIDs []string
}

func NewTokenInfoVerifier(endpoint string, client *http.Client, clientIDs []string) *TokenInfoVerifier {
	return &TokenInfoVerifier{
		endpoint:  endpoint,
		client:    client,
		clientIDs: clientIDs,
	}
}

func (t *TokenInfoVerifier) Verify(ctx context.Context, credential string) (model.FederatedIdentity, error) {
	u, err := url.Parse(t.endpoint)
	if err != nil {
		return model.FederatedIdentity{}, fmt.Errorf("failed to parse tokeninfo url: %w", err)
	}
	q := u.Query()
	q.Set("access_token", credential)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return model.FederatedIdentity{}, fmt.Errorf("failed to build tokeninfo request: %w", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return model.FederatedIdentity{}, fmt.Errorf("failed to call tokeninfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.FederatedIdentity{}, fmt.Errorf("tokeninfo returned status %d", resp.StatusCode)
	}

	var info tokenInfoResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxTokenInfoBody)).Decode(&info); err != nil {
		return model.FederatedIdentity{}, fmt.Errorf("failed to decode tokeninfo response: %w", err)
	}

	aud, ok := audienceAllowed(t.clientIDs, info.Audience, info.IssuedTo)
	if !ok {
		return model.FederatedIdentity{}, errWrongAudience
	}
	if info.ExpiresIn <= 0 {
		return model.FederatedIdentity{}, fmt.Errorf("access token expired")
	}

	return model.FederatedIdentity{
		Subject:       info.UserID,
		Email:         info.Email,
		EmailVerified: info.VerifiedEmail,
		Audience:      aud,
	}, nil
}
