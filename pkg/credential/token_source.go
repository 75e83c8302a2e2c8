package credential

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"golang.org/x/oauth2"

	"github.com/iota-uz/outing-approval/pkg/clock"
)

const jwtBearerGrantType = "urn:ietf:params:oauth:grant-type:jwt-bearer"

// ServiceIdentity is the signing material of a service account.
type ServiceIdentity struct {
	Email      string
	PrivateKey string
}

// AssertionTokenSource hands out the signed assertion itself as the bearer
// token. Every Token call mints a new assertion; nothing is cached.
func AssertionTokenSource(signer *Signer, identity ServiceIdentity) oauth2.TokenSource {
	return &assertionSource{signer: signer, identity: identity}
}

type assertionSource struct {
	signer   *Signer
	identity ServiceIdentity
}

func (s *assertionSource) Token() (*oauth2.Token, error) {
	assertion, expiry, err := s.signer.sign(s.identity.Email, s.identity.PrivateKey)
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{
		AccessToken: assertion,
		TokenType:   "Bearer",
		Expiry:      expiry,
	}, nil
}

// ExchangeTokenSource trades a signed assertion for an access token at the
// signer's audience endpoint (RFC 7523 jwt-bearer grant). The result is
// cached until shortly before it expires.
func ExchangeTokenSource(ctx context.Context, signer *Signer, identity ServiceIdentity, client *http.Client) oauth2.TokenSource {
	if client == nil {
		client = http.DefaultClient
	}
	return oauth2.ReuseTokenSource(nil, &exchangeSource{
		ctx:      ctx,
		signer:   signer,
		identity: identity,
		client:   client,
	})
}

type exchangeSource struct {
	ctx      context.Context
	signer   *Signer
	identity ServiceIdentity
	client   *http.Client
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

func (s *exchangeSource) Token() (*oauth2.Token, error) {
	assertion, _, err := s.signer.sign(s.identity.Email, s.identity.PrivateKey)
	if err != nil {
		return nil, err
	}

	form := url.Values{
		"grant_type": {jwtBearerGrantType},
		"assertion":  {assertion},
	}
	req, err := http.NewRequestWithContext(s.ctx, http.MethodPost, s.signer.Audience(), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.Wrap(err, "failed to build token request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "token exchange failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read token response")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("token exchange returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, errors.Wrap(err, "failed to decode token response")
	}
	if tr.AccessToken == "" {
		return nil, errors.New("token exchange returned an empty access token")
	}

	tok := &oauth2.Token{AccessToken: tr.AccessToken, TokenType: tr.TokenType}
	if tr.ExpiresIn > 0 {
		tok.Expiry = clock.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	}
	return tok, nil
}
