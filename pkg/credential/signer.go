// Package credential mints the short-lived RS256 assertions used to
// authenticate against the spreadsheet API.
//
// An assertion carries iss (service identity), scope, aud (token endpoint),
// iat and exp = iat + one hour. It is either sent directly as a bearer
// credential or exchanged for an access token at the audience endpoint,
// depending on how the token source is built.
package credential

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"regexp"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"

	"github.com/iota-uz/outing-approval/pkg/clock"
)

const AssertionLifetime = time.Hour

var pemDelimiter = regexp.MustCompile(`-----(BEGIN|END)[A-Z ]*-----`)

var (
	ErrMissingIdentity = errors.New("service identity is empty")
	ErrMissingKey      = errors.New("private key is empty")
	ErrMalformedKey    = errors.New("private key is malformed")
)

// AssertionClaims is the claim set of a service assertion. aud is encoded as
// a single string, which jwt.RegisteredClaims does not do by default.
type AssertionClaims struct {
	Issuer    string           `json:"iss"`
	Scope     string           `json:"scope"`
	Audience  string           `json:"aud"`
	IssuedAt  *jwt.NumericDate `json:"iat"`
	ExpiresAt *jwt.NumericDate `json:"exp"`
}

var _ jwt.Claims = (*AssertionClaims)(nil)

func (c *AssertionClaims) GetExpirationTime() (*jwt.NumericDate, error) { return c.ExpiresAt, nil }
func (c *AssertionClaims) GetIssuedAt() (*jwt.NumericDate, error) { return c.IssuedAt, nil }
func (c *AssertionClaims) GetNotBefore() (*jwt.NumericDate, error) { return nil, nil }
func (c *AssertionClaims) GetIssuer() (string, error) { return c.Issuer, nil }
func (c *AssertionClaims) GetSubject() (string, error) { return "", nil }
func (c *AssertionClaims) GetAudience() (jwt.ClaimStrings, error) {
	return jwt.ClaimStrings{c.Audience}, nil
}

type Signer struct {
	scope    string
	audience string
}

func NewSigner(scope, audience string) *Signer {
	return &Signer{scope: scope, audience: audience}
}

func (s *Signer) Audience() string { return s.audience }

// Claims builds the claim set for serviceIdentity issued at issuedAt.
func (s *Signer) Claims(serviceIdentity string, issuedAt time.Time) AssertionClaims {
	return AssertionClaims{
		Issuer:    serviceIdentity,
		Scope:     s.scope,
		Audience:  s.audience,
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(issuedAt.Add(AssertionLifetime)),
	}
}

// SignAssertion returns the compact serialization of a fresh assertion.
func (s *Signer) SignAssertion(serviceIdentity, privateKeyPEM string) (string, error) {
	token, _, err := s.sign(serviceIdentity, privateKeyPEM)
	return token, err
}

func (s *Signer) sign(serviceIdentity, privateKeyPEM string) (string, time.Time, error) {
	if strings.TrimSpace(serviceIdentity) == "" {
		return "", time.Time{}, ErrMissingIdentity
	}
	key, err := ParsePrivateKey(privateKeyPEM)
	if err != nil {
		return "", time.Time{}, err
	}

	now := clock.Now().UTC().Truncate(time.Second)
	claims := s.Claims(serviceIdentity, now)
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, &claims)
	signed, err := token.SignedString(key)
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, "failed to sign assertion")
	}
	return signed, claims.ExpiresAt.Time, nil
}

// ParsePrivateKey decodes a PEM encoded PKCS8 RSA key. Delimiter lines and all
// whitespace are stripped before the base64 body is decoded, so keys that lost
// their line breaks in transit still parse.
func ParsePrivateKey(privateKeyPEM string) (*rsa.PrivateKey, error) {
	body := stripPEM(privateKeyPEM)
	if body == "" {
		return nil, ErrMissingKey
	}
	der, err := base64.StdEncoding.DecodeString(body)
	if err != nil {
		return nil, errors.Wrap(ErrMalformedKey, err.Error())
	}
	parsed, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, errors.Wrap(ErrMalformedKey, err.Error())
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.Wrap(ErrMalformedKey, "not an RSA key")
	}
	return key, nil
}

func stripPEM(s string) string {
	s = pemDelimiter.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, `\n`, "")
	return strings.Join(strings.Fields(s), "")
}
