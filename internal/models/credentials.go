package models

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/oauth2"
)

// CredentialPair is the access and refresh token of one authenticated session.
// The access token is sent with every API request, the refresh token is only used to
// obtain a new access token.
type CredentialPair struct {
	AccessToken  string
	RefreshToken string
}

func (c CredentialPair) Empty() bool {
	return c.AccessToken == "" && c.RefreshToken == ""
}

func (c CredentialPair) HasRefreshToken() bool {
	return c.RefreshToken != ""
}

// Token returns the access token in the form used by golang.org/x/oauth2, which knows how
// to attach itself to outgoing requests.
func (c CredentialPair) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: c.RefreshToken,
		Expiry:       c.AccessTokenExpiry(),
	}
}

// AccessTokenExpiry reads the exp claim of the access token. The signature is not verified,
// the value is only informative. Zero is returned when the token is not a JWT or has no exp.
func (c CredentialPair) AccessTokenExpiry() time.Time {
	return unverifiedExpiry(c.AccessToken)
}

// RefreshTokenExpiry reads the exp claim of the refresh token, see AccessTokenExpiry.
func (c CredentialPair) RefreshTokenExpiry() time.Time {
	return unverifiedExpiry(c.RefreshToken)
}

// Encrypt encrypts both token values if an encryptor is set
func (c CredentialPair) Encrypt(encryptor Encryptor) (CredentialPair, error) {
	if encryptor == nil {
		return c, nil
	}
	output := CredentialPair{}
	var err error
	if c.AccessToken != "" {
		output.AccessToken, err = encryptor.Encrypt(c.AccessToken)
		if err != nil {
			return CredentialPair{}, err
		}
	}
	if c.RefreshToken != "" {
		output.RefreshToken, err = encryptor.Encrypt(c.RefreshToken)
		if err != nil {
			return CredentialPair{}, err
		}
	}
	return output, nil
}

// Decrypt decrypts both token values if an encryptor is set
func (c CredentialPair) Decrypt(encryptor Encryptor) (CredentialPair, error) {
	if encryptor == nil {
		return c, nil
	}
	output := CredentialPair{}
	var err error
	if c.AccessToken != "" {
		output.AccessToken, err = encryptor.Decrypt(c.AccessToken)
		if err != nil {
			return CredentialPair{}, err
		}
	}
	if c.RefreshToken != "" {
		output.RefreshToken, err = encryptor.Decrypt(c.RefreshToken)
		if err != nil {
			return CredentialPair{}, err
		}
	}
	return output, nil
}

// String implements the Stringer interface for printing the credentials in logs
func (c CredentialPair) String() string {
	return fmt.Sprintf(
		"CredentialPair<AccessToken: %s, AccessTokenExpiry: %s, RefreshToken: %s, RefreshTokenExpiry: %s>",
		redact(c.AccessToken),
		c.AccessTokenExpiry(),
		redact(c.RefreshToken),
		c.RefreshTokenExpiry(),
	)
}

func redact(value string) string {
	if value == "" {
		return "unset"
	}
	return "redacted"
}

func unverifiedExpiry(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	claims := jwt.RegisteredClaims{}
	_, _, err := jwt.NewParser().ParseUnverified(raw, &claims)
	if err != nil || claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time.UTC()
}
