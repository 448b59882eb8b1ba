package models

import (
	"context"
)

type Encryptor interface {
	Encrypt(value string) (encrypted string, err error)
	Decrypt(value string) (decrypted string, err error)
}

type IDGenerator interface {
	ID() (string, error)
}

type CredentialsGetter interface {
	GetCredentials(ctx context.Context, sessionID string) (CredentialPair, error)
}

type CredentialsSetter interface {
	SetCredentials(ctx context.Context, sessionID string, credentials CredentialPair) error
	// SetAccessToken stores the access token only if refreshToken is still the stored refresh token.
	SetAccessToken(ctx context.Context, sessionID string, refreshToken string, accessToken string) error
}

type CredentialsRemover interface {
	RemoveCredentials(ctx context.Context, sessionID string) error
}

// CredentialsRepository persists one credential pair per session.
type CredentialsRepository interface {
	CredentialsGetter
	CredentialsSetter
	CredentialsRemover
}

type SessionGetter interface {
	GetSession(ctx context.Context, sessionID string) (Session, error)
}

type SessionSetter interface {
	SetSession(ctx context.Context, session Session) error
}

type SessionRemover interface {
	RemoveSession(ctx context.Context, sessionID string) error
}

type SessionRepository interface {
	SessionGetter
	SessionSetter
	SessionRemover
}
