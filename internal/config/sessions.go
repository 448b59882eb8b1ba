package config

import "fmt"

type TokenEncryptionConfig struct {
	Enabled   bool
	SecretKey RedactedString
}

type SessionConfig struct {
	IdleSessionTTLSeconds int
	MaxSessionTTLSeconds  int
	CookieSecure          bool
	CookieHashKey         RedactedString
	CookieEncodingKey     RedactedString
	TokenEncryption       TokenEncryptionConfig
}

func (c *SessionConfig) Validate(e RunningEnvironment) error {
	if c.IdleSessionTTLSeconds <= 0 {
		return fmt.Errorf("idle session TTL seconds must be positive, got %d", c.IdleSessionTTLSeconds)
	}
	if c.MaxSessionTTLSeconds > 0 && c.IdleSessionTTLSeconds > c.MaxSessionTTLSeconds {
		return fmt.Errorf("max session TTL seconds (%d) cannot be less than idle session TTL seconds (%d)", c.MaxSessionTTLSeconds, c.IdleSessionTTLSeconds)
	}
	if c.TokenEncryption.Enabled && len(c.TokenEncryption.SecretKey) != 32 {
		return fmt.Errorf(
			"token encryption key has to be 32 bytes long, the provided one is %d long",
			len(c.TokenEncryption.SecretKey),
		)
	}
	if len(c.CookieHashKey) > 0 && len(c.CookieHashKey) != 32 && len(c.CookieHashKey) != 64 {
		return fmt.Errorf("the cookie hash key has to be 32 or 64 bytes long, got %d", len(c.CookieHashKey))
	}
	encLen := len(c.CookieEncodingKey)
	if encLen > 0 && encLen != 16 && encLen != 24 && encLen != 32 {
		return fmt.Errorf("the cookie encoding key has to be 16, 24 or 32 bytes long, got %d", encLen)
	}
	if e != Development {
		if len(c.CookieHashKey) == 0 {
			return fmt.Errorf("session cookies have to be signed in production, set a cookie hash key")
		}
		if !c.CookieSecure {
			return fmt.Errorf("session cookies have to be secure in production")
		}
	}
	return nil
}
