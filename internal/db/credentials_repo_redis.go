package db

import (
	"context"
	"time"

	"github.com/bugreporter/bugreporter-gateway/internal/gwerrors"
	"github.com/bugreporter/bugreporter-gateway/internal/models"
)

const (
	credentialsPrefix    string        = "credentials"
	accessTokenField     string        = "token"
	refreshTokenField    string        = "refreshToken"
	tokenExpiresAtLeeway time.Duration = 10 * time.Second
)

// setAccessTokenScript writes ARGV[3] to the field ARGV[2] when the field ARGV[1] still holds ARGV[4],
// it returns -1 and writes nothing otherwise. A missing hash never matches.
const setAccessTokenScript string = `
if redis.call("HGET", KEYS[1], ARGV[1]) == ARGV[4] then
	return redis.call("HSET", KEYS[1], ARGV[2], ARGV[3])
end
return -1
`

// GetCredentials returns the credential pair of a session. A session without stored credentials
// yields an empty pair and no error.
func (r RedisAdapter) GetCredentials(ctx context.Context, sessionID string) (models.CredentialPair, error) {
	raw, err := r.rdb.HGetAll(ctx, r.credentialsKey(sessionID)).Result()
	if err != nil {
		return models.CredentialPair{}, err
	}
	output := models.CredentialPair{
		AccessToken:  raw[accessTokenField],
		RefreshToken: raw[refreshTokenField],
	}
	return output.Decrypt(r.encryptor)
}

// SetCredentials stores both tokens. The entry expires shortly after the refresh token does,
// opaque refresh tokens are kept until they are removed.
func (r RedisAdapter) SetCredentials(ctx context.Context, sessionID string, credentials models.CredentialPair) error {
	key := r.credentialsKey(sessionID)
	if credentials.Empty() {
		return r.rdb.Del(ctx, key).Err()
	}
	encrypted, err := credentials.Encrypt(r.encryptor)
	if err != nil {
		return err
	}
	err = r.rdb.HSet(
		ctx,
		key,
		accessTokenField, encrypted.AccessToken,
		refreshTokenField, encrypted.RefreshToken,
	).Err()
	if err != nil {
		return err
	}
	expiresAt := credentials.RefreshTokenExpiry()
	if expiresAt.IsZero() {
		return r.rdb.Persist(ctx, key).Err()
	}
	return r.rdb.ExpireAt(ctx, key, expiresAt.Add(tokenExpiresAtLeeway)).Err()
}

// SetAccessToken replaces the access token of credentials that still hold refreshToken, the refresh
// token and the expiry of the entry are left as is. Removed or replaced credentials are not recreated
// and yield gwerrors.ErrCredentialsReplaced.
func (r RedisAdapter) SetAccessToken(ctx context.Context, sessionID string, refreshToken string, accessToken string) error {
	key := r.credentialsKey(sessionID)
	raw, err := r.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return err
	}
	storedRefresh, found := raw[refreshTokenField]
	if !found {
		return gwerrors.ErrCredentialsReplaced
	}
	stored, err := models.CredentialPair{RefreshToken: storedRefresh}.Decrypt(r.encryptor)
	if err != nil {
		return err
	}
	if stored.RefreshToken != refreshToken {
		return gwerrors.ErrCredentialsReplaced
	}
	value := accessToken
	if r.encryptor != nil && accessToken != "" {
		value, err = r.encryptor.Encrypt(accessToken)
		if err != nil {
			return err
		}
	}
	// the ciphertext read above is compared so that a removal or a new login since then is detected
	res, err := r.rdb.Eval(ctx, setAccessTokenScript, []string{key}, refreshTokenField, accessTokenField, value, storedRefresh).Int64()
	if err != nil {
		return err
	}
	if res < 0 {
		return gwerrors.ErrCredentialsReplaced
	}
	return nil
}

func (r RedisAdapter) RemoveCredentials(ctx context.Context, sessionID string) error {
	return r.rdb.Del(ctx, r.credentialsKey(sessionID)).Err()
}

func (RedisAdapter) credentialsKey(sessionID string) string {
	return credentialsPrefix + ":" + sessionID
}
