package tracker

import (
	"context"
	"fmt"
	"net/http"

	"github.com/bugreporter/bugreporter-gateway/internal/models"
)

type tokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type registration struct {
	User User `json:"user"`
	tokenPair
}

// Login exchanges a username and password for a credential pair and stores it.
func (t *Tracker) Login(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return invalid("username and password are required")
	}
	res, err := t.gateway.RequestWithoutAuth(
		ctx,
		http.MethodPost,
		"/auth/login/",
		map[string]string{"username": username, "password": password},
		nil,
	)
	if err != nil {
		return err
	}
	tokens := tokenPair{}
	if err = res.Decode(&tokens); err != nil {
		return fmt.Errorf("cannot parse the login response: %w", err)
	}
	return t.storeTokens(ctx, tokens)
}

// Register creates a user, the credentials returned with it are stored.
func (t *Tracker) Register(ctx context.Context, input RegisterInput) (User, error) {
	if err := input.Validate(); err != nil {
		return User{}, err
	}
	res, err := t.gateway.RequestWithoutAuth(ctx, http.MethodPost, "/auth/register/", input, nil)
	if err != nil {
		return User{}, err
	}
	output := registration{}
	if err = res.Decode(&output); err != nil {
		return User{}, fmt.Errorf("cannot parse the registration response: %w", err)
	}
	if err = t.storeTokens(ctx, output.tokenPair); err != nil {
		return User{}, err
	}
	return output.User, nil
}

func (t *Tracker) storeTokens(ctx context.Context, tokens tokenPair) error {
	if tokens.Access == "" {
		return fmt.Errorf("the API did not return an access token")
	}
	return t.gateway.Store().Set(ctx, models.CredentialPair{AccessToken: tokens.Access, RefreshToken: tokens.Refresh})
}

func (t *Tracker) CurrentUser(ctx context.Context) (User, error) {
	output := User{}
	err := t.call(ctx, http.MethodGet, "/auth/user/", nil, &output)
	return output, err
}

// Logout forgets the stored credentials.
func (t *Tracker) Logout(ctx context.Context) error {
	return t.gateway.Store().Clear(ctx)
}
