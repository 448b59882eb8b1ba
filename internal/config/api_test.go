package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getValidAPIConfig() APIConfig {
	return APIConfig{
		BaseURL:    "/api",
		Upstream:   "http://localhost:8000",
		Timeout:    30 * time.Second,
		SignInPath: "/",
		PageSize:   10,
	}
}

func TestValidAPIConfig(t *testing.T) {
	config := getValidAPIConfig()

	assert.NoError(t, config.Validate())
}

func TestResolvedBaseURLRelative(t *testing.T) {
	config := getValidAPIConfig()

	base, err := config.ResolvedBaseURL()

	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000/api", base.String())
}

func TestResolvedBaseURLAbsolute(t *testing.T) {
	config := getValidAPIConfig()
	config.BaseURL = "https://tracker.example.com/api"
	config.Upstream = ""

	base, err := config.ResolvedBaseURL()

	require.NoError(t, err)
	assert.Equal(t, "https://tracker.example.com/api", base.String())
}

func TestResolvedBaseURLRelativeWithoutUpstream(t *testing.T) {
	config := getValidAPIConfig()
	config.Upstream = "localhost"

	_, err := config.ResolvedBaseURL()

	assert.ErrorContains(t, err, "is not absolute")
}

func TestInvalidAPITimeout(t *testing.T) {
	config := getValidAPIConfig()
	config.Timeout = -time.Second

	assert.Error(t, config.Validate())
}

func TestInvalidPageSize(t *testing.T) {
	config := getValidAPIConfig()
	config.PageSize = 0

	assert.ErrorContains(t, config.Validate(), "page size")
}

func TestMissingSignInPath(t *testing.T) {
	config := getValidAPIConfig()
	config.SignInPath = ""

	assert.ErrorContains(t, config.Validate(), "sign in path")
}
