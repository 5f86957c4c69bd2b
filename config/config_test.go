package config

import (
	"encoding/json"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestViper(t *testing.T) *viper.Viper {
	t.Helper()

	v := viper.New()
	setupViperDefaults(v)
	return v
}

func TestLoadDefaults(t *testing.T) {
	v := newTestViper(t)

	cfg, err := Load(WithViper(v), WithConfigFile(""))
	require.NoError(t, err)

	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, DefaultGitHubBaseURL, cfg.GitHub.BaseURL)
	assert.Equal(t, DefaultGitLabBaseURL, cfg.GitLab.BaseURL)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("FORGE_TYPE", "gitlab")
	t.Setenv("REPO_SLUG", "thoth-station/kebechet")
	t.Setenv("GITLAB_TOKEN", "glpat-test")

	v := newTestViper(t)

	cfg, err := Load(WithViper(v), WithConfigFile(""))
	require.NoError(t, err)

	assert.Equal(t, "gitlab", cfg.Forge.Type)
	assert.Equal(t, "thoth-station/kebechet", cfg.Forge.Slug)
	assert.Equal(t, "glpat-test", cfg.GitLab.Token)
}

func TestGetSecrets(t *testing.T) {
	t.Parallel()

	cfg := Config{
		GitHub: GitHub{Token: "ghp_token", PrivateKey: "PEM"},
		GitLab: GitLab{Token: "glpat-token"},
	}

	secrets := cfg.GetSecrets()
	assert.ElementsMatch(t, []string{"ghp_token", "PEM", "glpat-token"}, secrets)

	assert.Empty(t, Config{}.GetSecrets())
}

func TestMarshalJSONMasksSecrets(t *testing.T) {
	t.Parallel()

	cfg := Config{
		LogLevel: "debug",
		GitHub:   GitHub{Token: "ghp_token", PrivateKey: "PEM"},
		GitLab:   GitLab{Token: "glpat-token"},
	}

	data, err := json.Marshal(cfg)
	require.NoError(t, err)

	assert.NotContains(t, string(data), "ghp_token")
	assert.NotContains(t, string(data), "glpat-token")
	assert.NotContains(t, string(data), "PEM")
}

func TestFieldsValidate(t *testing.T) {
	t.Parallel()

	for _, field := range Fields {
		assert.NoError(t, field.validate(), "field %s failed validation", field.Flag)
	}
}

func TestGetDefault(t *testing.T) {
	t.Parallel()

	forge, err := GetDefault[string]("forge")
	require.NoError(t, err)
	assert.Equal(t, "github", forge)

	_, err = GetDefault[string]("no-such-flag")
	assert.ErrorIs(t, err, ErrFieldNotFound)
}
