// Package config provides the configuration for the application.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"reflect"
	"runtime/debug"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// DefaultLogLevel is the default log level.
	DefaultLogLevel = "info"
	// DefaultGitHubBaseURL is the default base URL for the GitHub API.
	DefaultGitHubBaseURL = "https://api.github.com"
	// DefaultGitLabBaseURL is the default base URL for the GitLab API.
	DefaultGitLabBaseURL = "https://gitlab.com/api/v4"

	// EnvVarLogLevel is the environment variable for the log level.
	EnvVarLogLevel = "LOG_LEVEL"
)

// These variables are set at build time and describe the version and build of the application
var (
	Version   string
	Commit    string
	BuildTime = time.Now().Format("2006-01-02T15:04:05.000")
	BuiltBy   = "local"
	BuiltWith = "go"
)

// VersionString gives a full string of the version of the application.
func VersionString() string {
	return fmt.Sprintf(
		"%s on commit %s, built at %s with %s by %s",
		Version,
		Commit,
		BuildTime,
		BuiltWith,
		BuiltBy,
	)
}

// Config is the application configuration, set by flags, then by environment variables.
type Config struct {
	LogLevel string `mapstructure:"LOG_LEVEL"`
	LogPath  string `mapstructure:"LOG_PATH"`

	Forge     Forge     `mapstructure:",squash"`
	GitHub    GitHub    `mapstructure:",squash"`
	GitLab    GitLab    `mapstructure:",squash"`
	Telemetry Telemetry `mapstructure:",squash"`
}

// Telemetry configures the OpenTelemetry metrics pipeline.
type Telemetry struct {
	MetricsEnabled  bool   `mapstructure:"METRICS_ENABLED"`
	MetricsExporter string `mapstructure:"METRICS_EXPORTER"`
	MetricsEndpoint string `mapstructure:"METRICS_ENDPOINT"`
}

// Forge selects the target forge and repository.
type Forge struct {
	// Type is the forge kind, "github" or "gitlab".
	Type string `mapstructure:"FORGE_TYPE"`
	// Slug is the namespace/repository path, e.g. "thoth-station/kebechet".
	Slug string `mapstructure:"REPO_SLUG"`
}

// GitHub configures authentication to the GitHub API.
type GitHub struct {
	BaseURL string `mapstructure:"GITHUB_BASE_URL"`
	// GitHub App configuration; the installation is discovered per repository.
	AppID          string `mapstructure:"GITHUB_APP_ID"`
	PrivateKey     string `mapstructure:"GITHUB_PRIVATE_KEY"`
	PrivateKeyFile string `mapstructure:"GITHUB_PRIVATE_KEY_FILE"`
	// Or use a simple GitHub token
	Token string `mapstructure:"GITHUB_TOKEN"`
}

// GitLab configures authentication to the GitLab API.
type GitLab struct {
	BaseURL string `mapstructure:"GITLAB_BASE_URL"`
	Token   string `mapstructure:"GITLAB_TOKEN"`
}

// GetSecrets returns all secret values in the config, for log redaction.
func (c Config) GetSecrets() []string {
	secrets := []string{}
	for _, s := range []string{c.GitHub.Token, c.GitHub.PrivateKey, c.GitLab.Token} {
		if s != "" {
			secrets = append(secrets, s)
		}
	}
	return secrets
}

// MarshalJSON renders the config with secret fields masked so it can be logged.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	masked := alias(c)
	if masked.GitHub.Token != "" {
		masked.GitHub.Token = "***"
	}
	if masked.GitHub.PrivateKey != "" {
		masked.GitHub.PrivateKey = "***"
	}
	if masked.GitLab.Token != "" {
		masked.GitLab.Token = "***"
	}
	return json.Marshal(masked)
}

// Option is a function that can be used to configure loading the config.
type Option func(*configOptions)

type configOptions struct {
	configFile string
	viper      *viper.Viper
}

// WithConfigFile sets the exact config file to load.
func WithConfigFile(configFile string) Option {
	return func(cfg *configOptions) {
		cfg.configFile = configFile
	}
}

// WithViper sets a custom viper instance to use. Useful for testing.
func WithViper(v *viper.Viper) Option {
	return func(cfg *configOptions) {
		cfg.viper = v
	}
}

// Load loads config from environment variables, flags, and an optional .env file.
func Load(options ...Option) (Config, error) {
	opts := &configOptions{
		configFile: ".env",
		viper:      viper.GetViper(), // Use the global viper instance by default
	}
	for _, opt := range options {
		opt(opts)
	}

	v := opts.viper
	if v == nil {
		v = viper.New()
		setupViperDefaults(v)
	}

	if opts.configFile != "" {
		v.SetConfigFile(opts.configFile)
	}

	if err := v.ReadInConfig(); err != nil {
		// Ignore config file not found error
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !errors.Is(err, os.ErrNotExist) {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// MustLoad is Load but panics if there is an error.
func MustLoad(options ...Option) Config {
	cfg, err := Load(options...)
	if err != nil {
		panic(err)
	}
	return cfg
}

func init() {
	// Version setup
	buildInfo, ok := debug.ReadBuildInfo()
	if ok {
		if Version == "" {
			Version = buildInfo.Main.Version
		}
		if Commit == "" {
			Commit = buildInfo.Main.Sum
		}
		BuiltWith = buildInfo.GoVersion
	}
	if Version == "" {
		Version = "dev"
	}
	if Commit == "" {
		Commit = "dev"
	}

	// Set up defaults for the global viper instance
	setupViperDefaults(viper.GetViper())
}

// setupViperDefaults configures viper with sensible defaults for all configuration fields
func setupViperDefaults(v *viper.Viper) {
	v.SetDefault(EnvVarLogLevel, DefaultLogLevel)
	v.SetDefault("FORGE_TYPE", "github")
	v.SetDefault("GITHUB_BASE_URL", DefaultGitHubBaseURL)
	v.SetDefault("GITLAB_BASE_URL", DefaultGitLabBaseURL)
	v.SetDefault("METRICS_EXPORTER", "stdout")
	v.SetDefault("METRICS_ENDPOINT", "localhost:4317")

	// Handle dashes in CLI flags
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	// Automatically bind all environment variables based on struct tags
	if err := bindEnvsFromStruct(v, reflect.TypeOf(Config{})); err != nil {
		panic(err)
	}

	v.AutomaticEnv()
}

// bindEnvsFromStruct binds environment variables to viper based on struct tags.
// Avoids having to manually viper.BindEnv for each field.
func bindEnvsFromStruct(v *viper.Viper, t reflect.Type) error {
	if t.Kind() != reflect.Struct {
		return fmt.Errorf("type %s is not a struct", t.Name())
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")
		// Skip fields without a mapstructure tag
		if tag == "" {
			continue
		}
		if strings.Contains(tag, ",squash") {
			// Handle embedded structs with squash
			if err := bindEnvsFromStruct(v, field.Type); err != nil {
				return err
			}
			continue
		}
		if tag == "-" {
			continue
		}
		if err := v.BindEnv(tag); err != nil {
			return fmt.Errorf("failed to bind env %s: %w", tag, err)
		}
	}
	return nil
}
