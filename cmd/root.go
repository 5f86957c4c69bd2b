// Package cmd provides the CLI for source-management.
package cmd

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/thoth-station/source-management/config"
	"github.com/thoth-station/source-management/forge"
	"github.com/thoth-station/source-management/logging"
	"github.com/thoth-station/source-management/telemetry"
)

var (
	v         = viper.New()
	appConfig config.Config
	logger    zerolog.Logger
)

// root is the root command for the CLI.
var root = &cobra.Command{
	Use:   "source-management",
	Short: "Manage issues, pull requests and branches on GitHub and GitLab",
	Long: `
source-management talks to a repository on GitHub or GitLab through one
common set of operations: report and close issues, open pull or merge
requests, and list or delete branches.

GitHub access can use a personal access token or a GitHub App. With an App,
the installation access token is obtained automatically for the configured
repository and refreshed before it expires.

Configuration is read from CLI flags > environment variables > a .env file.
`,
	Example: `
# List open pull requests of a repository
source-management --slug thoth-station/kebechet --github-token <token> pr list
# Report an issue on a self-hosted GitLab instance
source-management -f gitlab --gitlab-base-url https://gitlab.example.com/api/v4 \
  --gitlab-token <token> -s group/project issue open --title "Build failed"
# Authenticate as a GitHub App
source-management -s thoth-station/kebechet --github-app-id 12345 \
  --github-private-key-file app.pem branch list
`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		var err error

		appConfig, err = config.Load(config.WithViper(v))
		if err != nil {
			return err
		}

		opts := []logging.Option{
			logging.WithLevel(appConfig.LogLevel),
			logging.WithFileName(appConfig.LogPath),
			logging.WithSecrets(appConfig.GetSecrets()),
		}

		logger, err = logging.New(opts...)
		if err != nil {
			return err
		}

		logger.Debug().
			Str("log_level", appConfig.LogLevel).
			Str("forge", appConfig.Forge.Type).
			Str("slug", appConfig.Forge.Slug).
			Msg("Loaded config")
		marshaled, err := appConfig.MarshalJSON()
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to marshal config for logging.")
		}
		logger.Debug().Str("config", string(marshaled)).Msg("Configuration")

		return nil
	},
}

// newSession builds a forge session from the loaded configuration. The
// returned cleanup flushes metrics and must be called when the command is
// done.
func newSession(ctx context.Context) (*forge.Session, func(), error) {
	forgeType, err := forge.ParseType(appConfig.Forge.Type)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {}
	options := []forge.Option{forge.WithLogger(logger)}

	if appConfig.Telemetry.MetricsEnabled {
		metrics, metricsShutdown, err := telemetry.NewMetrics(
			telemetry.WithContext(ctx),
			telemetry.WithExporter(appConfig.Telemetry.MetricsExporter),
			telemetry.WithOTLPEndpoint(appConfig.Telemetry.MetricsEndpoint),
		)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to initialize metrics, continuing without metrics")
		} else {
			options = append(options, forge.WithMetrics(metrics))
			cleanup = func() {
				if shutdownErr := metricsShutdown(context.Background()); shutdownErr != nil {
					logger.Error().Err(shutdownErr).Msg("Failed to shutdown metrics")
				}
			}
		}
	}

	switch forgeType {
	case forge.GitHub:
		options = append(options, forge.WithBaseURL(appConfig.GitHub.BaseURL))
		if appConfig.GitHub.Token != "" {
			options = append(options, forge.WithStaticToken(appConfig.GitHub.Token))
		} else {
			options = append(options, forge.WithGitHubApp(appConfig.GitHub))
		}
	case forge.GitLab:
		options = append(options,
			forge.WithBaseURL(appConfig.GitLab.BaseURL),
			forge.WithStaticToken(appConfig.GitLab.Token),
		)
	}

	session, err := forge.New(forgeType, appConfig.Forge.Slug, options...)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return session, cleanup, nil
}

func init() {
	config.MustBindConfig(root, v)
}

// Execute is the entry point for the CLI.
func Execute() {
	if err := fang.Execute(context.Background(), root, fang.WithVersion(config.VersionString())); err != nil {
		os.Exit(1)
	}
}
