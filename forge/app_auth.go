package forge

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/google/go-github/v73/github"
	"github.com/jferrl/go-githubauth"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/thoth-station/source-management/base"
	"github.com/thoth-station/source-management/config"
)

const (
	// appJWTLifetime is the lifetime of the signed application JWT.
	// GitHub caps app JWTs at 10 minutes.
	appJWTLifetime = 10 * time.Minute
	// installationTokenLifetime is how long installation access tokens live.
	installationTokenLifetime = 10 * time.Minute
)

// AccessToken is a short-lived GitHub App installation access token.
type AccessToken struct {
	Token     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// tokenAuthenticator issues installation access tokens for a repository.
type tokenAuthenticator interface {
	AccessToken(ctx context.Context) (AccessToken, error)
}

// Authenticator obtains installation access tokens for a GitHub App.
// It signs an RS256 app JWT (claims iat=now, exp=now+10m, iss=app ID),
// locates the app installation for the configured repository, and exchanges
// the installation ID for an access token. It performs no caching; expiry
// tracking is the Session's responsibility.
type Authenticator struct {
	namespace string
	repo      string
	apps      *github.Client
	logger    zerolog.Logger
	now       func() time.Time
}

// NewAuthenticator validates the GitHub App credential and prepares the
// token-exchange client. The credential must carry a numeric app ID and a
// PEM private key, inline or as a file path.
func NewAuthenticator(logger zerolog.Logger, cfg config.GitHub, slug string) (*Authenticator, error) {
	namespace, repo, err := ParseSlug(slug)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAuthentication, err)
	}

	if cfg.AppID == "" {
		return nil, fmt.Errorf("%w: %w", ErrAuthentication, ErrNoAppID)
	}
	appID, err := strconv.ParseInt(cfg.AppID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %w: %w", ErrAuthentication, ErrInvalidAppID, err)
	}

	var privateKeyBytes []byte
	if cfg.PrivateKey != "" {
		privateKeyBytes = []byte(cfg.PrivateKey)
	} else if cfg.PrivateKeyFile != "" {
		privateKeyBytes, err = os.ReadFile(cfg.PrivateKeyFile)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrAuthentication, err)
		}
	}
	if len(privateKeyBytes) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrAuthentication, ErrNoPrivateKey)
	}

	appTokenSource, err := githubauth.NewApplicationTokenSource(
		appID,
		privateKeyBytes,
		githubauth.WithApplicationTokenExpiration(appJWTLifetime),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAuthentication, err)
	}

	// Every exchange request carries the app JWT as a bearer token.
	httpClient := base.NewClient("github-app", base.WithLogger(logger))
	httpClient.Transport = &oauth2.Transport{
		Source: oauth2.ReuseTokenSource(nil, appTokenSource),
		Base:   httpClient.Transport,
	}

	apps := github.NewClient(httpClient)
	if cfg.BaseURL != "" && cfg.BaseURL != config.DefaultGitHubBaseURL {
		apps, err = apps.WithEnterpriseURLs(cfg.BaseURL, cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrAuthentication, err)
		}
	}

	return &Authenticator{
		namespace: namespace,
		repo:      repo,
		apps:      apps,
		logger:    logger.With().Str("component", "app-auth").Logger(),
		now:       time.Now,
	}, nil
}

// AccessToken discovers the app installation for the repository and creates
// a fresh installation access token for it.
func (a *Authenticator) AccessToken(ctx context.Context) (AccessToken, error) {
	installation, resp, err := a.apps.Apps.FindRepositoryInstallation(ctx, a.namespace, a.repo)
	if err != nil {
		return AccessToken{}, fmt.Errorf(
			"%w: locating app installation for %s/%s: %w", ErrAuthentication, a.namespace, a.repo, err,
		)
	}
	if resp.StatusCode != http.StatusOK {
		return AccessToken{}, fmt.Errorf(
			"%w: unexpected status %s locating app installation for %s/%s",
			ErrAuthentication, resp.Status, a.namespace, a.repo,
		)
	}

	token, resp, err := a.apps.Apps.CreateInstallationToken(ctx, installation.GetID(), nil)
	if err != nil {
		return AccessToken{}, fmt.Errorf("%w: creating installation access token: %w", ErrAuthentication, err)
	}
	if resp.StatusCode != http.StatusCreated {
		return AccessToken{}, fmt.Errorf(
			"%w: unexpected status %s creating installation access token", ErrAuthentication, resp.Status,
		)
	}

	issued := a.now()
	expires := token.GetExpiresAt().Time
	if expires.IsZero() {
		expires = issued.Add(installationTokenLifetime)
	}

	a.logger.Debug().
		Int64("installation_id", installation.GetID()).
		Time("expires_at", expires).
		Msg("Fetched installation access token")

	return AccessToken{
		Token:     token.GetToken(),
		IssuedAt:  issued,
		ExpiresAt: expires,
	}, nil
}
