package forge

import (
	"context"
	"fmt"
	"time"

	"github.com/google/go-github/v73/github"
	"github.com/rs/zerolog"
	gitlab "gitlab.com/gitlab-org/api/client-go"
	"golang.org/x/oauth2"

	"github.com/thoth-station/source-management/base"
	"github.com/thoth-station/source-management/config"
	"github.com/thoth-station/source-management/telemetry"
)

// tokenRefreshInterval is how long a fetched installation token is trusted
// before the next operation refreshes it. The 30 second margin inside the
// 10 minute token lifetime keeps in-flight calls off expired tokens.
const tokenRefreshInterval = installationTokenLifetime - 30*time.Second

// Session is a connection to one repository on one forge. It owns the
// current access token and the underlying forge client.
//
// A Session is not safe for concurrent use: the token check-and-refresh that
// precedes every operation is not atomic.
type Session struct {
	forge     Type
	namespace string
	repo      string

	// installation is true when the token is a managed GitHub App
	// installation token rather than a caller-supplied static token.
	installation bool
	token        AccessToken
	deadline     time.Time
	auth         tokenAuthenticator

	gh *github.Client
	gl *gitlab.Client

	logger  zerolog.Logger
	metrics *telemetry.Metrics
	now     func() time.Time
}

// Option is a function that can be used to configure a Session.
type Option func(*sessionOptions)

type sessionOptions struct {
	logger      zerolog.Logger
	metrics     *telemetry.Metrics
	baseURL     string
	staticToken string
	githubApp   *config.GitHub
	auth        tokenAuthenticator
}

// WithLogger sets the logger for the session.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *sessionOptions) {
		o.logger = logger
	}
}

// WithMetrics sets the metrics instance for the session.
func WithMetrics(metrics *telemetry.Metrics) Option {
	return func(o *sessionOptions) {
		o.metrics = metrics
	}
}

// WithBaseURL sets the API base URL, for enterprise or self-hosted forges.
func WithBaseURL(baseURL string) Option {
	return func(o *sessionOptions) {
		o.baseURL = baseURL
	}
}

// WithStaticToken authenticates with a caller-supplied token. Sessions using
// a static token never refresh it.
func WithStaticToken(token string) Option {
	return func(o *sessionOptions) {
		o.staticToken = token
	}
}

// WithGitHubApp authenticates as a GitHub App installation. The installation
// access token is fetched on first use and refreshed transparently before any
// operation once its deadline passes. GitHub only.
func WithGitHubApp(cfg config.GitHub) Option {
	return func(o *sessionOptions) {
		o.githubApp = &cfg
	}
}

// withAuthenticator swaps in a custom token authenticator. Used in tests.
func withAuthenticator(auth tokenAuthenticator) Option {
	return func(o *sessionOptions) {
		o.auth = auth
	}
}

// New creates a Session for the repository identified by slug
// ("namespace/repo") on the given forge. Either WithStaticToken or
// WithGitHubApp must be provided.
func New(forgeType Type, slug string, options ...Option) (*Session, error) {
	opts := &sessionOptions{logger: zerolog.Nop()}
	for _, opt := range options {
		opt(opts)
	}

	namespace, repo, err := ParseSlug(slug)
	if err != nil {
		return nil, err
	}

	s := &Session{
		forge:     forgeType,
		namespace: namespace,
		repo:      repo,
		logger: opts.logger.With().
			Str("forge", forgeType.String()).
			Str("slug", slug).
			Logger(),
		metrics: opts.metrics,
		now:     time.Now,
	}

	switch {
	case opts.auth != nil:
		s.installation = true
		s.auth = opts.auth
	case opts.githubApp != nil:
		if forgeType != GitHub {
			return nil, fmt.Errorf("%w: app installation auth is only available for GitHub", ErrAuthentication)
		}
		auth, err := NewAuthenticator(opts.logger, *opts.githubApp, slug)
		if err != nil {
			return nil, err
		}
		s.installation = true
		s.auth = auth
	case opts.staticToken != "":
		s.token = AccessToken{Token: opts.staticToken}
	default:
		return nil, fmt.Errorf("%w: a static token or a GitHub App installation is required", ErrAuthentication)
	}

	switch forgeType {
	case GitHub:
		httpClient := base.NewClient("github-rest", base.WithLogger(s.logger))
		httpClient.Transport = &oauth2.Transport{
			Source: sessionTokenSource{s},
			Base:   httpClient.Transport,
		}
		gh := github.NewClient(httpClient)
		if opts.baseURL != "" && opts.baseURL != config.DefaultGitHubBaseURL {
			gh, err = gh.WithEnterpriseURLs(opts.baseURL, opts.baseURL)
			if err != nil {
				return nil, err
			}
		}
		s.gh = gh
	case GitLab:
		baseURL := opts.baseURL
		if baseURL == "" {
			baseURL = config.DefaultGitLabBaseURL
		}
		gl, err := gitlab.NewClient(
			opts.staticToken,
			gitlab.WithBaseURL(baseURL),
			gitlab.WithHTTPClient(base.NewClient("gitlab-rest", base.WithLogger(s.logger))),
		)
		if err != nil {
			return nil, err
		}
		s.gl = gl
	default:
		return nil, fmt.Errorf("unsupported forge type: %s", forgeType)
	}

	return s, nil
}

// Slug returns the namespace/repo path of the session's repository.
func (s *Session) Slug() string {
	return s.namespace + "/" + s.repo
}

// Token returns the current access token and its refresh deadline,
// refreshing first if the deadline has passed.
func (s *Session) Token(ctx context.Context) (AccessToken, time.Time, error) {
	if err := s.refreshIfNeeded(ctx); err != nil {
		return AccessToken{}, time.Time{}, err
	}
	return s.token, s.deadline, nil
}

// refreshIfNeeded replaces the installation access token once its deadline
// has passed. Static-token sessions are a no-op. The zero deadline on a new
// session forces the first operation to fetch a token, so the session never
// issues a forge call with an expired token.
func (s *Session) refreshIfNeeded(ctx context.Context) error {
	if !s.installation {
		return nil
	}
	if s.now().Before(s.deadline) {
		return nil
	}

	token, err := s.auth.AccessToken(ctx)
	if err != nil {
		return err
	}
	s.token = token
	s.deadline = s.now().Add(tokenRefreshInterval)
	s.metrics.IncTokenRefresh(ctx)
	s.logger.Debug().Time("deadline", s.deadline).Msg("Refreshed installation access token")
	return nil
}

// sessionTokenSource feeds the session's current token to the oauth2
// transport. Operations refresh before delegating, so the token read here is
// always inside its deadline.
type sessionTokenSource struct {
	s *Session
}

func (ts sessionTokenSource) Token() (*oauth2.Token, error) {
	return &oauth2.Token{AccessToken: ts.s.token.Token}, nil
}
