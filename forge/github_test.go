package forge

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/google/go-github/v73/github"
	"github.com/migueleliasweb/go-github-mock/src/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thoth-station/source-management/internal/testhelpers"
)

// newGitHubTestSession creates a GitHub session whose client talks to a
// mocked HTTP backend.
func newGitHubTestSession(t *testing.T, mockOptions ...mock.MockBackendOption) *Session {
	t.Helper()

	session, err := New(
		GitHub,
		"testowner/testrepo",
		WithLogger(testhelpers.Logger(t)),
		WithStaticToken("ghp_test"),
	)
	require.NoError(t, err)

	session.gh = github.NewClient(mock.NewMockedHTTPClient(mockOptions...))
	return session
}

func TestGetIssue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		title          string
		mockOptions    []mock.MockBackendOption
		expectedNumber int
		expectedFound  bool
		expectedError  string
	}{
		{
			name:  "issue found by exact title",
			title: "Build failed",
			mockOptions: []mock.MockBackendOption{
				mock.WithRequestMatch(
					mock.GetReposIssuesByOwnerByRepo,
					[]github.Issue{
						{Number: github.Ptr(1), Title: github.Ptr("Build failed badly"), State: github.Ptr("open")},
						{Number: github.Ptr(2), Title: github.Ptr("Build failed"), State: github.Ptr("open")},
					},
				),
			},
			expectedNumber: 2,
			expectedFound:  true,
		},
		{
			name:  "no matching issue",
			title: "Build failed",
			mockOptions: []mock.MockBackendOption{
				mock.WithRequestMatch(
					mock.GetReposIssuesByOwnerByRepo,
					[]github.Issue{
						{Number: github.Ptr(1), Title: github.Ptr("Another issue"), State: github.Ptr("open")},
					},
				),
			},
		},
		{
			name:  "pull requests are not issues",
			title: "Build failed",
			mockOptions: []mock.MockBackendOption{
				mock.WithRequestMatch(
					mock.GetReposIssuesByOwnerByRepo,
					[]github.Issue{
						{
							Number:           github.Ptr(3),
							Title:            github.Ptr("Build failed"),
							State:            github.Ptr("open"),
							PullRequestLinks: &github.PullRequestLinks{URL: github.Ptr("https://api.github.com/repos/testowner/testrepo/pulls/3")},
						},
					},
				),
			},
		},
		{
			name:  "issue found on a later page",
			title: "Build failed",
			mockOptions: []mock.MockBackendOption{
				mock.WithRequestMatchPages(
					mock.GetReposIssuesByOwnerByRepo,
					[]github.Issue{
						{Number: github.Ptr(1), Title: github.Ptr("Another issue"), State: github.Ptr("open")},
					},
					[]github.Issue{
						{Number: github.Ptr(2), Title: github.Ptr("Build failed"), State: github.Ptr("open")},
					},
				),
			},
			expectedNumber: 2,
			expectedFound:  true,
		},
		{
			name:  "listing fails",
			title: "Build failed",
			mockOptions: []mock.MockBackendOption{
				mock.WithRequestMatchHandler(
					mock.GetReposIssuesByOwnerByRepo,
					http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
						mock.WriteError(w, http.StatusInternalServerError, "boom")
					}),
				),
			},
			expectedError: "list_issues",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			session := newGitHubTestSession(t, tt.mockOptions...)

			issue, err := session.GetIssue(context.Background(), tt.title)
			if tt.expectedError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
				return
			}
			require.NoError(t, err)

			if !tt.expectedFound {
				assert.Nil(t, issue)
				return
			}
			require.NotNil(t, issue)
			assert.Equal(t, tt.expectedNumber, issue.Number)
			assert.Equal(t, tt.title, issue.Title)
		})
	}
}

func TestOpenIssueIfNotExists(t *testing.T) {
	t.Parallel()

	t.Run("creates issue with deduplicated labels", func(t *testing.T) {
		t.Parallel()

		var created github.IssueRequest
		session := newGitHubTestSession(t,
			mock.WithRequestMatch(
				mock.GetReposIssuesByOwnerByRepo,
				[]github.Issue{},
			),
			mock.WithRequestMatchHandler(
				mock.PostReposIssuesByOwnerByRepo,
				http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					require.NoError(t, json.NewDecoder(r.Body).Decode(&created))
					w.WriteHeader(http.StatusCreated)
					_, _ = w.Write(mock.MustMarshal(github.Issue{
						Number: github.Ptr(7),
						Title:  created.Title,
						State:  github.Ptr("open"),
					}))
				}),
			),
		)

		issue, err := session.OpenIssueIfNotExists(
			context.Background(),
			"Build failed",
			func() string { return "The build failed, see the attached log." },
			nil,
			[]string{"bug", "bot", "bug"},
		)
		require.NoError(t, err)
		require.NotNil(t, issue)
		assert.Equal(t, 7, issue.Number)
		assert.Equal(t, "Build failed", created.GetTitle())
		assert.Equal(t, "The build failed, see the attached log.", created.GetBody())
		require.NotNil(t, created.Labels)
		assert.Equal(t, []string{"bug", "bot"}, *created.Labels)
	})

	t.Run("existing issue gets a refresh comment", func(t *testing.T) {
		t.Parallel()

		var comment github.IssueComment
		session := newGitHubTestSession(t,
			mock.WithRequestMatch(
				mock.GetReposIssuesByOwnerByRepo,
				[]github.Issue{
					{Number: github.Ptr(7), Title: github.Ptr("Build failed"), State: github.Ptr("open")},
				},
			),
			mock.WithRequestMatchHandler(
				mock.PostReposIssuesCommentsByOwnerByRepoByIssueNumber,
				http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					require.NoError(t, json.NewDecoder(r.Body).Decode(&comment))
					w.WriteHeader(http.StatusCreated)
					_, _ = w.Write(mock.MustMarshal(github.IssueComment{ID: github.Ptr(int64(1))}))
				}),
			),
		)

		issue, err := session.OpenIssueIfNotExists(
			context.Background(),
			"Build failed",
			func() string { return "unused" },
			func(existing *Issue) string { return "Still failing as of today." },
			nil,
		)
		require.NoError(t, err)
		require.NotNil(t, issue)
		assert.Equal(t, 7, issue.Number)
		assert.Equal(t, "Still failing as of today.", comment.GetBody())
	})

	t.Run("existing issue without refresh producer is returned with no writes", func(t *testing.T) {
		t.Parallel()

		// Only the listing endpoint is mocked; any write would fail the call.
		session := newGitHubTestSession(t,
			mock.WithRequestMatch(
				mock.GetReposIssuesByOwnerByRepo,
				[]github.Issue{
					{Number: github.Ptr(7), Title: github.Ptr("Build failed"), State: github.Ptr("open")},
				},
			),
		)

		issue, err := session.OpenIssueIfNotExists(
			context.Background(),
			"Build failed",
			func() string { return "unused" },
			nil,
			nil,
		)
		require.NoError(t, err)
		require.NotNil(t, issue)
		assert.Equal(t, 7, issue.Number)
	})

	t.Run("empty refresh comment is not posted", func(t *testing.T) {
		t.Parallel()

		session := newGitHubTestSession(t,
			mock.WithRequestMatch(
				mock.GetReposIssuesByOwnerByRepo,
				[]github.Issue{
					{Number: github.Ptr(7), Title: github.Ptr("Build failed"), State: github.Ptr("open")},
				},
			),
		)

		issue, err := session.OpenIssueIfNotExists(
			context.Background(),
			"Build failed",
			func() string { return "unused" },
			func(existing *Issue) string { return "" },
			nil,
		)
		require.NoError(t, err)
		require.NotNil(t, issue)
	})
}

func TestOpenIssueIfNotExistsGuardsOnce(t *testing.T) {
	t.Parallel()

	auth := &countingAuthenticator{}
	session, err := New(
		GitHub,
		"testowner/testrepo",
		WithLogger(testhelpers.Logger(t)),
		withAuthenticator(auth),
	)
	require.NoError(t, err)

	session.gh = github.NewClient(mock.NewMockedHTTPClient(
		mock.WithRequestMatch(
			mock.GetReposIssuesByOwnerByRepo,
			[]github.Issue{
				{Number: github.Ptr(7), Title: github.Ptr("Build failed"), State: github.Ptr("open")},
			},
		),
	))

	nowCalls := 0
	session.now = func() time.Time {
		nowCalls++
		return time.Now()
	}

	issue, err := session.OpenIssueIfNotExists(
		context.Background(),
		"Build failed",
		func() string { return "unused" },
		nil,
		nil,
	)
	require.NoError(t, err)
	require.NotNil(t, issue)

	// One refresh, and the inner issue scan does not re-run the deadline
	// check: one clock read for the check, one for the new deadline.
	assert.Equal(t, 1, auth.calls)
	assert.Equal(t, 2, nowCalls)
}

func TestCloseIssueIfExists(t *testing.T) {
	t.Parallel()

	t.Run("closes with a comment", func(t *testing.T) {
		t.Parallel()

		var edit github.IssueRequest
		commented := false
		session := newGitHubTestSession(t,
			mock.WithRequestMatch(
				mock.GetReposIssuesByOwnerByRepo,
				[]github.Issue{
					{Number: github.Ptr(9), Title: github.Ptr("Update dependencies"), State: github.Ptr("open")},
				},
			),
			mock.WithRequestMatchHandler(
				mock.PostReposIssuesCommentsByOwnerByRepoByIssueNumber,
				http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					commented = true
					w.WriteHeader(http.StatusCreated)
					_, _ = w.Write(mock.MustMarshal(github.IssueComment{ID: github.Ptr(int64(1))}))
				}),
			),
			mock.WithRequestMatchHandler(
				mock.PatchReposIssuesByOwnerByRepoByIssueNumber,
				http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					require.NoError(t, json.NewDecoder(r.Body).Decode(&edit))
					_, _ = w.Write(mock.MustMarshal(github.Issue{
						Number: github.Ptr(9),
						State:  github.Ptr("closed"),
					}))
				}),
			),
		)

		err := session.CloseIssueIfExists(context.Background(), "Update dependencies", "Superseded by a newer update.")
		require.NoError(t, err)
		assert.True(t, commented)
		assert.Equal(t, "closed", edit.GetState())
	})

	t.Run("missing issue is a no-op", func(t *testing.T) {
		t.Parallel()

		session := newGitHubTestSession(t,
			mock.WithRequestMatch(
				mock.GetReposIssuesByOwnerByRepo,
				[]github.Issue{},
			),
		)

		err := session.CloseIssueIfExists(context.Background(), "Update dependencies", "never posted")
		require.NoError(t, err)
	})
}

func TestAssignGitHub(t *testing.T) {
	t.Parallel()

	var payload struct {
		Assignees []string `json:"assignees"`
	}
	session := newGitHubTestSession(t,
		mock.WithRequestMatchHandler(
			mock.PostReposIssuesAssigneesByOwnerByRepoByIssueNumber,
			http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
				w.WriteHeader(http.StatusCreated)
				_, _ = w.Write(mock.MustMarshal(github.Issue{Number: github.Ptr(5)}))
			}),
		),
	)

	err := session.Assign(context.Background(), &Issue{Number: 5}, []string{"alice", "bob"})
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, payload.Assignees)
}

func TestOpenMergeRequest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		fork         bool
		expectedHead string
	}{
		{
			name:         "regular repository",
			fork:         false,
			expectedHead: "update-deps",
		},
		{
			name:         "fork qualifies the head with the namespace",
			fork:         true,
			expectedHead: "testowner:update-deps",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var created github.NewPullRequest
			var labels []string
			session := newGitHubTestSession(t,
				mock.WithRequestMatch(
					mock.GetReposByOwnerByRepo,
					github.Repository{Fork: github.Ptr(tt.fork)},
				),
				mock.WithRequestMatchHandler(
					mock.PostReposPullsByOwnerByRepo,
					http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
						require.NoError(t, json.NewDecoder(r.Body).Decode(&created))
						w.WriteHeader(http.StatusCreated)
						_, _ = w.Write(mock.MustMarshal(github.PullRequest{
							Number: github.Ptr(11),
							Title:  created.Title,
							State:  github.Ptr("open"),
							Head:   &github.PullRequestBranch{Ref: github.Ptr("update-deps")},
						}))
					}),
				),
				mock.WithRequestMatchHandler(
					mock.PostReposIssuesLabelsByOwnerByRepoByIssueNumber,
					http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
						require.NoError(t, json.NewDecoder(r.Body).Decode(&labels))
						_, _ = w.Write(mock.MustMarshal([]github.Label{}))
					}),
				),
			)

			pr, err := session.OpenMergeRequest(
				context.Background(),
				"Update dependencies",
				"update-deps",
				"Automatic dependency update.",
				[]string{"bot"},
			)
			require.NoError(t, err)
			require.NotNil(t, pr)
			assert.Equal(t, 11, pr.Number)
			assert.Equal(t, "update-deps", pr.SourceBranch)
			assert.Equal(t, tt.expectedHead, created.GetHead())
			assert.Equal(t, "master", created.GetBase())
			assert.Equal(t, []string{"bot"}, labels)
		})
	}

	t.Run("creation failure wraps the sentinel", func(t *testing.T) {
		t.Parallel()

		session := newGitHubTestSession(t,
			mock.WithRequestMatch(
				mock.GetReposByOwnerByRepo,
				github.Repository{Fork: github.Ptr(false)},
			),
			mock.WithRequestMatchHandler(
				mock.PostReposPullsByOwnerByRepo,
				http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					mock.WriteError(w, http.StatusUnprocessableEntity, "validation failed")
				}),
			),
		)

		_, err := session.OpenMergeRequest(context.Background(), "Update dependencies", "update-deps", "", nil)
		require.ErrorIs(t, err, ErrCreatePR)
	})
}

func TestListBranchesGitHub(t *testing.T) {
	t.Parallel()

	t.Run("lists branch names", func(t *testing.T) {
		t.Parallel()

		session := newGitHubTestSession(t,
			mock.WithRequestMatch(
				mock.GetReposBranchesByOwnerByRepo,
				[]github.Branch{
					{Name: github.Ptr("master")},
					{Name: github.Ptr("update-deps")},
				},
			),
		)

		branches, err := session.ListBranches(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []Branch{{Name: "master"}, {Name: "update-deps"}}, branches)
	})

	t.Run("failure wraps the sentinel", func(t *testing.T) {
		t.Parallel()

		session := newGitHubTestSession(t,
			mock.WithRequestMatchHandler(
				mock.GetReposBranchesByOwnerByRepo,
				http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					mock.WriteError(w, http.StatusServiceUnavailable, "unavailable")
				}),
			),
		)

		_, err := session.ListBranches(context.Background())
		require.ErrorIs(t, err, ErrFetchBranches)
	})
}

func TestGetPRsGitHub(t *testing.T) {
	t.Parallel()

	t.Run("lists open pull requests", func(t *testing.T) {
		t.Parallel()

		session := newGitHubTestSession(t,
			mock.WithRequestMatch(
				mock.GetReposPullsByOwnerByRepo,
				[]github.PullRequest{
					{
						Number: github.Ptr(11),
						Title:  github.Ptr("Update dependencies"),
						State:  github.Ptr("open"),
						Head:   &github.PullRequestBranch{Ref: github.Ptr("update-deps")},
					},
				},
			),
		)

		prs, err := session.GetPRs(context.Background())
		require.NoError(t, err)
		require.Len(t, prs, 1)
		assert.Equal(t, 11, prs[0].Number)
		assert.Equal(t, "update-deps", prs[0].SourceBranch)
	})

	t.Run("failure wraps the sentinel", func(t *testing.T) {
		t.Parallel()

		session := newGitHubTestSession(t,
			mock.WithRequestMatchHandler(
				mock.GetReposPullsByOwnerByRepo,
				http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					mock.WriteError(w, http.StatusInternalServerError, "boom")
				}),
			),
		)

		_, err := session.GetPRs(context.Background())
		require.ErrorIs(t, err, ErrFetchPRs)
	})
}

func TestDeleteBranchGitHub(t *testing.T) {
	t.Parallel()

	var deletedPath string
	session := newGitHubTestSession(t,
		mock.WithRequestMatchHandler(
			mock.DeleteReposGitRefsByOwnerByRepoByRef,
			http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				deletedPath = r.URL.Path
				w.WriteHeader(http.StatusNoContent)
			}),
		),
	)

	err := session.DeleteBranch(context.Background(), "update-deps")
	require.NoError(t, err)
	assert.Contains(t, deletedPath, "heads/update-deps")
}
