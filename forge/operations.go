package forge

import (
	"context"
	"fmt"
)

// defaultBaseBranch is the integration branch merge requests target.
const defaultBaseBranch = "master"

// GetIssue returns the first open issue with exactly the given title, or nil
// when no such issue exists. Absence is not an error.
func (s *Session) GetIssue(ctx context.Context, title string) (*Issue, error) {
	if err := s.refreshIfNeeded(ctx); err != nil {
		return nil, err
	}
	s.metrics.IncForgeOperation(ctx, s.forge.String(), "get_issue")

	return s.findIssue(ctx, title)
}

// findIssue scans the open issues for an exact title match. Callers hold the
// token guard already; no deadline check or operation counter here.
func (s *Session) findIssue(ctx context.Context, title string) (*Issue, error) {
	issues, err := s.listOpenIssues(ctx)
	if err != nil {
		return nil, err
	}
	for _, issue := range issues {
		if issue.Title == title {
			found := issue
			return &found, nil
		}
	}
	return nil, nil
}

// OpenIssueIfNotExists opens an issue with the given title unless one is
// already open. For an existing issue, refreshComment (when provided) is
// called and its non-empty result posted as a comment. For a new issue, body
// produces the issue text and the label set is attached deduplicated.
func (s *Session) OpenIssueIfNotExists(
	ctx context.Context,
	title string,
	body func() string,
	refreshComment func(*Issue) string,
	labels []string,
) (*Issue, error) {
	if err := s.refreshIfNeeded(ctx); err != nil {
		return nil, err
	}
	s.metrics.IncForgeOperation(ctx, s.forge.String(), "open_issue_if_not_exists")
	s.logger.Debug().Str("title", title).Msg("Reporting issue")

	issue, err := s.findIssue(ctx, title)
	if err != nil {
		return nil, err
	}

	if issue != nil {
		s.logger.Info().Str("title", issue.Title).Msg("Issue already noted on upstream")
		if refreshComment == nil {
			return issue, nil
		}
		commentBody := refreshComment(issue)
		if commentBody == "" {
			s.logger.Debug().Msg("Refresh comment not added")
			return issue, nil
		}
		if err := s.commentOnIssue(ctx, issue, commentBody); err != nil {
			return nil, err
		}
		s.logger.Info().Str("title", issue.Title).Msg("Added refresh comment to issue")
		return issue, nil
	}

	issue, err = s.createIssue(ctx, title, body(), dedupeLabels(labels))
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("title", title).Int("number", issue.Number).Msg("Reported issue")
	return issue, nil
}

// CloseIssueIfExists closes the open issue with the given title, posting the
// comment first when one is provided. Missing issues are a no-op.
func (s *Session) CloseIssueIfExists(ctx context.Context, title, comment string) error {
	if err := s.refreshIfNeeded(ctx); err != nil {
		return err
	}
	s.metrics.IncForgeOperation(ctx, s.forge.String(), "close_issue_if_exists")

	issue, err := s.findIssue(ctx, title)
	if err != nil {
		return err
	}
	if issue == nil {
		s.logger.Debug().Str("title", title).Msg("Issue not found, not closing it")
		return nil
	}

	if comment != "" {
		if err := s.commentOnIssue(ctx, issue, comment); err != nil {
			return err
		}
	}
	return s.closeIssue(ctx, issue)
}

// Assign assigns users, given by their account names, to the issue. GitLab
// resolves each username to its numeric user ID before assigning.
func (s *Session) Assign(ctx context.Context, issue *Issue, assignees []string) error {
	if err := s.refreshIfNeeded(ctx); err != nil {
		return err
	}
	s.metrics.IncForgeOperation(ctx, s.forge.String(), "assign")

	var err error
	switch s.forge {
	case GitHub:
		err = s.githubAssign(ctx, issue, assignees)
	case GitLab:
		err = s.gitlabAssign(ctx, issue, assignees)
	default:
		err = fmt.Errorf("unsupported forge type: %s", s.forge)
	}
	if err != nil {
		s.metrics.IncForgeError(ctx, s.forge.String(), "assign")
	}
	return err
}

// OpenMergeRequest opens a pull/merge request from branchName into the
// integration branch and attaches the given labels. When the repository is a
// fork, the namespace qualifies the source of the request.
func (s *Session) OpenMergeRequest(
	ctx context.Context,
	commitMessage, branchName, body string,
	labels []string,
) (*PullRequest, error) {
	if err := s.refreshIfNeeded(ctx); err != nil {
		return nil, err
	}
	s.metrics.IncForgeOperation(ctx, s.forge.String(), "open_merge_request")

	var (
		pr  *PullRequest
		err error
	)
	switch s.forge {
	case GitHub:
		pr, err = s.githubCreatePR(ctx, commitMessage, branchName, body, labels)
	case GitLab:
		pr, err = s.gitlabCreateMR(ctx, commitMessage, branchName, body, labels)
	default:
		err = fmt.Errorf("unsupported forge type: %s", s.forge)
	}
	if err != nil {
		s.metrics.IncForgeError(ctx, s.forge.String(), "open_merge_request")
		return nil, fmt.Errorf("%w: %w", ErrCreatePR, err)
	}

	s.logger.Info().Int("number", pr.Number).Str("url", pr.URL).Msg("Newly created pull request")
	return pr, nil
}

// ListBranches returns the branches available on the remote repository.
func (s *Session) ListBranches(ctx context.Context) ([]Branch, error) {
	if err := s.refreshIfNeeded(ctx); err != nil {
		return nil, err
	}
	s.metrics.IncForgeOperation(ctx, s.forge.String(), "list_branches")

	var (
		branches []Branch
		err      error
	)
	switch s.forge {
	case GitHub:
		branches, err = s.githubListBranches(ctx)
	case GitLab:
		branches, err = s.gitlabListBranches(ctx)
	default:
		err = fmt.Errorf("unsupported forge type: %s", s.forge)
	}
	if err != nil {
		s.metrics.IncForgeError(ctx, s.forge.String(), "list_branches")
		return nil, fmt.Errorf("%w: %w", ErrFetchBranches, err)
	}
	return branches, nil
}

// GetPRs returns the open pull/merge requests of the repository.
func (s *Session) GetPRs(ctx context.Context) ([]PullRequest, error) {
	if err := s.refreshIfNeeded(ctx); err != nil {
		return nil, err
	}
	s.metrics.IncForgeOperation(ctx, s.forge.String(), "get_prs")

	var (
		prs []PullRequest
		err error
	)
	switch s.forge {
	case GitHub:
		prs, err = s.githubListPRs(ctx)
	case GitLab:
		prs, err = s.gitlabListMRs(ctx)
	default:
		err = fmt.Errorf("unsupported forge type: %s", s.forge)
	}
	if err != nil {
		s.metrics.IncForgeError(ctx, s.forge.String(), "get_prs")
		return nil, fmt.Errorf("%w: %w", ErrFetchPRs, err)
	}
	return prs, nil
}

// DeleteBranch deletes the given branch from the remote repository.
func (s *Session) DeleteBranch(ctx context.Context, branchName string) error {
	if err := s.refreshIfNeeded(ctx); err != nil {
		return err
	}
	s.metrics.IncForgeOperation(ctx, s.forge.String(), "delete_branch")

	var err error
	switch s.forge {
	case GitHub:
		err = s.githubDeleteBranch(ctx, branchName)
	case GitLab:
		err = s.gitlabDeleteBranch(ctx, branchName)
	default:
		err = fmt.Errorf("unsupported forge type: %s", s.forge)
	}
	if err != nil {
		s.metrics.IncForgeError(ctx, s.forge.String(), "delete_branch")
	}
	return err
}

// ListOpenIssues returns the open issues of the repository. Pull/merge
// requests are not included even where the forge reports them as issues.
func (s *Session) ListOpenIssues(ctx context.Context) ([]Issue, error) {
	if err := s.refreshIfNeeded(ctx); err != nil {
		return nil, err
	}
	s.metrics.IncForgeOperation(ctx, s.forge.String(), "list_open_issues")

	issues, err := s.listOpenIssues(ctx)
	if err != nil {
		s.metrics.IncForgeError(ctx, s.forge.String(), "list_open_issues")
	}
	return issues, err
}

// listOpenIssues dispatches the open-issue listing to the forge client.
func (s *Session) listOpenIssues(ctx context.Context) ([]Issue, error) {
	switch s.forge {
	case GitHub:
		return s.githubListOpenIssues(ctx)
	case GitLab:
		return s.gitlabListOpenIssues(ctx)
	default:
		return nil, fmt.Errorf("unsupported forge type: %s", s.forge)
	}
}

func (s *Session) createIssue(ctx context.Context, title, body string, labels []string) (*Issue, error) {
	switch s.forge {
	case GitHub:
		return s.githubCreateIssue(ctx, title, body, labels)
	case GitLab:
		return s.gitlabCreateIssue(ctx, title, body, labels)
	default:
		return nil, fmt.Errorf("unsupported forge type: %s", s.forge)
	}
}

func (s *Session) commentOnIssue(ctx context.Context, issue *Issue, body string) error {
	switch s.forge {
	case GitHub:
		return s.githubCommentOnIssue(ctx, issue, body)
	case GitLab:
		return s.gitlabCommentOnIssue(ctx, issue, body)
	default:
		return fmt.Errorf("unsupported forge type: %s", s.forge)
	}
}

func (s *Session) closeIssue(ctx context.Context, issue *Issue) error {
	switch s.forge {
	case GitHub:
		return s.githubCloseIssue(ctx, issue)
	case GitLab:
		return s.gitlabCloseIssue(ctx, issue)
	default:
		return fmt.Errorf("unsupported forge type: %s", s.forge)
	}
}

// dedupeLabels removes duplicate labels, preserving first-seen order.
func dedupeLabels(labels []string) []string {
	seen := make(map[string]struct{}, len(labels))
	out := make([]string, 0, len(labels))
	for _, label := range labels {
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		out = append(out, label)
	}
	return out
}
