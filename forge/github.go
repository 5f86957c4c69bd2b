package forge

import (
	"context"

	"github.com/google/go-github/v73/github"
)

func ghStatus(resp *github.Response) int {
	if resp == nil {
		return 0
	}
	return resp.StatusCode
}

func (s *Session) githubListOpenIssues(ctx context.Context) ([]Issue, error) {
	opts := &github.IssueListByRepoOptions{
		State:       "open",
		ListOptions: github.ListOptions{PerPage: 100},
	}

	var out []Issue
	for {
		issues, resp, err := s.gh.Issues.ListByRepo(ctx, s.namespace, s.repo, opts)
		if err != nil {
			return nil, &APIError{Operation: "list_issues", Slug: s.Slug(), StatusCode: ghStatus(resp), Underlying: err}
		}
		for _, issue := range issues {
			// GitHub reports pull requests through the issues API as well.
			if issue.IsPullRequest() {
				continue
			}
			out = append(out, Issue{
				Number: issue.GetNumber(),
				Title:  issue.GetTitle(),
				State:  issue.GetState(),
				URL:    issue.GetHTMLURL(),
			})
		}
		if resp.NextPage == 0 {
			break
		}
		// IssueListByRepoOptions also embeds cursor options, so the page
		// selector must be qualified.
		opts.ListOptions.Page = resp.NextPage
	}
	return out, nil
}

func (s *Session) githubCreateIssue(ctx context.Context, title, body string, labels []string) (*Issue, error) {
	req := &github.IssueRequest{
		Title: github.Ptr(title),
		Body:  github.Ptr(body),
	}
	if len(labels) > 0 {
		req.Labels = &labels
	}

	created, resp, err := s.gh.Issues.Create(ctx, s.namespace, s.repo, req)
	if err != nil {
		return nil, &APIError{Operation: "create_issue", Slug: s.Slug(), StatusCode: ghStatus(resp), Underlying: err}
	}
	return &Issue{
		Number: created.GetNumber(),
		Title:  created.GetTitle(),
		State:  created.GetState(),
		URL:    created.GetHTMLURL(),
	}, nil
}

func (s *Session) githubCommentOnIssue(ctx context.Context, issue *Issue, body string) error {
	_, resp, err := s.gh.Issues.CreateComment(ctx, s.namespace, s.repo, issue.Number, &github.IssueComment{
		Body: github.Ptr(body),
	})
	if err != nil {
		return &APIError{Operation: "comment_issue", Slug: s.Slug(), StatusCode: ghStatus(resp), Underlying: err}
	}
	return nil
}

func (s *Session) githubCloseIssue(ctx context.Context, issue *Issue) error {
	_, resp, err := s.gh.Issues.Edit(ctx, s.namespace, s.repo, issue.Number, &github.IssueRequest{
		State: github.Ptr("closed"),
	})
	if err != nil {
		return &APIError{Operation: "close_issue", Slug: s.Slug(), StatusCode: ghStatus(resp), Underlying: err}
	}
	return nil
}

func (s *Session) githubAssign(ctx context.Context, issue *Issue, assignees []string) error {
	_, resp, err := s.gh.Issues.AddAssignees(ctx, s.namespace, s.repo, issue.Number, assignees)
	if err != nil {
		return &APIError{Operation: "assign", Slug: s.Slug(), StatusCode: ghStatus(resp), Underlying: err}
	}
	return nil
}

func (s *Session) githubCreatePR(ctx context.Context, title, branchName, body string, labels []string) (*PullRequest, error) {
	head := branchName
	if fork, err := s.githubIsFork(ctx); err != nil {
		return nil, err
	} else if fork {
		head = s.namespace + ":" + branchName
	}

	created, resp, err := s.gh.PullRequests.Create(ctx, s.namespace, s.repo, &github.NewPullRequest{
		Title: github.Ptr(title),
		Head:  github.Ptr(head),
		Base:  github.Ptr(defaultBaseBranch),
		Body:  github.Ptr(body),
	})
	if err != nil {
		return nil, &APIError{Operation: "create_pr", Slug: s.Slug(), StatusCode: ghStatus(resp), Underlying: err}
	}

	// The create endpoint does not accept labels; they go through the
	// issues API after creation.
	if len(labels) > 0 {
		_, resp, err = s.gh.Issues.AddLabelsToIssue(ctx, s.namespace, s.repo, created.GetNumber(), labels)
		if err != nil {
			return nil, &APIError{Operation: "label_pr", Slug: s.Slug(), StatusCode: ghStatus(resp), Underlying: err}
		}
	}

	return &PullRequest{
		Number:       created.GetNumber(),
		Title:        created.GetTitle(),
		SourceBranch: branchName,
		State:        created.GetState(),
		URL:          created.GetHTMLURL(),
	}, nil
}

func (s *Session) githubIsFork(ctx context.Context) (bool, error) {
	repo, resp, err := s.gh.Repositories.Get(ctx, s.namespace, s.repo)
	if err != nil {
		return false, &APIError{Operation: "get_repository", Slug: s.Slug(), StatusCode: ghStatus(resp), Underlying: err}
	}
	return repo.GetFork(), nil
}

func (s *Session) githubListBranches(ctx context.Context) ([]Branch, error) {
	opts := &github.BranchListOptions{
		ListOptions: github.ListOptions{PerPage: 100},
	}

	var out []Branch
	for {
		branches, resp, err := s.gh.Repositories.ListBranches(ctx, s.namespace, s.repo, opts)
		if err != nil {
			return nil, &APIError{Operation: "list_branches", Slug: s.Slug(), StatusCode: ghStatus(resp), Underlying: err}
		}
		for _, branch := range branches {
			out = append(out, Branch{Name: branch.GetName()})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return out, nil
}

func (s *Session) githubListPRs(ctx context.Context) ([]PullRequest, error) {
	opts := &github.PullRequestListOptions{
		State:       "open",
		ListOptions: github.ListOptions{PerPage: 100},
	}

	var out []PullRequest
	for {
		prs, resp, err := s.gh.PullRequests.List(ctx, s.namespace, s.repo, opts)
		if err != nil {
			return nil, &APIError{Operation: "list_prs", Slug: s.Slug(), StatusCode: ghStatus(resp), Underlying: err}
		}
		for _, pr := range prs {
			out = append(out, PullRequest{
				Number:       pr.GetNumber(),
				Title:        pr.GetTitle(),
				SourceBranch: pr.GetHead().GetRef(),
				State:        pr.GetState(),
				URL:          pr.GetHTMLURL(),
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return out, nil
}

func (s *Session) githubDeleteBranch(ctx context.Context, branchName string) error {
	resp, err := s.gh.Git.DeleteRef(ctx, s.namespace, s.repo, "heads/"+branchName)
	if err != nil {
		return &APIError{Operation: "delete_branch", Slug: s.Slug(), StatusCode: ghStatus(resp), Underlying: err}
	}
	return nil
}
