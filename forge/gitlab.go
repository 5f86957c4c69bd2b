package forge

import (
	"context"
	"fmt"

	gitlab "gitlab.com/gitlab-org/api/client-go"
)

func glStatus(resp *gitlab.Response) int {
	if resp == nil {
		return 0
	}
	return resp.StatusCode
}

func (s *Session) gitlabListOpenIssues(ctx context.Context) ([]Issue, error) {
	opts := &gitlab.ListProjectIssuesOptions{
		State:       gitlab.Ptr("opened"),
		ListOptions: gitlab.ListOptions{PerPage: 100},
	}

	var out []Issue
	for {
		issues, resp, err := s.gl.Issues.ListProjectIssues(s.Slug(), opts, gitlab.WithContext(ctx))
		if err != nil {
			return nil, &APIError{Operation: "list_issues", Slug: s.Slug(), StatusCode: glStatus(resp), Underlying: err}
		}
		for _, issue := range issues {
			out = append(out, Issue{
				Number: issue.IID,
				Title:  issue.Title,
				State:  issue.State,
				URL:    issue.WebURL,
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return out, nil
}

func (s *Session) gitlabCreateIssue(ctx context.Context, title, body string, labels []string) (*Issue, error) {
	opts := &gitlab.CreateIssueOptions{
		Title:       gitlab.Ptr(title),
		Description: gitlab.Ptr(body),
	}
	if len(labels) > 0 {
		opts.Labels = (*gitlab.LabelOptions)(&labels)
	}

	created, resp, err := s.gl.Issues.CreateIssue(s.Slug(), opts, gitlab.WithContext(ctx))
	if err != nil {
		return nil, &APIError{Operation: "create_issue", Slug: s.Slug(), StatusCode: glStatus(resp), Underlying: err}
	}
	return &Issue{
		Number: created.IID,
		Title:  created.Title,
		State:  created.State,
		URL:    created.WebURL,
	}, nil
}

func (s *Session) gitlabCommentOnIssue(ctx context.Context, issue *Issue, body string) error {
	_, resp, err := s.gl.Notes.CreateIssueNote(s.Slug(), issue.Number, &gitlab.CreateIssueNoteOptions{
		Body: gitlab.Ptr(body),
	}, gitlab.WithContext(ctx))
	if err != nil {
		return &APIError{Operation: "comment_issue", Slug: s.Slug(), StatusCode: glStatus(resp), Underlying: err}
	}
	return nil
}

func (s *Session) gitlabCloseIssue(ctx context.Context, issue *Issue) error {
	_, resp, err := s.gl.Issues.UpdateIssue(s.Slug(), issue.Number, &gitlab.UpdateIssueOptions{
		StateEvent: gitlab.Ptr("close"),
	}, gitlab.WithContext(ctx))
	if err != nil {
		return &APIError{Operation: "close_issue", Slug: s.Slug(), StatusCode: glStatus(resp), Underlying: err}
	}
	return nil
}

// gitlabAssign resolves each username to its numeric user ID first; the
// assignment endpoint accepts only IDs.
func (s *Session) gitlabAssign(ctx context.Context, issue *Issue, assignees []string) error {
	ids := make([]int, 0, len(assignees))
	for _, username := range assignees {
		users, resp, err := s.gl.Users.ListUsers(&gitlab.ListUsersOptions{
			Username: gitlab.Ptr(username),
		}, gitlab.WithContext(ctx))
		if err != nil {
			return &APIError{Operation: "resolve_user", Slug: s.Slug(), StatusCode: glStatus(resp), Underlying: err}
		}
		if len(users) == 0 {
			return &APIError{
				Operation:  "resolve_user",
				Slug:       s.Slug(),
				Underlying: fmt.Errorf("no user found for username %q", username),
			}
		}
		ids = append(ids, users[0].ID)
	}

	_, resp, err := s.gl.Issues.UpdateIssue(s.Slug(), issue.Number, &gitlab.UpdateIssueOptions{
		AssigneeIDs: &ids,
	}, gitlab.WithContext(ctx))
	if err != nil {
		return &APIError{Operation: "assign", Slug: s.Slug(), StatusCode: glStatus(resp), Underlying: err}
	}
	return nil
}

func (s *Session) gitlabCreateMR(ctx context.Context, title, branchName, body string, labels []string) (*PullRequest, error) {
	opts := &gitlab.CreateMergeRequestOptions{
		Title:        gitlab.Ptr(title),
		Description:  gitlab.Ptr(body),
		SourceBranch: gitlab.Ptr(branchName),
		TargetBranch: gitlab.Ptr(defaultBaseBranch),
	}
	if len(labels) > 0 {
		opts.Labels = (*gitlab.LabelOptions)(&labels)
	}

	// Merge requests from a fork target the upstream project.
	project, resp, err := s.gl.Projects.GetProject(s.Slug(), nil, gitlab.WithContext(ctx))
	if err != nil {
		return nil, &APIError{Operation: "get_project", Slug: s.Slug(), StatusCode: glStatus(resp), Underlying: err}
	}
	if project.ForkedFromProject != nil {
		opts.TargetProjectID = gitlab.Ptr(project.ForkedFromProject.ID)
	}

	created, resp, err := s.gl.MergeRequests.CreateMergeRequest(s.Slug(), opts, gitlab.WithContext(ctx))
	if err != nil {
		return nil, &APIError{Operation: "create_mr", Slug: s.Slug(), StatusCode: glStatus(resp), Underlying: err}
	}
	return &PullRequest{
		Number:       created.IID,
		Title:        created.Title,
		SourceBranch: created.SourceBranch,
		State:        created.State,
		URL:          created.WebURL,
	}, nil
}

func (s *Session) gitlabListBranches(ctx context.Context) ([]Branch, error) {
	opts := &gitlab.ListBranchesOptions{
		ListOptions: gitlab.ListOptions{PerPage: 100},
	}

	var out []Branch
	for {
		branches, resp, err := s.gl.Branches.ListBranches(s.Slug(), opts, gitlab.WithContext(ctx))
		if err != nil {
			return nil, &APIError{Operation: "list_branches", Slug: s.Slug(), StatusCode: glStatus(resp), Underlying: err}
		}
		for _, branch := range branches {
			out = append(out, Branch{Name: branch.Name})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return out, nil
}

func (s *Session) gitlabListMRs(ctx context.Context) ([]PullRequest, error) {
	opts := &gitlab.ListProjectMergeRequestsOptions{
		State:       gitlab.Ptr("opened"),
		ListOptions: gitlab.ListOptions{PerPage: 100},
	}

	var out []PullRequest
	for {
		mrs, resp, err := s.gl.MergeRequests.ListProjectMergeRequests(s.Slug(), opts, gitlab.WithContext(ctx))
		if err != nil {
			return nil, &APIError{Operation: "list_mrs", Slug: s.Slug(), StatusCode: glStatus(resp), Underlying: err}
		}
		for _, mr := range mrs {
			out = append(out, PullRequest{
				Number:       mr.IID,
				Title:        mr.Title,
				SourceBranch: mr.SourceBranch,
				State:        mr.State,
				URL:          mr.WebURL,
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return out, nil
}

func (s *Session) gitlabDeleteBranch(ctx context.Context, branchName string) error {
	resp, err := s.gl.Branches.DeleteBranch(s.Slug(), branchName, gitlab.WithContext(ctx))
	if err != nil {
		return &APIError{Operation: "delete_branch", Slug: s.Slug(), StatusCode: glStatus(resp), Underlying: err}
	}
	return nil
}
