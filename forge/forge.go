package forge

import (
	"fmt"
	"strings"
)

// Type identifies the forge hosting a repository.
type Type int

const (
	// GitHub is the github.com forge or a GitHub Enterprise instance.
	GitHub Type = iota
	// GitLab is the gitlab.com forge or a self-hosted GitLab instance.
	GitLab
)

func (t Type) String() string {
	switch t {
	case GitHub:
		return "github"
	case GitLab:
		return "gitlab"
	default:
		return "unknown"
	}
}

// ParseType parses a forge type name as found in configuration.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(s) {
	case "github":
		return GitHub, nil
	case "gitlab":
		return GitLab, nil
	default:
		return 0, fmt.Errorf("unknown forge type %q, expected github or gitlab", s)
	}
}

// Issue is a forge-agnostic view of an issue.
// Number is the issue number (GitHub) or project-scoped IID (GitLab).
type Issue struct {
	Number int
	Title  string
	State  string
	URL    string
}

// PullRequest is a forge-agnostic view of a pull/merge request.
type PullRequest struct {
	Number       int
	Title        string
	SourceBranch string
	State        string
	URL          string
}

// Branch is a remote branch.
type Branch struct {
	Name string
}

// ParseSlug splits a repository slug into namespace and repository name.
// The split happens on the last separator, so nested GitLab groups stay in
// the namespace: "group/subgroup/repo" -> ("group/subgroup", "repo").
func ParseSlug(slug string) (namespace, repo string, err error) {
	trimmed := strings.Trim(slug, "/")
	idx := strings.LastIndex(trimmed, "/")
	if idx <= 0 || idx == len(trimmed)-1 {
		return "", "", fmt.Errorf("invalid repository slug %q, expected namespace/repo", slug)
	}
	return trimmed[:idx], trimmed[idx+1:], nil
}
