// Package github provides a client for interacting with the GitHub API.
package github

import (
	"context"
)

// PullRequestInfo contains information about a pull request
// This is a simplified struct to avoid coupling to go-github library
type PullRequestInfo struct {
	Number  int
	HTMLURL string
	Title   string
	Body    string
	State   string
	Base    string
	Head    string
	// HeadSHA is the commit the head branch pointed at when the pull request was read
	HeadSHA string
}

// MergeInfo describes the merged pull request being backported.
type MergeInfo struct {
	MergeCommitSHA string   `json:"mergeCommitSha"`
	Title          string   `json:"title"`
	Author         string   `json:"author"`
	Branch         string   `json:"branch"`
	Labels         []string `json:"labels,omitempty"`
}

// CreatePROptions contains options for creating a pull request
type CreatePROptions struct {
	Title string
	Body  string
	// Head is "owner:branch" when the branch lives in a fork
	Head  string
	Base  string
	Draft bool
}

// Client is an interface for GitHub API interactions
type Client interface {
	// FetchMergeInfo returns the merge commit and metadata of a merged pull request
	FetchMergeInfo(ctx context.Context, owner, repo string, number int) (*MergeInfo, error)

	// FindPRNumberForCommit resolves the pull request number from a merge commit message
	FindPRNumberForCommit(ctx context.Context, owner, repo, sha string) (int, error)

	// CreatePullRequest creates a new pull request
	CreatePullRequest(ctx context.Context, owner, repo string, opts CreatePROptions) (*PullRequestInfo, error)

	// FindOpenPullRequest returns the open pull request from head into base, or nil
	FindOpenPullRequest(ctx context.Context, owner, repo, head, base string) (*PullRequestInfo, error)

	// AddComment posts a comment on a pull request
	AddComment(ctx context.Context, owner, repo string, number int, body string) error

	// SetLabels replaces the labels of a pull request
	SetLabels(ctx context.Context, owner, repo string, number int, labels []string) error

	// CurrentUser returns the login of the authenticated user
	CurrentUser(ctx context.Context) (string, error)
}
