package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"

	bperrors "backport.dev/backport/internal/errors"
)

// DefaultRequestTimeout bounds every GitHub API call
const DefaultRequestTimeout = 30 * time.Second

// mergeMessageRe matches the first line GitHub writes into merge commits
var mergeMessageRe = regexp.MustCompile(`^Merge pull request #(?P<number>[0-9]+) from [^ /]+/(?P<branch>[^ ]+)$`)

// ClientOptions configures a RealClient
type ClientOptions struct {
	// BaseURL is the REST API root for GitHub Enterprise, e.g. https://ghe.example.com/api/v3/.
	// Empty means api.github.com.
	BaseURL string
	// Timeout bounds each request. Zero means DefaultRequestTimeout.
	Timeout time.Duration
	// Debug, when set, receives one line per HTTP round trip.
	Debug func(format string, args ...interface{})
}

// RealClient implements Client using the real GitHub API
type RealClient struct {
	client  *github.Client
	timeout time.Duration
}

var _ Client = (*RealClient)(nil)

// NewRealClient creates a RealClient authenticated with token
func NewRealClient(ctx context.Context, token string, opts ClientOptions) (*RealClient, error) {
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(ctx, ts)
	if opts.Debug != nil {
		tc.Transport = &debugTransport{next: tc.Transport, logf: opts.Debug}
	}
	client := github.NewClient(tc)

	if opts.BaseURL != "" {
		baseURL, err := url.Parse(strings.TrimSuffix(opts.BaseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("failed to parse API base URL %s: %w", opts.BaseURL, err)
		}
		client.BaseURL = baseURL
		client.UploadURL = baseURL
	}

	rc := NewClientFromGitHub(client)
	if opts.Timeout > 0 {
		rc.timeout = opts.Timeout
	}
	return rc, nil
}

// NewClientFromGitHub wraps an already configured go-github client
func NewClientFromGitHub(client *github.Client) *RealClient {
	return &RealClient{client: client, timeout: DefaultRequestTimeout}
}

func (c *RealClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.timeout)
}

// FetchMergeInfo returns the merge commit and metadata of a merged pull request
func (c *RealClient) FetchMergeInfo(ctx context.Context, owner, repo string, number int) (*MergeInfo, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	pr, _, err := c.client.PullRequests.Get(ctx, owner, repo, number)
	if err != nil {
		return nil, fmt.Errorf("failed to get PR #%d of %s/%s: %w", number, owner, repo, classifyError(err))
	}
	if !pr.GetMerged() || pr.GetMergeCommitSHA() == "" {
		return nil, fmt.Errorf("%w: PR #%d", bperrors.ErrNotMerged, number)
	}

	info := &MergeInfo{
		MergeCommitSHA: pr.GetMergeCommitSHA(),
		Title:          pr.GetTitle(),
		Author:         pr.GetUser().GetLogin(),
		Branch:         pr.GetHead().GetRef(),
	}
	for _, l := range pr.Labels {
		if name := l.GetName(); name != "" {
			info.Labels = append(info.Labels, name)
		}
	}
	sort.Strings(info.Labels)
	return info, nil
}

// FindPRNumberForCommit resolves the pull request number from a merge commit message
func (c *RealClient) FindPRNumberForCommit(ctx context.Context, owner, repo, sha string) (int, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	commit, _, err := c.client.Git.GetCommit(ctx, owner, repo, sha)
	if err != nil {
		return 0, fmt.Errorf("failed to get commit %s of %s/%s: %w", sha, owner, repo, classifyError(err))
	}
	number, _, err := ParseMergeMessage(commit.GetMessage())
	if err != nil {
		return 0, fmt.Errorf("commit %s: %w", sha, err)
	}
	return number, nil
}

// ParseMergeMessage extracts the pull request number and source branch from
// a GitHub merge commit message.
func ParseMergeMessage(message string) (int, string, error) {
	head, _, _ := strings.Cut(message, "\n")
	m := mergeMessageRe.FindStringSubmatch(strings.TrimSpace(head))
	if m == nil {
		return 0, "", fmt.Errorf("%w: not a merge commit message: %q", bperrors.ErrInvalidRequest, head)
	}
	number, err := strconv.Atoi(m[mergeMessageRe.SubexpIndex("number")])
	if err != nil {
		return 0, "", fmt.Errorf("%w: invalid PR number in %q", bperrors.ErrInvalidRequest, head)
	}
	return number, m[mergeMessageRe.SubexpIndex("branch")], nil
}

// CreatePullRequest creates a new pull request
func (c *RealClient) CreatePullRequest(ctx context.Context, owner, repo string, opts CreatePROptions) (*PullRequestInfo, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	pr := &github.NewPullRequest{
		Title: github.String(opts.Title),
		Head:  github.String(opts.Head),
		Base:  github.String(opts.Base),
		Draft: github.Bool(opts.Draft),
	}

	if opts.Body != "" {
		pr.Body = github.String(opts.Body)
	}

	createdPR, _, err := c.client.PullRequests.Create(ctx, owner, repo, pr)
	if err != nil {
		err = classifyError(err)
		if errors.Is(err, bperrors.ErrDuplicateBranch) {
			return nil, bperrors.NewDuplicateBranchError(opts.Head, "")
		}
		return nil, fmt.Errorf("failed to create pull request: %w", err)
	}

	return toPullRequestInfo(createdPR), nil
}

// FindOpenPullRequest returns the open pull request from head into base, or nil
func (c *RealClient) FindOpenPullRequest(ctx context.Context, owner, repo, head, base string) (*PullRequestInfo, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	prs, _, err := c.client.PullRequests.List(ctx, owner, repo, &github.PullRequestListOptions{
		Head:  head,
		Base:  base,
		State: "open",
		ListOptions: github.ListOptions{
			PerPage: 1,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list pull requests: %w", classifyError(err))
	}

	if len(prs) == 0 {
		return nil, nil
	}

	return toPullRequestInfo(prs[0]), nil
}

// AddComment posts a comment on a pull request
func (c *RealClient) AddComment(ctx context.Context, owner, repo string, number int, body string) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	_, _, err := c.client.Issues.CreateComment(ctx, owner, repo, number, &github.IssueComment{
		Body: github.String(body),
	})
	if err != nil {
		return fmt.Errorf("failed to comment on #%d: %w", number, classifyError(err))
	}
	return nil
}

// SetLabels replaces the labels of a pull request
func (c *RealClient) SetLabels(ctx context.Context, owner, repo string, number int, labels []string) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	if _, _, err := c.client.Issues.ReplaceLabelsForIssue(ctx, owner, repo, number, labels); err != nil {
		return fmt.Errorf("failed to set labels on #%d: %w", number, classifyError(err))
	}
	return nil
}

// CurrentUser returns the login of the authenticated user
func (c *RealClient) CurrentUser(ctx context.Context) (string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	user, _, err := c.client.Users.Get(ctx, "")
	if err != nil {
		return "", fmt.Errorf("failed to get authenticated user: %w", classifyError(err))
	}
	if user.GetLogin() == "" {
		return "", fmt.Errorf("%w: authenticated user has no login", bperrors.ErrAuthFailure)
	}
	return user.GetLogin(), nil
}

// toPullRequestInfo converts a github.PullRequest to PullRequestInfo
func toPullRequestInfo(pr *github.PullRequest) *PullRequestInfo {
	if pr == nil {
		return nil
	}

	return &PullRequestInfo{
		Number:  pr.GetNumber(),
		HTMLURL: pr.GetHTMLURL(),
		Title:   pr.GetTitle(),
		Body:    pr.GetBody(),
		State:   pr.GetState(),
		Base:    pr.GetBase().GetRef(),
		Head:    pr.GetHead().GetRef(),
		HeadSHA: pr.GetHead().GetSHA(),
	}
}

// debugTransport logs each API round trip
type debugTransport struct {
	next http.RoundTripper
	logf func(format string, args ...interface{})
}

func (t *debugTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	next := t.next
	if next == nil {
		next = http.DefaultTransport
	}
	start := time.Now()
	resp, err := next.RoundTrip(req)
	if err != nil {
		t.logf("**GITHUB** %s %s: %v", req.Method, req.URL.Path, err)
		return resp, err
	}
	t.logf("**GITHUB** %s %s -> %d (%s)", req.Method, req.URL.Path, resp.StatusCode, time.Since(start).Round(time.Millisecond))
	return resp, nil
}
