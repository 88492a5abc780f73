package github_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	bperrors "backport.dev/backport/internal/errors"
	githubpkg "backport.dev/backport/internal/github"
	"backport.dev/backport/testhelpers"
)

func newTestClient(t *testing.T, config *testhelpers.MockGitHubServerConfig) (*githubpkg.RealClient, string, string) {
	t.Helper()
	client, owner, repo := testhelpers.NewMockGitHubClient(t, config)
	return githubpkg.NewClientFromGitHub(client), owner, repo
}

func TestFetchMergeInfo(t *testing.T) {
	t.Run("returns merge commit and sorted labels", func(t *testing.T) {
		config := testhelpers.NewMockGitHubServerConfig()
		config.AddMergedPR(1234, "Fix overflow", "abc123", "to-be-backported", "cat:bug")
		client, owner, repo := newTestClient(t, config)

		info, err := client.FetchMergeInfo(context.Background(), owner, repo, 1234)
		require.NoError(t, err)
		require.Equal(t, "abc123", info.MergeCommitSHA)
		require.Equal(t, "Fix overflow", info.Title)
		require.Equal(t, "alice", info.Author)
		require.Equal(t, "fix-1234", info.Branch)
		require.Equal(t, []string{"cat:bug", "to-be-backported"}, info.Labels)
	})

	t.Run("fails when not merged", func(t *testing.T) {
		config := testhelpers.NewMockGitHubServerConfig()
		pr := config.AddMergedPR(7, "Open PR", "abc")
		pr.Merged = nil
		client, owner, repo := newTestClient(t, config)

		_, err := client.FetchMergeInfo(context.Background(), owner, repo, 7)
		require.ErrorIs(t, err, bperrors.ErrNotMerged)
	})

	t.Run("maps status codes", func(t *testing.T) {
		cases := []struct {
			status int
			want   error
		}{
			{http.StatusNotFound, bperrors.ErrNotFound},
			{http.StatusUnauthorized, bperrors.ErrAuthFailure},
			{http.StatusForbidden, bperrors.ErrAuthFailure},
			{http.StatusBadGateway, bperrors.ErrRemoteUnavailable},
			{http.StatusServiceUnavailable, bperrors.ErrRemoteUnavailable},
		}
		for _, tc := range cases {
			t.Run(http.StatusText(tc.status), func(t *testing.T) {
				config := testhelpers.NewMockGitHubServerConfig()
				config.ErrorResponses["GET /repos/owner/repo/pulls/1"] = tc.status
				client, owner, repo := newTestClient(t, config)

				_, err := client.FetchMergeInfo(context.Background(), owner, repo, 1)
				require.ErrorIs(t, err, tc.want)
			})
		}
	})
}

func TestFindPRNumberForCommit(t *testing.T) {
	config := testhelpers.NewMockGitHubServerConfig()
	config.AddMergedPR(42, "Add feature", "deadbeef")
	client, owner, repo := newTestClient(t, config)

	number, err := client.FindPRNumberForCommit(context.Background(), owner, repo, "deadbeef")
	require.NoError(t, err)
	require.Equal(t, 42, number)

	_, err = client.FindPRNumberForCommit(context.Background(), owner, repo, "missing")
	require.ErrorIs(t, err, bperrors.ErrNotFound)
}

func TestCreatePullRequest(t *testing.T) {
	t.Run("creates a pull request successfully", func(t *testing.T) {
		config := testhelpers.NewMockGitHubServerConfig()
		client, owner, repo := newTestClient(t, config)

		opts := githubpkg.CreatePROptions{
			Title: "[backport] Fix overflow",
			Body:  "Backport of #1234",
			Head:  "octocat:backport-1234",
			Base:  "v3",
		}
		pr, err := client.CreatePullRequest(context.Background(), owner, repo, opts)
		require.NoError(t, err)
		require.Equal(t, opts.Title, pr.Title)
		require.Equal(t, opts.Body, pr.Body)
		require.Equal(t, "v3", pr.Base)
		require.NotEmpty(t, pr.HTMLURL)
		require.Len(t, config.Created(), 1)
	})

	t.Run("reports duplicate head", func(t *testing.T) {
		config := testhelpers.NewMockGitHubServerConfig()
		config.OpenPRs["octocat:backport-1"] = testhelpers.NewOpenPullRequest(9, "backport-1", "v3")
		client, owner, repo := newTestClient(t, config)

		_, err := client.CreatePullRequest(context.Background(), owner, repo, githubpkg.CreatePROptions{
			Title: "t", Head: "octocat:backport-1", Base: "v3",
		})
		require.ErrorIs(t, err, bperrors.ErrDuplicateBranch)
		var dup *bperrors.DuplicateBranchError
		require.ErrorAs(t, err, &dup)
		require.Equal(t, "octocat:backport-1", dup.Head)
	})

	t.Run("server errors are transient", func(t *testing.T) {
		config := testhelpers.NewMockGitHubServerConfig()
		config.CreateFailures = 1
		client, owner, repo := newTestClient(t, config)

		_, err := client.CreatePullRequest(context.Background(), owner, repo, githubpkg.CreatePROptions{
			Title: "t", Head: "octocat:backport-1", Base: "v3",
		})
		require.ErrorIs(t, err, bperrors.ErrRemoteUnavailable)
	})
}

func TestFindOpenPullRequest(t *testing.T) {
	config := testhelpers.NewMockGitHubServerConfig()
	open := testhelpers.NewOpenPullRequest(9, "backport-1", "v3")
	headSHA := "4b825dc642cb6eb9a060e54bf8d69288fbee4904"
	open.Head.SHA = &headSHA
	config.OpenPRs["octocat:backport-1"] = open
	client, owner, repo := newTestClient(t, config)

	pr, err := client.FindOpenPullRequest(context.Background(), owner, repo, "octocat:backport-1", "v3")
	require.NoError(t, err)
	require.NotNil(t, pr)
	require.Equal(t, 9, pr.Number)
	require.Equal(t, headSHA, pr.HeadSHA)

	pr, err = client.FindOpenPullRequest(context.Background(), owner, repo, "octocat:backport-1", "v4")
	require.NoError(t, err)
	require.Nil(t, pr)

	pr, err = client.FindOpenPullRequest(context.Background(), owner, repo, "octocat:backport-2", "v3")
	require.NoError(t, err)
	require.Nil(t, pr)
}

func TestIssueWrites(t *testing.T) {
	config := testhelpers.NewMockGitHubServerConfig()
	client, owner, repo := newTestClient(t, config)
	ctx := context.Background()

	require.NoError(t, client.AddComment(ctx, owner, repo, 12, "hello"))
	require.NoError(t, client.SetLabels(ctx, owner, repo, 12, []string{"backport", "cat:bug"}))
	require.Equal(t, []string{"hello"}, config.CommentsOn(12))
	require.Equal(t, []string{"backport", "cat:bug"}, config.LabelsOn(12))

	config.ErrorResponses["POST /repos/owner/repo/issues/13/comments"] = http.StatusForbidden
	err := client.AddComment(ctx, owner, repo, 13, "denied")
	require.ErrorIs(t, err, bperrors.ErrAuthFailure)
}

func TestCurrentUser(t *testing.T) {
	config := testhelpers.NewMockGitHubServerConfig()
	client, _, _ := newTestClient(t, config)

	login, err := client.CurrentUser(context.Background())
	require.NoError(t, err)
	require.Equal(t, testhelpers.ForkOwner, login)
}

func TestNewRealClient(t *testing.T) {
	config := testhelpers.NewMockGitHubServerConfig()
	server := testhelpers.NewMockGitHubServer(t, config)

	var traced []string
	client, err := githubpkg.NewRealClient(context.Background(), "secret", githubpkg.ClientOptions{
		BaseURL: server.URL,
		Debug: func(format string, args ...interface{}) {
			traced = append(traced, format)
		},
	})
	require.NoError(t, err)

	login, err := client.CurrentUser(context.Background())
	require.NoError(t, err)
	require.Equal(t, testhelpers.ForkOwner, login)
	require.Len(t, traced, 1)
}
