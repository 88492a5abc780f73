package testhelpers

import (
	"fmt"

	"github.com/google/go-github/v62/github"
)

// NewMergedPullRequest builds a merged pull request as the REST API returns it
func NewMergedPullRequest(number int, title, sha string, labels ...string) *github.PullRequest {
	pr := &github.PullRequest{
		Number:         github.Int(number),
		Title:          github.String(title),
		State:          github.String("closed"),
		Merged:         github.Bool(true),
		MergeCommitSHA: github.String(sha),
		User:           &github.User{Login: github.String("alice")},
		Head:           &github.PullRequestBranch{Ref: github.String(fmt.Sprintf("fix-%d", number))},
		Base:           &github.PullRequestBranch{Ref: github.String("main")},
		HTMLURL:        github.String(fmt.Sprintf("https://github.com/owner/repo/pull/%d", number)),
	}
	for _, l := range labels {
		pr.Labels = append(pr.Labels, &github.Label{Name: github.String(l)})
	}
	return pr
}

// NewOpenPullRequest builds an open pull request from head into base
func NewOpenPullRequest(number int, head, base string) *github.PullRequest {
	return &github.PullRequest{
		Number:  github.Int(number),
		State:   github.String("open"),
		Head:    &github.PullRequestBranch{Ref: github.String(head)},
		Base:    &github.PullRequestBranch{Ref: github.String(base)},
		HTMLURL: github.String(fmt.Sprintf("https://github.com/owner/repo/pull/%d", number)),
	}
}
