package testhelpers

import (
	"fmt"
	"path/filepath"
	"testing"
)

const (
	// ConflictFile is touched by both the maintenance branch and ConflictingMerge
	ConflictFile = "lib.txt"
	// ForkOwner is the login that owns the fork in test scenes
	ForkOwner = "octocat"
)

// SetupGitEnv isolates git from the developer's configuration and provides
// a commit identity. Tests that call it cannot run in parallel.
func SetupGitEnv(t *testing.T) {
	t.Helper()
	t.Setenv("GIT_CONFIG_GLOBAL", "/dev/null")
	t.Setenv("GIT_CONFIG_NOSYSTEM", "1")
	t.Setenv("GIT_AUTHOR_NAME", "Test User")
	t.Setenv("GIT_AUTHOR_EMAIL", "test@example.com")
	t.Setenv("GIT_COMMITTER_NAME", "Test User")
	t.Setenv("GIT_COMMITTER_EMAIL", "test@example.com")
	t.Setenv("GIT_EDITOR", "true")
}

// Upstream is a local stand-in for a hosted repository: a bare upstream at
// <Root>/<Owner>/<Repo>.git with a default branch and a maintenance branch,
// plus a developer clone used to author merged pull requests.
type Upstream struct {
	t           *testing.T
	Root        string
	Owner       string
	Repo        string
	Maintenance string
	BareDir     string
	Dev         *GitRepo
}

// NewUpstream creates an upstream whose main and maintenance branches share
// one initial commit.
func NewUpstream(t *testing.T, owner, repo, maintenance string) *Upstream {
	t.Helper()
	SetupGitEnv(t)

	root := t.TempDir()
	u := &Upstream{
		t:           t,
		Root:        root,
		Owner:       owner,
		Repo:        repo,
		Maintenance: maintenance,
		BareDir:     RepoDir(root, owner, repo),
	}
	u.must(InitBareRepo(u.BareDir))

	dev, err := NewGitRepo(filepath.Join(root, "dev"))
	u.must(err)
	u.Dev = dev
	u.must(dev.RunGitCommand("remote", "add", "origin", u.BareDir))
	u.must(dev.CommitFile("README.md", "# "+repo+"\n", "initial commit"))
	u.must(dev.CommitFile(ConflictFile, "one\n", "add lib"))
	u.must(dev.PushBranch("origin", "main"))
	u.must(dev.RunGitCommand("branch", maintenance))
	u.must(dev.PushBranch("origin", maintenance))
	return u
}

// RepoDir returns the bare repository path for owner/repo under root
func RepoDir(root, owner, repo string) string {
	return filepath.Join(root, owner, repo+".git")
}

// URLTemplate returns a git URL template resolving {owner}/{repo} under Root
func (u *Upstream) URLTemplate() string {
	return filepath.Join(u.Root, "{owner}", "{repo}.git")
}

// NewFork creates an empty bare fork owned by user and returns its path
func (u *Upstream) NewFork(user string) string {
	u.t.Helper()
	dir := RepoDir(u.Root, user, u.Repo)
	u.must(InitBareRepo(dir))
	return dir
}

// MergePR commits a change on a topic branch and merges it into main with
// a GitHub style merge commit. It returns the merge commit SHA.
func (u *Upstream) MergePR(number int, branch, file, content string) string {
	u.t.Helper()
	dev := u.Dev
	u.must(dev.CheckoutBranch("main"))
	u.must(dev.CreateAndCheckoutBranch(branch))
	u.must(dev.CommitFile(file, content, "change "+file))
	u.must(dev.CheckoutBranch("main"))
	u.must(dev.RunGitCommand("merge", "--no-ff", "-m", fmt.Sprintf("Merge pull request #%d from alice/%s", number, branch), branch))
	u.must(dev.PushBranch("origin", "main"))
	sha, err := dev.GetRevision("HEAD")
	u.must(err)
	return sha
}

// ConflictingMerge diverges the maintenance branch on ConflictFile and then
// merges a pull request that edits the same line on main.
func (u *Upstream) ConflictingMerge(number int, branch string) string {
	u.t.Helper()
	u.CommitOnMaintenance(ConflictFile, "one on "+u.Maintenance+"\n", "diverge "+ConflictFile)
	return u.MergePR(number, branch, ConflictFile, "one fixed\n")
}

// CommitOnMaintenance adds a commit directly to the maintenance branch
func (u *Upstream) CommitOnMaintenance(file, content, message string) {
	u.t.Helper()
	dev := u.Dev
	u.must(dev.CheckoutBranch(u.Maintenance))
	u.must(dev.CommitFile(file, content, message))
	u.must(dev.PushBranch("origin", u.Maintenance))
	u.must(dev.CheckoutBranch("main"))
}

func (u *Upstream) must(err error) {
	u.t.Helper()
	if err != nil {
		u.t.Fatalf("upstream setup failed: %v", err)
	}
}
