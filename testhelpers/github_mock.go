package testhelpers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"

	"github.com/google/go-github/v62/github"
)

// MockGitHubServerConfig configures the behavior of a mock GitHub server.
// Fields are read and written by the server goroutine; use the accessor
// methods once a test has started issuing requests.
type MockGitHubServerConfig struct {
	Owner string
	Repo  string
	// User is the login returned by GET /user
	User string
	// Token, when set, is the only bearer token the server accepts
	Token string
	// PullRequests holds the existing pull requests by number
	PullRequests map[int]*github.PullRequest
	// Commits maps a SHA to the commit returned by the git data API
	Commits map[string]*github.Commit
	// OpenPRs maps "owner:branch" to the open pull request from that head
	OpenPRs map[string]*github.PullRequest
	// CreatedPRs stores PRs that were created
	CreatedPRs []*github.PullRequest
	// Comments and Labels record issue writes by number
	Comments map[int][]string
	Labels   map[int][]string
	// ErrorResponses maps "METHOD /path" to an HTTP status to answer with
	ErrorResponses map[string]int
	// ErrorsAfter lets the first N requests to a key in ErrorResponses succeed
	ErrorsAfter map[string]int
	// CreateFailures is the number of create requests answered with 502
	// before one succeeds. With CreateLostResponses set the pull request is
	// recorded before the failure is returned, as if the response were lost.
	CreateFailures      int
	CreateLostResponses bool
	// Requests logs every "METHOD /path" served
	Requests []string

	mu sync.Mutex
}

// NewMockGitHubServerConfig creates a new mock server config with defaults
func NewMockGitHubServerConfig() *MockGitHubServerConfig {
	return &MockGitHubServerConfig{
		Owner:          "owner",
		Repo:           "repo",
		User:           ForkOwner,
		PullRequests:   make(map[int]*github.PullRequest),
		Commits:        make(map[string]*github.Commit),
		OpenPRs:        make(map[string]*github.PullRequest),
		Comments:       make(map[int][]string),
		Labels:         make(map[int][]string),
		ErrorResponses: make(map[string]int),
		ErrorsAfter:    make(map[string]int),
	}
}

// AddMergedPR registers a merged pull request and its merge commit
func (c *MockGitHubServerConfig) AddMergedPR(number int, title, sha string, labels ...string) *github.PullRequest {
	pr := NewMergedPullRequest(number, title, sha, labels...)
	c.PullRequests[number] = pr
	c.Commits[sha] = &github.Commit{
		SHA:     github.String(sha),
		Message: github.String(fmt.Sprintf("Merge pull request #%d from alice/%s\n\n%s", number, pr.GetHead().GetRef(), title)),
	}
	return pr
}

func (c *MockGitHubServerConfig) countLocked(key string) int {
	n := 0
	for _, k := range c.Requests {
		if k == key {
			n++
		}
	}
	return n
}

// RequestCount returns how many times "METHOD /path" was served
func (c *MockGitHubServerConfig) RequestCount(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.countLocked(key)
}

// Created returns a snapshot of the created pull requests
func (c *MockGitHubServerConfig) Created() []*github.PullRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*github.PullRequest(nil), c.CreatedPRs...)
}

// CommentsOn returns the comments posted on number
func (c *MockGitHubServerConfig) CommentsOn(number int) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.Comments[number]...)
}

// LabelsOn returns the labels last set on number
func (c *MockGitHubServerConfig) LabelsOn(number int) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.Labels[number]...)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string, errs ...map[string]string) {
	body := map[string]interface{}{"message": message}
	if len(errs) > 0 {
		body["errors"] = errs
	}
	writeJSON(w, status, body)
}

// NewMockGitHubServer creates an httptest server that mocks the GitHub API endpoints the backport client uses
func NewMockGitHubServer(t *testing.T, config *MockGitHubServerConfig) *httptest.Server {
	if config == nil {
		config = NewMockGitHubServerConfig()
	}

	mux := http.NewServeMux()

	// handle wraps every endpoint with request logging and error injection
	handle := func(pattern string, fn func(w http.ResponseWriter, r *http.Request)) {
		mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
			config.mu.Lock()
			defer config.mu.Unlock()

			key := r.Method + " " + r.URL.Path
			config.Requests = append(config.Requests, key)
			if config.Token != "" && r.Header.Get("Authorization") != "Bearer "+config.Token {
				writeError(w, http.StatusUnauthorized, "Bad credentials")
				return
			}
			if status, ok := config.ErrorResponses[key]; ok && config.countLocked(key) > config.ErrorsAfter[key] {
				writeError(w, status, http.StatusText(status))
				return
			}
			fn(w, r)
		})
	}

	handle("GET /repos/{owner}/{repo}/pulls/{number}", func(w http.ResponseWriter, r *http.Request) {
		number, err := strconv.Atoi(r.PathValue("number"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid PR number")
			return
		}
		pr, ok := config.PullRequests[number]
		if !ok {
			for _, created := range config.CreatedPRs {
				if created.GetNumber() == number {
					pr, ok = created, true
				}
			}
		}
		if !ok {
			writeError(w, http.StatusNotFound, "Not Found")
			return
		}
		writeJSON(w, http.StatusOK, pr)
	})

	handle("GET /repos/{owner}/{repo}/pulls", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		pr, ok := config.OpenPRs[q.Get("head")]
		if !ok || (q.Get("base") != "" && pr.GetBase().GetRef() != q.Get("base")) {
			writeJSON(w, http.StatusOK, []*github.PullRequest{})
			return
		}
		writeJSON(w, http.StatusOK, []*github.PullRequest{pr})
	})

	handle("POST /repos/{owner}/{repo}/pulls", func(w http.ResponseWriter, r *http.Request) {
		var newPR github.NewPullRequest
		if err := json.NewDecoder(r.Body).Decode(&newPR); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		head := newPR.GetHead()
		if _, exists := config.OpenPRs[head]; exists {
			writeError(w, http.StatusUnprocessableEntity, "Validation Failed", map[string]string{
				"resource": "PullRequest",
				"code":     "custom",
				"message":  "A pull request already exists for " + head + ".",
			})
			return
		}
		if config.CreateFailures > 0 && !config.CreateLostResponses {
			config.CreateFailures--
			writeError(w, http.StatusBadGateway, "Server Error")
			return
		}

		number := 5000 + len(config.CreatedPRs) + 1
		pr := &github.PullRequest{
			Number:  github.Int(number),
			State:   github.String("open"),
			Title:   newPR.Title,
			Body:    newPR.Body,
			Head:    &github.PullRequestBranch{Ref: newPR.Head},
			Base:    &github.PullRequestBranch{Ref: newPR.Base},
			Draft:   newPR.Draft,
			HTMLURL: github.String(fmt.Sprintf("https://github.com/%s/%s/pull/%d", r.PathValue("owner"), r.PathValue("repo"), number)),
		}
		config.CreatedPRs = append(config.CreatedPRs, pr)
		config.OpenPRs[head] = pr

		if config.CreateFailures > 0 {
			config.CreateFailures--
			writeError(w, http.StatusBadGateway, "Server Error")
			return
		}
		writeJSON(w, http.StatusCreated, pr)
	})

	handle("GET /repos/{owner}/{repo}/git/commits/{sha}", func(w http.ResponseWriter, r *http.Request) {
		commit, ok := config.Commits[r.PathValue("sha")]
		if !ok {
			writeError(w, http.StatusNotFound, "Not Found")
			return
		}
		writeJSON(w, http.StatusOK, commit)
	})

	handle("POST /repos/{owner}/{repo}/issues/{number}/comments", func(w http.ResponseWriter, r *http.Request) {
		number, _ := strconv.Atoi(r.PathValue("number"))
		var comment github.IssueComment
		if err := json.NewDecoder(r.Body).Decode(&comment); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		config.Comments[number] = append(config.Comments[number], comment.GetBody())
		comment.ID = github.Int64(int64(len(config.Comments[number])))
		writeJSON(w, http.StatusCreated, comment)
	})

	handle("PUT /repos/{owner}/{repo}/issues/{number}/labels", func(w http.ResponseWriter, r *http.Request) {
		number, _ := strconv.Atoi(r.PathValue("number"))
		var labels []string
		if err := json.NewDecoder(r.Body).Decode(&labels); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		config.Labels[number] = labels
		out := make([]*github.Label, 0, len(labels))
		for _, l := range labels {
			out = append(out, &github.Label{Name: github.String(l)})
		}
		writeJSON(w, http.StatusOK, out)
	})

	handle("GET /user", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, &github.User{Login: github.String(config.User)})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(func() { server.Close() })
	return server
}

// NewMockGitHubClient creates a GitHub client configured to use a mock server
func NewMockGitHubClient(t *testing.T, config *MockGitHubServerConfig) (*github.Client, string, string) {
	server := NewMockGitHubServer(t, config)
	client := github.NewClient(nil)
	baseURL, _ := url.Parse(server.URL + "/")
	client.BaseURL = baseURL
	client.UploadURL = baseURL

	return client, config.Owner, config.Repo
}
