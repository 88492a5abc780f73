package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	bperrors "backport.dev/backport/internal/errors"
	"backport.dev/backport/internal/github"
)

// SessionPhase records how far a suspended backport got
type SessionPhase string

const (
	// PhaseConflict means the cherry-pick stopped on unresolved paths
	PhaseConflict SessionPhase = "conflict"
	// PhasePicked means the cherry-pick is complete but push or PR creation has not finished
	PhasePicked SessionPhase = "picked"
	// PhaseAbortedBeforePush means the operator asked to stop before push
	PhaseAbortedBeforePush SessionPhase = "aborted-before-push"
)

// SessionState pins a suspended backport to its workspace so a later
// --continue run can finish it.
type SessionState struct {
	RepoKind  string           `json:"repoKind"`
	PRNumber  int              `json:"prNumber"`
	Workspace string           `json:"workspace"`
	Branch    string           `json:"branch"`
	Phase     SessionPhase     `json:"phase"`
	MergeInfo github.MergeInfo `json:"mergeInfo"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// SessionStore keeps one JSON record per suspended backport in a single directory
type SessionStore struct {
	dir string
}

// NewSessionStore creates a store rooted at dir
func NewSessionStore(dir string) *SessionStore {
	return &SessionStore{dir: dir}
}

// DefaultSessionDir returns the directory for session state.
// If BACKPORT_STATE_DIR is set, uses that path.
// Otherwise, uses ~/.backport/sessions
func DefaultSessionDir() string {
	if customPath := os.Getenv("BACKPORT_STATE_DIR"); customPath != "" {
		return customPath
	}
	return filepath.Join(homeDir(), ".backport", "sessions")
}

// Dir returns the directory the store writes to
func (s *SessionStore) Dir() string {
	return s.dir
}

func (s *SessionStore) path(kind string, prNumber int) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s-%d.json", kind, prNumber))
}

// Save writes state, replacing any previous record for the same PR
func (s *SessionStore) Save(state *SessionState) error {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session state: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".session-*")
	if err != nil {
		return fmt.Errorf("failed to write session state: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write session state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write session state: %w", err)
	}
	if err := os.Rename(tmpName, s.path(state.RepoKind, state.PRNumber)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write session state: %w", err)
	}
	return nil
}

// Load reads the session for the given PR. It returns ErrSessionNotFound
// when none is recorded.
func (s *SessionStore) Load(kind string, prNumber int) (*SessionState, error) {
	data, err := os.ReadFile(s.path(kind, prNumber))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w for %s #%d", bperrors.ErrSessionNotFound, kind, prNumber)
		}
		return nil, fmt.Errorf("failed to read session state: %w", err)
	}

	var state SessionState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse session state: %w", err)
	}
	return &state, nil
}

// Clear removes the session for the given PR. Clearing a missing session is not an error.
func (s *SessionStore) Clear(kind string, prNumber int) error {
	err := os.Remove(s.path(kind, prNumber))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear session state: %w", err)
	}
	return nil
}

// FindByMergeSHA returns the session for kind whose merge commit is sha.
// A short sha matches by prefix. It returns ErrSessionNotFound when none matches.
func (s *SessionStore) FindByMergeSHA(kind, sha string) (*SessionState, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, kind+"-*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	sort.Strings(matches)

	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var state SessionState
		if err := json.Unmarshal(data, &state); err != nil {
			continue
		}
		if state.RepoKind == kind && sha != "" && strings.HasPrefix(state.MergeInfo.MergeCommitSHA, sha) {
			return &state, nil
		}
	}
	return nil, fmt.Errorf("%w for %s commit %s", bperrors.ErrSessionNotFound, kind, sha)
}
