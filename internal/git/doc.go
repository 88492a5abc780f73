// Package git provides the source-control side of a backport.
//
// It wraps git command execution and provides a Go-friendly interface for:
//   - Workspace provisioning (single-branch clone into a temp directory) and reopening
//   - Branch creation and HEAD queries
//   - Cherry-pick and conflict-state detection
//   - Fetching a single commit and pushing the backport branch
//
// This package should be the only place where direct git commands are executed.
package git
