// Package config manages backport configuration and state persistence.
//
// It handles:
//   - The target table mapping a repository kind to its upstream and maintenance branch
//   - Optional user configuration loaded from a JSON file
//   - Session state for backports suspended on a conflict or before push
package config
