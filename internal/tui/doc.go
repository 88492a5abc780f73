// Package tui provides the interactive prompts shown when backport runs on a terminal.
package tui
