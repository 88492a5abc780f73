// Package cli implements the backport command line.
package cli
