// Package output provides the console and file logger used by the backport
// engine, plus the terminal styles for paths, branches and URLs.
package output
