// Package engine drives a single backport from request to pull request.
//
// A backport moves through an explicit sequence of states:
//
//	Init -> Cloned -> BranchCreated -> CherryPicking -> Picked -> Pushed -> PRCreated
//
// A cherry-pick that stops on conflicts, or a run that was asked to stop
// before push, is suspended. The engine records a session so a later run in
// continue mode can pick up from the saved workspace without cloning again.
package engine
