package engine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kballard/go-shellquote"
)

// ResumeCommand returns the command line that continues a suspended backport
func (e *Engine) ResumeCommand(kind string, prNumber int, https bool) string {
	args := []string{e.program, "--repo", kind, "--pr", strconv.Itoa(prNumber), "--continue"}
	if https {
		args = append(args, "--https")
	}
	return shellquote.Join(args...)
}

func (e *Engine) conflictInstructions(r *run, unmerged []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\nThe cherry-pick of #%d onto %s stopped on conflicts", r.prNumber, r.target.Branch)
	if len(unmerged) > 0 {
		b.WriteString(" in:\n")
		for _, path := range unmerged {
			fmt.Fprintf(&b, "    %s\n", path)
		}
	} else {
		b.WriteString(".\n")
	}
	b.WriteString("\nResolve them in the working tree, then resume:\n\n")
	fmt.Fprintf(&b, "    cd %s\n", shellquote.Join(r.ws.Path))
	b.WriteString("    git add <resolved paths>\n")
	b.WriteString("    git cherry-pick --continue\n")
	fmt.Fprintf(&b, "    %s\n\n", e.ResumeCommand(r.req.RepoKind, r.prNumber, r.req.HTTPS))
	return b.String()
}

func (e *Engine) abortInstructions(r *run) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\nBranch %s holds the backport of #%d and has not been pushed.\n", r.ws.Branch, r.prNumber)
	b.WriteString("Review it in the working tree, then push and open the pull request with:\n\n")
	fmt.Fprintf(&b, "    cd %s\n", shellquote.Join(r.ws.Path))
	fmt.Fprintf(&b, "    %s\n\n", e.ResumeCommand(r.req.RepoKind, r.prNumber, r.req.HTTPS))
	return b.String()
}
