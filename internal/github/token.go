package github

import (
	"context"
	"fmt"
	"os"
	"strings"

	"backport.dev/backport/internal/git"
)

// TokenEnvVars are consulted in order when no token is passed explicitly
var TokenEnvVars = []string{"BACKPORT_GITHUB_TOKEN", "GITHUB_TOKEN"}

// ResolveToken returns explicit when set, otherwise the first non-empty
// token environment variable, otherwise the token of the gh CLI.
func ResolveToken(ctx context.Context, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}

	for _, name := range TokenEnvVars {
		if token := os.Getenv(name); token != "" {
			return token, nil
		}
	}

	// Try gh CLI
	output, err := git.RunGHCommandWithContext(ctx, "auth", "token")
	if err != nil {
		return "", fmt.Errorf("GitHub access token must be specified with --token or the %s environment variable: %w", TokenEnvVars[0], err)
	}

	token := strings.TrimSpace(output)
	if token == "" {
		return "", fmt.Errorf("empty GitHub token")
	}

	return token, nil
}
