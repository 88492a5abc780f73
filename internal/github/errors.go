package github

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/google/go-github/v62/github"

	bperrors "backport.dev/backport/internal/errors"
)

const duplicatePRMessage = "a pull request already exists"

// classifyError maps go-github and transport errors onto the backport error taxonomy.
// Unrecognized errors are returned unchanged.
func classifyError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) {
		return err
	}

	var rateErr *github.RateLimitError
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &rateErr) || errors.As(err, &abuseErr) {
		return fmt.Errorf("%w: %w", bperrors.ErrRemoteUnavailable, err)
	}

	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		code := ghErr.Response.StatusCode
		switch {
		case code == http.StatusUnauthorized || code == http.StatusForbidden:
			return fmt.Errorf("%w: %w", bperrors.ErrAuthFailure, err)
		case code == http.StatusNotFound:
			return fmt.Errorf("%w: %w", bperrors.ErrNotFound, err)
		case code == http.StatusUnprocessableEntity && isDuplicatePR(ghErr):
			return fmt.Errorf("%w: %w", bperrors.ErrDuplicateBranch, err)
		case code >= http.StatusInternalServerError:
			return fmt.Errorf("%w: %w", bperrors.ErrRemoteUnavailable, err)
		}
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", bperrors.ErrRemoteUnavailable, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %w", bperrors.ErrRemoteUnavailable, err)
	}
	return err
}

func isDuplicatePR(ghErr *github.ErrorResponse) bool {
	if strings.Contains(strings.ToLower(ghErr.Message), duplicatePRMessage) {
		return true
	}
	for _, e := range ghErr.Errors {
		if strings.Contains(strings.ToLower(e.Message), duplicatePRMessage) {
			return true
		}
	}
	return false
}
