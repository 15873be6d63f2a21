package cli

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/law-makers/guc/internal/auth"
	"github.com/law-makers/guc/internal/portal"
	"github.com/law-makers/guc/internal/store"
)

// describeError turns a command failure into the message printed before
// exiting.
func describeError(err error) string {
	if code := portal.CodeOf(err); code != "" {
		var pe *portal.Error
		errors.As(err, &pe)
		switch code {
		case portal.CodeInvalidCredentials:
			return "✗ Login failed: the portal rejected your username or password."
		case portal.CodeSystemError:
			msg := "✗ The portal reported an error: " + pe.Message
			if pe.Details != "" {
				msg += "\n  " + pe.Details
			}
			return msg
		case portal.CodeUnknownSystemError:
			return "✗ The portal returned an unexpected page. It may be down or under maintenance."
		case portal.CodeEvaluationRequired:
			var b strings.Builder
			b.WriteString("✗ The portal requires course evaluations before showing your transcript.\n")
			fmt.Fprintf(&b, "  Evaluate at: %s\n", pe.URL)
			if len(pe.Courses) > 0 {
				b.WriteString("  Pending:")
				for _, c := range pe.Courses {
					b.WriteString("\n    • " + c)
				}
			}
			return strings.TrimRight(b.String(), "\n")
		}
	}

	switch {
	case errors.Is(err, auth.ErrMissingCredentials):
		return "✗ A username and password are required (--username / GUC_USERNAME, GUC_PASSWORD)."
	case errors.Is(err, exec.ErrNotFound):
		return "✗ Chrome was not found. Install Chrome or Chromium, or set --chrome-path / GUC_CHROME_PATH."
	case errors.Is(err, store.ErrNotFound):
		return "✗ No saved snapshot. Run the command with --save first."
	case errors.Is(err, store.ErrExpired):
		return "✗ The saved snapshot has expired. Fetch again with --save."
	case errors.Is(err, portal.ErrMalformedPage):
		return "✗ The portal page did not have the expected layout: " + err.Error()
	case errors.Is(err, context.Canceled):
		return "✗ Cancelled."
	case errors.Is(err, context.DeadlineExceeded):
		return "✗ Timed out waiting for the portal: " + err.Error()
	}
	return "✗ " + err.Error()
}
