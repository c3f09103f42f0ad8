package command

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/adamavenir/agora/internal/api"
	"github.com/adamavenir/agora/internal/session"
	"github.com/spf13/cobra"
)

func writeCommandError(cmd *cobra.Command, err error) error {
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err.Error())

	if hint := errorHint(err); hint != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Hint: %s\n", hint)
	}

	return err
}

func errorHint(err error) string {
	if errors.Is(err, session.ErrNoCredentials) {
		return "sign in with: agora login --token <token>"
	}
	var apiErr *api.APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
		return "your token was rejected. Try: agora login"
	}
	if api.IsTimeout(err) {
		return "the backend did not answer in time; retry, or raise request_timeout"
	}
	return ""
}
