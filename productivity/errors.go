package productivity

import (
	"errors"
	"net/http"

	apperrors "github.com/jrsteele09/go-assistant-gateway/internal/errors"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
)

// MapError converts an error returned by a Google API call into the
// gateway's error kinds. A 401 means the stored token was rejected. A refresh
// the token endpoint refused (revoked or expired grant) also means the user
// has to log in again.
func MapError(err error, message string) error {
	if err == nil {
		return nil
	}

	var typed *apperrors.Error
	if errors.As(err, &typed) {
		return typed
	}

	var rErr *oauth2.RetrieveError
	if errors.As(err, &rErr) {
		if rErr.Response != nil && rErr.Response.StatusCode >= http.StatusInternalServerError {
			return &apperrors.Error{Kind: apperrors.KindDownstream, Message: "error renovando el token", Err: err}
		}
		return &apperrors.Error{Kind: apperrors.KindNotAuthenticated, Message: "No autenticado", Err: err}
	}

	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		if gErr.Code == http.StatusUnauthorized {
			return &apperrors.Error{Kind: apperrors.KindNotAuthenticated, Message: "No autenticado", Err: err}
		}
		msg := gErr.Message
		if msg == "" {
			msg = message
		}
		return &apperrors.Error{
			Kind:    apperrors.KindDownstream,
			Message: msg,
			Status:  gErr.Code,
			Detail:  gErr.Body,
			Err:     err,
		}
	}

	return apperrors.Classify(err, message)
}
