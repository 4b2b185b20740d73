package cmd

import (
	"errors"
	"fmt"

	"github.com/felixgeelhaar/cloudstudy/internal/api"
	"github.com/felixgeelhaar/cloudstudy/internal/auth"
	apperrors "github.com/felixgeelhaar/cloudstudy/internal/errors"
)

// rejection builds the error for a backend refusal given the message to show.
type rejection func(message string, cause error) *apperrors.AppError

// flowError turns an error from the auth flow into an application error with
// recovery suggestions. fallback is the message used when the backend gave
// none.
func flowError(err error, fallback string, rejected rejection) error {
	if err == nil {
		return nil
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}

	var validationErr *auth.ValidationError
	if errors.As(err, &validationErr) {
		return apperrors.NewValidationError(err)
	}

	var netErr *api.NetworkError
	if errors.As(err, &netErr) {
		return apperrors.NewNetworkError(app.cfg.BackendURL, err)
	}

	var contractErr *api.ContractError
	if errors.As(err, &contractErr) {
		return apperrors.NewContractError(fmt.Sprintf("%s %s", contractErr.Method, contractErr.Path), err)
	}

	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode >= 500 {
			return apperrors.Wrap(apperrors.ErrCodeAPIResponse, auth.ErrorMessage(err, fallback), err).
				WithSuggestion("The backend failed; try again later")
		}
		return rejected(auth.ErrorMessage(err, fallback), err)
	}

	return err
}
