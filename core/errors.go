package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	ErrorBadInput                = "ADDON_BAD_INPUT"
	ErrorMissingRoomID           = "ADDON_MISSING_ROOM_ID"
	ErrorMissingUserIdentity     = "ADDON_MISSING_USER_IDENTITY"
	ErrorAuthenticationFailed    = "ADDON_AUTHENTICATION_FAILED"
	ErrorAPICallFailed           = "ADDON_API_CALL_FAILED"
	ErrorInstallationSetupFailed = "ADDON_INSTALLATION_SETUP_FAILED"
	ErrorInstallationNotFound    = "ADDON_INSTALLATION_NOT_FOUND"
	ErrorInternal                = "ADDON_INTERNAL_ERROR"
)

func NewError(
	message string,
	category goerrors.Category,
	code int,
	textCode string,
	metadata map[string]any,
) error {
	err := goerrors.New(message, category).
		WithCode(code).
		WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func WrapError(
	source error,
	category goerrors.Category,
	message string,
	code int,
	textCode string,
	metadata map[string]any,
) error {
	if source == nil {
		return NewError(message, category, code, textCode, metadata)
	}
	err := goerrors.Wrap(source, category, message).
		WithCode(code).
		WithTextCode(textCode)
	// wrapping an existing envelope clones it, so the outer category must be
	// restored explicitly
	err.Category = category
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func BadInput(message string, metadata map[string]any) error {
	return NewError(message, goerrors.CategoryBadInput, http.StatusBadRequest, ErrorBadInput, metadata)
}

func WrapBadInput(source error, message string, metadata map[string]any) error {
	return WrapError(source, goerrors.CategoryBadInput, message, http.StatusBadRequest, ErrorBadInput, metadata)
}

func InstallationNotFound(installationID string) error {
	return NewError(
		"installation is not registered",
		goerrors.CategoryNotFound,
		http.StatusNotFound,
		ErrorInstallationNotFound,
		map[string]any{"installation_id": installationID},
	)
}

func Internal(message string, metadata map[string]any) error {
	return NewError(message, goerrors.CategoryInternal, http.StatusInternalServerError, ErrorInternal, metadata)
}

func MissingRoomID(metadata map[string]any) error {
	return NewError(
		"room id is required for a global installation",
		goerrors.CategoryBadInput,
		http.StatusBadRequest,
		ErrorMissingRoomID,
		metadata,
	)
}

func MissingUserIdentity(metadata map[string]any) error {
	return NewError(
		"one of user id, user mention or user email is required",
		goerrors.CategoryBadInput,
		http.StatusBadRequest,
		ErrorMissingUserIdentity,
		metadata,
	)
}

func AuthenticationFailed(source error, metadata map[string]any) error {
	return WrapError(
		source,
		goerrors.CategoryAuth,
		"access token acquisition failed",
		http.StatusUnauthorized,
		ErrorAuthenticationFailed,
		metadata,
	)
}

// APICallFailed carries the upstream status_code and body in metadata when a
// response was received.
func APICallFailed(source error, message string, metadata map[string]any) error {
	if strings.TrimSpace(message) == "" {
		message = "platform api call failed"
	}
	return WrapError(
		source,
		goerrors.CategoryExternal,
		message,
		http.StatusBadGateway,
		ErrorAPICallFailed,
		metadata,
	)
}

func InstallationSetupFailed(source error, message string, metadata map[string]any) error {
	if strings.TrimSpace(message) == "" {
		message = "installation setup failed"
	}
	return WrapError(
		source,
		goerrors.CategoryExternal,
		message,
		http.StatusBadGateway,
		ErrorInstallationSetupFailed,
		metadata,
	)
}

// TextCodeOf returns the text code of the outermost go-errors envelope in the
// chain, or an empty string.
func TextCodeOf(err error) string {
	if err == nil {
		return ""
	}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) && rich != nil {
		return rich.TextCode
	}
	return ""
}

func HasTextCode(err error, textCode string) bool {
	return err != nil && TextCodeOf(err) == textCode
}

// HTTPStatus maps an error to the status code an HTTP front door should use.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) && rich != nil {
		if rich.Code > 0 {
			return rich.Code
		}
		return categoryHTTPStatus(rich.Category)
	}
	return http.StatusInternalServerError
}

func categoryHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
