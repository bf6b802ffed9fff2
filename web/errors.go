package web

import (
	"github.com/goliatone/go-chat-addons/core"
	goerrors "github.com/goliatone/go-errors"
)

type errorPayload struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category,omitempty"`
}

// errorBody renders the go-errors envelope without its metadata, which may
// carry upstream response bodies.
func errorBody(err error) map[string]errorPayload {
	payload := errorPayload{
		Code:    core.TextCodeOf(err),
		Message: err.Error(),
	}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) && rich != nil {
		payload.Message = rich.Message
		payload.Category = string(rich.Category)
	}
	if payload.Code == "" {
		payload.Code = core.ErrorInternal
	}
	return map[string]errorPayload{"error": payload}
}
