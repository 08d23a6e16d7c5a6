package types

import (
	"net/http"

	appErr "github.com/autostack/gateway/pkg/errors"
)

const internalMessage = "internal server error"

// FromAppError converts err into the API error body and its HTTP status.
// Internal and unclassified errors never expose their message.
func FromAppError(err error) (*APIError, int) {
	if err == nil {
		return nil, http.StatusOK
	}
	ae, ok := appErr.As(err)
	if !ok {
		return &APIError{Code: string(appErr.CodeInternal), Message: internalMessage}, http.StatusInternalServerError
	}
	status := appErr.HTTPStatus(ae.Code)
	if status == http.StatusInternalServerError {
		return &APIError{Code: string(appErr.CodeInternal), Message: internalMessage}, status
	}
	return &APIError{Code: string(ae.Code), Message: ae.Message, Meta: ae.Meta}, status
}
