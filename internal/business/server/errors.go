package server

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/eventbot/dashboard/internal/serviceerr"
)

type errorModel struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

func toErrorModel(err error) (model errorModel, httpStatus int) {
	var serviceErr *serviceerr.Error
	if !errors.As(err, &serviceErr) {
		serviceErr = serviceerr.ErrUnknown
	}

	return errorModel{
		Error:            string(serviceErr.Err),
		ErrorDescription: serviceErr.Description,
	}, serviceErr.HTTPStatus()
}

func newBadRequest(description string) (model errorModel, httpStatus int) {
	return errorModel{
		Error:            string(serviceerr.CodeInvalidRequest),
		ErrorDescription: description,
	}, http.StatusBadRequest
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	body, status := toErrorModel(err)
	writeJSON(w, status, body)
}
