package utils

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"restaurant-pos/internal/logger"
)

type APIResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Code      string      `json:"code,omitempty"`
	Changes   *int64      `json:"changes,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

func SuccessResponse(message string, data interface{}) APIResponse {
	return APIResponse{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now(),
	}
}

func ErrorResponse(message, error string) APIResponse {
	return APIResponse{
		Success:   false,
		Message:   message,
		Error:     error,
		Timestamp: time.Now(),
	}
}

// WriteJSON encodes v with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteSuccess writes a success envelope.
func WriteSuccess(w http.ResponseWriter, status int, message string, data interface{}) {
	WriteJSON(w, status, SuccessResponse(message, data))
}

// WriteChanges writes the envelope used by delete endpoints. Zero changes is a 404.
func WriteChanges(w http.ResponseWriter, message string, changes int64) {
	status := http.StatusOK
	resp := SuccessResponse(message, nil)
	if changes == 0 {
		status = http.StatusNotFound
		resp = ErrorResponse("Not found", "resource not found")
		resp.Code = string(CategoryNotFound)
	}
	resp.Changes = &changes
	WriteJSON(w, status, resp)
}

// WriteError maps err onto the error envelope. Internal details stay in the logs.
func WriteError(w http.ResponseWriter, err error) {
	appErr := AsAppError(err)
	resp := ErrorResponse(appErr.PublicMessage(), appErr.PublicMessage())
	resp.Code = string(appErr.Category)
	WriteJSON(w, appErr.HTTPStatus(), resp)
}

// Fail writes err and logs it when it is a server-side failure.
func Fail(w http.ResponseWriter, log *logger.Logger, op string, err error) {
	if IsCategory(err, CategoryInternal) {
		log.Error("API", fmt.Sprintf("%s: %v", op, err))
	}
	WriteError(w, err)
}

// DecodeJSON decodes a request body, rejecting unknown fields.
func DecodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return Validation("invalid request body: " + err.Error())
	}
	return nil
}
