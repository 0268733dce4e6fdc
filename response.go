package goSession

import (
	"encoding/json"
	"net/http"
	"strings"
)

// Response is the envelope carried by every API response. Error is always a list,
// empty on success; Data is null on failure.
type Response[T any] struct {
	Success bool     `json:"success"`
	Data    *T       `json:"data"`
	Error   []string `json:"error"`
}

// OK wraps data in a successful envelope.
func OK[T any](data T) Response[T] {
	return Response[T]{Success: true, Data: &data, Error: []string{}}
}

// Fail builds a failed envelope carrying messages.
func Fail[T any](messages ...string) Response[T] {
	if messages == nil {
		messages = []string{}
	}
	return Response[T]{Success: false, Error: messages}
}

// Messages returns Error joined for display, or "" when there is none.
func (r Response[T]) Messages() string {
	return strings.Join(r.Error, "; ")
}

// WriteResponse encodes resp as JSON with the given status.
func WriteResponse[T any](w http.ResponseWriter, status int, resp Response[T]) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// WriteError writes a failed envelope with no data.
func WriteError(w http.ResponseWriter, status int, messages ...string) {
	WriteResponse(w, status, Fail[struct{}](messages...))
}
