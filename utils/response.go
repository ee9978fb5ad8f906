package utils

import (
	"bytes"
	"encoding/json"
	"net/http"
)

// Request is what the gateway hands a service: the HTTP method, the request
// path, the query string parameters and the raw body.
type Request struct {
	Method string
	Path   string
	Query  map[string]string
	Body   string
}

// QueryParam returns a query string parameter or "".
func (r *Request) QueryParam(key string) string {
	if r.Query == nil {
		return ""
	}
	return r.Query[key]
}

// Response is the uniform envelope returned by every service.
type Response struct {
	StatusCode int               `json:"statusCode"`
	Headers    map[string]string `json:"headers"`
	Body       string            `json:"body"`
}

// DefaultHeaders are attached to every response.
func DefaultHeaders() map[string]string {
	return map[string]string{
		"Content-Type":                "application/json",
		"Access-Control-Allow-Origin": "*",
	}
}

// Respond encodes payload as the JSON body of a new envelope.
func Respond(status int, payload interface{}) *Response {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return &Response{
			StatusCode: http.StatusInternalServerError,
			Headers:    DefaultHeaders(),
			Body:       `{"message":"failed to encode response"}`,
		}
	}
	return &Response{
		StatusCode: status,
		Headers:    DefaultHeaders(),
		Body:       string(bytes.TrimRight(buf.Bytes(), "\n")),
	}
}

// Message returns an envelope whose body is {"message": message}.
func Message(status int, message string) *Response {
	return Respond(status, map[string]string{"message": message})
}

// Error returns an envelope carrying a message and the underlying error text.
func Error(status int, message string, err error) *Response {
	return Respond(status, map[string]string{"message": message, "error": err.Error()})
}
