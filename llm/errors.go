package llm

import "errors"

var (
	// ErrEmptyResponse is returned when the backend answers with no content.
	ErrEmptyResponse = errors.New("llm: empty response")

	// ErrMalformedResponse is returned when a response carries no usable JSON object.
	ErrMalformedResponse = errors.New("llm: malformed response")
)
