package ai

import "errors"

// ErrModelUnavailable reports that the model backend could not be reached
// or failed to serve the request. It wraps the underlying transport error.
var ErrModelUnavailable = errors.New("model backend unavailable")

// ErrEmptyResponse reports that the backend answered but produced no text.
// Callers must treat this differently from a parseable response containing
// zero facts.
var ErrEmptyResponse = errors.New("empty response from model")
