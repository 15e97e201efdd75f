package service

import "errors"

// Error taxonomy for the service layer. Handlers are the single point where
// these are translated to HTTP status codes.
var (
	// ErrInvalidQuery indicates bad pagination or validation input.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrGenerationFormat indicates the generation endpoint returned text
	// with no usable JSON payload.
	ErrGenerationFormat = errors.New("generation response contains no valid JSON")

	// ErrGenerationIncomplete indicates the generated recipe is missing a
	// required field.
	ErrGenerationIncomplete = errors.New("generation response is incomplete")

	// ErrUpstreamUnavailable indicates the record store or the generation
	// endpoint could not be reached.
	ErrUpstreamUnavailable = errors.New("upstream service unavailable")
)
