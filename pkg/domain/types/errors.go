package types

import "github.com/m-mizutani/goerr/v2"

// Sentinel errors for the shared error taxonomy. The HTTP layer maps
// these to status codes; components wrap them with goerr for context.
var (
	// ErrInvalidInput indicates a caller-supplied value failed validation
	ErrInvalidInput = goerr.New("invalid input")

	// ErrNotFound indicates the requested record does not exist
	ErrNotFound = goerr.New("not found")

	// ErrProviderUnavailable indicates the LLM provider could not be reached
	ErrProviderUnavailable = goerr.New("llm provider unavailable")

	// ErrParseFailure indicates an LLM response could not be parsed as the
	// expected JSON, even after the truncation retry
	ErrParseFailure = goerr.New("llm response parse failure")

	// ErrBusy indicates an analysis is already in flight
	ErrBusy = goerr.New("analysis already in progress")
)
