package flist

import (
	"github.com/flistgo/flistapi/internal/timespan"
	"github.com/flistgo/flistapi/internal/transport"
)

// TransportError reports a failed HTTP exchange or an undecodable response body.
type TransportError = transport.TransportError

// ParseError reports a relative-time value that is not a string.
type ParseError = timespan.ParseError

// APIError carries the message of a response whose "error" field was set.
type APIError struct {
	// Endpoint is the endpoint name that was called, without prefix or suffix.
	Endpoint string
	// Message is the error text returned by the API.
	Message string
}

// Error returns the API's message unchanged so callers can match on it.
func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}
