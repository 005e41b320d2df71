package api

import (
	"strconv"

	"github.com/danielgtaylor/huma/v2"

	"github.com/bookbridge/bookbridge-server/internal/http/response"
)

// EnvelopeVersion is the wire version of the response envelope. Clients
// refuse envelopes with a version they do not understand.
const EnvelopeVersion = response.Version

// APIEnvelope wraps every successful response and plain error responses.
type APIEnvelope struct { //nolint:revive // API prefix mirrors APIError
	Version int    `json:"v" doc:"Envelope version"`
	Success bool   `json:"success" doc:"Whether the request succeeded"`
	Data    any    `json:"data,omitempty" doc:"Response payload"`
	Error   string `json:"error,omitempty" doc:"Error message"`
}

// APIErrorEnvelope wraps coded errors so clients can branch on Code.
type APIErrorEnvelope struct { //nolint:revive // API prefix mirrors APIError
	Version int    `json:"v" doc:"Envelope version"`
	Success bool   `json:"success" doc:"Always false"`
	Error   string `json:"error" doc:"Human-readable error message"`
	Code    string `json:"code" doc:"Machine-readable error code"`
	Message string `json:"message" doc:"Human-readable error message"`
	Details any    `json:"details,omitempty" doc:"Additional error details"`
}

// EnvelopeTransformer is a huma transformer that wraps response bodies in
// the BookBridge envelope.
func EnvelopeTransformer(_ huma.Context, status string, v any) (any, error) {
	code, _ := strconv.Atoi(status)

	if code >= 400 {
		switch e := v.(type) {
		case *APIError:
			return APIErrorEnvelope{
				Version: EnvelopeVersion,
				Error:   e.Message,
				Code:    e.Code,
				Message: e.Message,
				Details: e.Details,
			}, nil
		case error:
			return APIEnvelope{Version: EnvelopeVersion, Error: e.Error()}, nil
		}
	}

	// Already wrapped (e.g. by an earlier transformer pass).
	switch v.(type) {
	case APIEnvelope, APIErrorEnvelope:
		return v, nil
	}

	return APIEnvelope{
		Version: EnvelopeVersion,
		Success: code < 400,
		Data:    v,
	}, nil
}
