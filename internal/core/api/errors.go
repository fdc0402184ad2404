package api

import (
	"context"
	"errors"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/solatis/jsonforge/internal/adapters/httpfetch"
	"github.com/solatis/jsonforge/internal/components"
	"github.com/solatis/jsonforge/internal/types"
)

// Error mapping for both transports:
//
//	malformed or oversized document   InvalidArgument / 400, 413
//	AbortError                        Aborted / 422
//	deadline exceeded                 DeadlineExceeded / 504
//	fetch failure, missing collaborator  Unavailable / 502, 503
//	anything else                     Internal / 500

// GRPCStatus converts a Transform error into a gRPC status error.
func GRPCStatus(err error) error {
	if err == nil {
		return nil
	}
	return status.Error(grpcCode(err), err.Error())
}

func grpcCode(err error) codes.Code {
	switch {
	case IsClientError(err):
		return codes.InvalidArgument
	case types.IsAbort(err):
		return codes.Aborted
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.Is(err, httpfetch.ErrFetch), errors.Is(err, components.ErrUnavailable):
		return codes.Unavailable
	default:
		return codes.Internal
	}
}

// HTTPStatus returns the response status for a Transform error.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, types.ErrDocumentTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, types.ErrMalformedDocument):
		return http.StatusBadRequest
	case types.IsAbort(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, httpfetch.ErrFetch):
		return http.StatusBadGateway
	case errors.Is(err, components.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
