package grpcstore

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/codethor0/DecentraFile/storage"
)

func mapRPC(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	switch st.Code() {
	case codes.NotFound:
		return storage.ErrNotFound
	case codes.InvalidArgument:
		// Server uses InvalidArgument for malformed/undefined locators.
		return storage.ErrInvalidLocator
	case codes.DataLoss:
		// Server uses DataLoss when bytes do not match the requested locator.
		return storage.ErrLocatorMismatch
	case codes.DeadlineExceeded:
		return context.DeadlineExceeded
	case codes.Canceled:
		return context.Canceled
	default:
		// Best-effort: if the server sent a known storage error message,
		// preserve it.
		switch st.Message() {
		case storage.ErrNotFound.Error():
			return storage.ErrNotFound
		case storage.ErrInvalidLocator.Error():
			return storage.ErrInvalidLocator
		case storage.ErrLocatorMismatch.Error():
			return storage.ErrLocatorMismatch
		default:
			return err
		}
	}
}
