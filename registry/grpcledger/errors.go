package grpcledger

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/codethor0/DecentraFile/registry"
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
	case codes.AlreadyExists:
		return registry.ErrAlreadyExists
	case codes.ResourceExhausted:
		return registry.ErrQuotaExceeded
	case codes.PermissionDenied:
		return registry.ErrBadSignature
	case codes.NotFound:
		return registry.ErrNotFound
	case codes.InvalidArgument:
		// The server collapses all validation sentinels to InvalidArgument;
		// recover the precise one from the message when possible.
		switch st.Message() {
		case registry.ErrZeroFingerprint.Error():
			return registry.ErrZeroFingerprint
		case registry.ErrEmptyBlob.Error():
			return registry.ErrEmptyBlob
		case registry.ErrBlobTooLarge.Error():
			return registry.ErrBlobTooLarge
		case registry.ErrNoOwner.Error():
			return registry.ErrNoOwner
		default:
			return err
		}
	case codes.DeadlineExceeded:
		return context.DeadlineExceeded
	case codes.Canceled:
		return context.Canceled
	default:
		return err
	}
}
