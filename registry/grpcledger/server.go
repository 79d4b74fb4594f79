// Package grpcledger exposes a registry ledger over gRPC. The server wraps
// any local registry.Transport (memledger, sqliteledger); the client is
// itself a registry.Transport, so a remote ledger slots in wherever a local
// one does.
package grpcledger

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/codethor0/DecentraFile/fingerprint"
	"github.com/codethor0/DecentraFile/registry"
)

// Server exposes a registry.Transport over the Ledger gRPC service.
type Server struct {
	UnimplementedLedgerServer
	Transport registry.Transport
}

func (s *Server) Append(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BoolValue, error) {
	if s == nil || s.Transport == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing ledger transport")
	}
	sub, err := registry.DecodeSubmission(in.GetValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "malformed submission")
	}
	if err := s.Transport.Append(ctx, sub); err != nil {
		return nil, mapErr(err)
	}
	return wrapperspb.Bool(true), nil
}

func (s *Server) Record(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	if s == nil || s.Transport == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing ledger transport")
	}
	fp, err := decodeFingerprint(in.GetValue())
	if err != nil {
		return nil, err
	}
	rec, err := s.Transport.Record(ctx, fp)
	if err != nil {
		return nil, mapErr(err)
	}
	encoded, err := registry.EncodeRecord(rec)
	if err != nil {
		return nil, status.Error(codes.Internal, "record encoding failed")
	}
	return wrapperspb.Bytes(encoded), nil
}

func (s *Server) Has(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BoolValue, error) {
	if s == nil || s.Transport == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing ledger transport")
	}
	fp, err := decodeFingerprint(in.GetValue())
	if err != nil {
		return nil, err
	}
	ok, err := s.Transport.Has(ctx, fp)
	if err != nil {
		return nil, mapErr(err)
	}
	return wrapperspb.Bool(ok), nil
}

func (s *Server) ListOwner(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	if s == nil || s.Transport == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing ledger transport")
	}
	fps, err := s.Transport.ListOwner(ctx, in.GetValue())
	if err != nil {
		return nil, mapErr(err)
	}
	encoded, err := registry.EncodeFingerprints(fps)
	if err != nil {
		return nil, status.Error(codes.Internal, "fingerprint encoding failed")
	}
	return wrapperspb.Bytes(encoded), nil
}

func (s *Server) CountOwner(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.Int64Value, error) {
	if s == nil || s.Transport == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing ledger transport")
	}
	n, err := s.Transport.CountOwner(ctx, in.GetValue())
	if err != nil {
		return nil, mapErr(err)
	}
	return wrapperspb.Int64(int64(n)), nil
}

func decodeFingerprint(raw []byte) (fingerprint.Fingerprint, error) {
	var fp fingerprint.Fingerprint
	if len(raw) != len(fp) {
		return fp, status.Error(codes.InvalidArgument, "fingerprint must be 32 bytes")
	}
	copy(fp[:], raw)
	return fp, nil
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, registry.ErrAlreadyExists):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, registry.ErrQuotaExceeded):
		return status.Error(codes.ResourceExhausted, err.Error())
	case errors.Is(err, registry.ErrBadSignature):
		return status.Error(codes.PermissionDenied, err.Error())
	case registry.IsNotFound(err):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, registry.ErrZeroFingerprint),
		errors.Is(err, registry.ErrEmptyBlob),
		errors.Is(err, registry.ErrBlobTooLarge),
		errors.Is(err, registry.ErrNoOwner):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
