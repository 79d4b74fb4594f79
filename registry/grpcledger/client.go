package grpcledger

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/codethor0/DecentraFile/fingerprint"
	"github.com/codethor0/DecentraFile/registry"
)

// Client implements registry.Transport over the Ledger gRPC service.
type Client struct {
	cc     *grpc.ClientConn
	client LedgerClient

	// Timeout applies per RPC when non-zero and the caller's context carries
	// no deadline of its own.
	Timeout time.Duration
}

var _ registry.Transport = (*Client)(nil)

type DialOptions struct {
	// Timeout applies to the initial dial when non-zero.
	Timeout time.Duration

	// MaxMsgBytes sets both send/recv max sizes when non-zero.
	MaxMsgBytes int
}

func Dial(target string, opts DialOptions) (*Client, error) {
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	if opts.MaxMsgBytes > 0 {
		dialOpts = append(dialOpts,
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(opts.MaxMsgBytes),
				grpc.MaxCallSendMsgSize(opts.MaxMsgBytes),
			),
		)
	}

	ctx := context.Background()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cc, err := grpc.DialContext(ctx, target, dialOpts...)
	if err != nil {
		return nil, err
	}
	return &Client{cc: cc, client: NewLedgerClient(cc)}, nil
}

func (c *Client) Close() error {
	if c == nil || c.cc == nil {
		return nil
	}
	return c.cc.Close()
}

func (c *Client) Append(ctx context.Context, sub registry.Submission) error {
	encoded, err := registry.EncodeSubmission(sub)
	if err != nil {
		return err
	}
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	if _, err := c.client.Append(ctx, wrapperspb.Bytes(encoded)); err != nil {
		return mapRPC(err)
	}
	return nil
}

func (c *Client) Record(ctx context.Context, fp fingerprint.Fingerprint) (registry.FileRecord, error) {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	reply, err := c.client.Record(ctx, wrapperspb.Bytes(fp[:]))
	if err != nil {
		return registry.FileRecord{}, mapRPC(err)
	}
	return registry.DecodeRecord(reply.GetValue())
}

func (c *Client) Has(ctx context.Context, fp fingerprint.Fingerprint) (bool, error) {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	reply, err := c.client.Has(ctx, wrapperspb.Bytes(fp[:]))
	if err != nil {
		return false, mapRPC(err)
	}
	return reply.GetValue(), nil
}

func (c *Client) ListOwner(ctx context.Context, owner string) ([]fingerprint.Fingerprint, error) {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	reply, err := c.client.ListOwner(ctx, wrapperspb.String(owner))
	if err != nil {
		return nil, mapRPC(err)
	}
	return registry.DecodeFingerprints(reply.GetValue())
}

func (c *Client) CountOwner(ctx context.Context, owner string) (int, error) {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	reply, err := c.client.CountOwner(ctx, wrapperspb.String(owner))
	if err != nil {
		return 0, mapRPC(err)
	}
	return int(reply.GetValue()), nil
}

func (c *Client) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline || c.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.Timeout)
}
