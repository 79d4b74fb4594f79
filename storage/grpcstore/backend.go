package grpcstore

import (
	"flag"
	"fmt"
	"strconv"
	"time"

	"github.com/codethor0/DecentraFile/storage"
	"github.com/codethor0/DecentraFile/storage/backends"
)

var (
	flagTarget  string
	flagTimeout time.Duration
	flagMaxMsg  int
)

func init() {
	backends.MustRegister(backends.Backend{
		Name:        "grpc",
		Description: "Remote blob store over gRPC",
		Usage:       backends.UsageCLI,
		RegisterFlags: func(fs *flag.FlagSet) {
			fs.StringVar(&flagTarget, "grpc-target", "", "BlobStore gRPC target address (for --backend=grpc)")
			fs.DurationVar(&flagTimeout, "grpc-timeout", 10*time.Second, "Per-RPC timeout (for --backend=grpc)")
			fs.IntVar(&flagMaxMsg, "grpc-max-msg", 0, "Max gRPC message size in bytes, 0 for default (for --backend=grpc)")
		},
		Open: func() (storage.BlobStore, func() error, error) {
			return open(flagTarget, flagTimeout, flagMaxMsg)
		},
		OpenWith: func(cfg map[string]string) (storage.BlobStore, func() error, error) {
			timeout := 10 * time.Second
			if v := cfg["grpc-timeout"]; v != "" {
				d, err := time.ParseDuration(v)
				if err != nil {
					return nil, nil, fmt.Errorf(`invalid "grpc-timeout": %w`, err)
				}
				timeout = d
			}
			maxMsg := 0
			if v := cfg["grpc-max-msg"]; v != "" {
				n, err := strconv.Atoi(v)
				if err != nil {
					return nil, nil, fmt.Errorf(`invalid "grpc-max-msg": %w`, err)
				}
				maxMsg = n
			}
			return open(cfg["grpc-target"], timeout, maxMsg)
		},
	})
}

func open(target string, timeout time.Duration, maxMsg int) (storage.BlobStore, func() error, error) {
	if target == "" {
		return nil, nil, fmt.Errorf("missing --grpc-target")
	}
	client, err := Dial(target, DialOptions{Timeout: timeout, MaxMsgBytes: maxMsg})
	if err != nil {
		return nil, nil, err
	}
	client.Timeout = timeout
	return client, client.Close, nil
}
