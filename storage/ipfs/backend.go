package ipfs

import (
	"flag"
	"os"

	"github.com/codethor0/DecentraFile/storage"
	"github.com/codethor0/DecentraFile/storage/backends"
)

var (
	flagIPFSBin  string
	flagIPFSPath string
)

func init() {
	backends.MustRegister(backends.Backend{
		Name:        "ipfs",
		Description: "Kubo CLI blob store (local IPFS repo)",
		Usage:       backends.UsageCLI | backends.UsageDaemon,
		RegisterFlags: func(fs *flag.FlagSet) {
			fs.StringVar(&flagIPFSBin, "ipfs-bin", "", "Path to the ipfs binary (for --backend=ipfs)")
			fs.StringVar(&flagIPFSPath, "ipfs-path", "", "IPFS repo path (IPFS_PATH; for --backend=ipfs)")
		},
		Open: func() (storage.BlobStore, func() error, error) {
			return open(flagIPFSBin, flagIPFSPath)
		},
		OpenWith: func(cfg map[string]string) (storage.BlobStore, func() error, error) {
			return open(cfg["ipfs-bin"], cfg["ipfs-path"])
		},
	})
}

func open(bin, repoPath string) (storage.BlobStore, func() error, error) {
	opts := Options{Bin: bin}
	if repoPath != "" {
		opts.Env = append(os.Environ(), "IPFS_PATH="+repoPath)
	}
	return New(opts), nil, nil
}
