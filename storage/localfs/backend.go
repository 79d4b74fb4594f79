package localfs

import (
	"flag"
	"fmt"

	"github.com/codethor0/DecentraFile/storage"
	"github.com/codethor0/DecentraFile/storage/backends"
)

var flagLocalDir string

func init() {
	backends.MustRegister(backends.Backend{
		Name:        "localfs",
		Description: "Local filesystem blob store (directory)",
		Usage:       backends.UsageCLI | backends.UsageDaemon,
		RegisterFlags: func(fs *flag.FlagSet) {
			fs.StringVar(&flagLocalDir, "localfs-dir", "", "LocalFS blob store directory (for --backend=localfs)")
		},
		Open: func() (storage.BlobStore, func() error, error) {
			if flagLocalDir == "" {
				return nil, nil, fmt.Errorf("missing --localfs-dir")
			}
			store, err := New(flagLocalDir)
			return store, nil, err
		},
		OpenWith: func(cfg map[string]string) (storage.BlobStore, func() error, error) {
			dir := cfg["localfs-dir"]
			if dir == "" {
				return nil, nil, fmt.Errorf(`missing "localfs-dir" config key`)
			}
			store, err := New(dir)
			return store, nil, err
		},
	})
}
