package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"

	"google.golang.org/grpc"

	"github.com/codethor0/DecentraFile/registry/grpcledger"
	"github.com/codethor0/DecentraFile/registry/sqliteledger"
	"github.com/codethor0/DecentraFile/storage"
	"github.com/codethor0/DecentraFile/storage/backends"
	"github.com/codethor0/DecentraFile/storage/grpcstore"
	"github.com/codethor0/DecentraFile/storage/storeconfig"

	_ "github.com/codethor0/DecentraFile/storage/ipfs"
	_ "github.com/codethor0/DecentraFile/storage/localfs"
)

func main() {
	fs := flag.NewFlagSet("dfile-ledgerd", flag.ExitOnError)
	listen := fs.String("listen", "127.0.0.1:7717", "listen address")
	backend := fs.String("backend", "localfs", "blob store backend name")
	storeConfig := fs.String("store-config", "", "JSON store config file (multi-backend; overrides --backend flags)")
	ledgerDB := fs.String("ledger-db", "", "SQLite ledger path (default ~/.decentrafile/ledger.db)")
	listBackends := fs.Bool("list-backends", false, "List supported backends and exit")

	backends.RegisterFlags(fs, backends.UsageDaemon)

	_ = fs.Parse(os.Args[1:])
	if *listBackends {
		for _, b := range backends.List(backends.UsageDaemon) {
			if b.Description == "" {
				_, _ = fmt.Fprintf(os.Stdout, "%s\n", b.Name)
				continue
			}
			_, _ = fmt.Fprintf(os.Stdout, "%s\t%s\n", b.Name, b.Description)
		}
		return
	}

	log := slog.Default()

	dbPath := *ledgerDB
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		dbPath = filepath.Join(home, ".decentrafile", "ledger.db")
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
	}
	ledger, err := sqliteledger.Open(dbPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer ledger.Close()

	var (
		store   storage.BlobStore
		closeFn func() error
	)
	if *storeConfig != "" {
		cfg, err := storeconfig.LoadFile(*storeConfig)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		store, closeFn, err = cfg.Open(backends.UsageDaemon, "")
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
	} else {
		var err error
		store, closeFn, err = backends.Open(*backend, backends.UsageDaemon)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
	}
	if closeFn != nil {
		defer closeFn()
	}

	lis, err := net.Listen("tcp", *listen)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer lis.Close()

	s := grpc.NewServer()
	grpcledger.RegisterLedgerServer(s, &grpcledger.Server{Transport: ledger})
	grpcstore.RegisterBlobStoreServer(s, &grpcstore.Server{Store: store})

	log.Info("dfile-ledgerd listening",
		"addr", lis.Addr().String(),
		"backend", *backend,
		"ledger", dbPath,
	)
	if err := s.Serve(lis); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
