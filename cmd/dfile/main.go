package main

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/codethor0/DecentraFile/cidmap"
	"github.com/codethor0/DecentraFile/decentrafile"
	"github.com/codethor0/DecentraFile/fingerprint"
	"github.com/codethor0/DecentraFile/keys"
	"github.com/codethor0/DecentraFile/registry"
	"github.com/codethor0/DecentraFile/registry/grpcledger"
	"github.com/codethor0/DecentraFile/registry/sqliteledger"
	"github.com/codethor0/DecentraFile/storage/backends"

	_ "github.com/codethor0/DecentraFile/storage/grpcstore"
	_ "github.com/codethor0/DecentraFile/storage/ipfs"
	_ "github.com/codethor0/DecentraFile/storage/localfs"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printUsage(errOut)
		return 2
	}

	switch args[0] {
	case "key":
		return cmdKey(args[1:], out, errOut)
	case "put":
		return cmdPut(args[1:], out, errOut)
	case "get":
		return cmdGet(args[1:], out, errOut)
	case "list":
		return cmdList(args[1:], out, errOut)
	case "exists":
		return cmdExists(args[1:], out, errOut)
	case "help", "-h", "--help":
		printUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown command: %s\n\n", args[0])
		printUsage(errOut)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "dfile: encrypted file publishing CLI")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  dfile key init --name <name> [--seed-hex <64hex>] [--force]")
	fmt.Fprintln(w, "  dfile key derive --from <name> --role <role> [--force]")
	fmt.Fprintln(w, "  dfile key list")
	fmt.Fprintln(w, "  dfile key export --name <name> [--role <role>]")
	fmt.Fprintln(w, "  dfile put <file> (--seed-hex <64hex> | --signer <name> [--signer-role <role>] | --key-file <path>)")
	fmt.Fprintln(w, "            [--recipient-pub <pem> | --allow-plaintext-key] [--backend <name>] [flags]")
	fmt.Fprintln(w, "  dfile get --fp <64hex> [--recipient-key <pem>] [--open | signer flags] [--backend <name>] [flags]")
	fmt.Fprintln(w, "  dfile list (--owner <identity> | signer flags)")
	fmt.Fprintln(w, "  dfile exists --fp <64hex>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Notes:")
	fmt.Fprintln(w, "  - --seed-hex must be 32 bytes (64 hex chars) ed25519 seed")
	fmt.Fprintln(w, "  - keys are stored under ~/.decentrafile/keys/<name> (0600 seed files)")
	fmt.Fprintln(w, "  - the ledger defaults to ~/.decentrafile/ledger.db; --ledger-target uses a remote ledger")
	fmt.Fprintln(w, "  - put prints 'fingerprint locator'; get writes the plaintext to stdout")
}

// commonFlags covers the wiring every data command needs: ledger, mapping
// file, blob store backend, call timeout.
type commonFlags struct {
	ledgerDB     string
	ledgerTarget string
	cidmapPath   string
	backend      string
	timeout      time.Duration
}

func registerCommon(fs *flag.FlagSet, cf *commonFlags) {
	fs.StringVar(&cf.ledgerDB, "ledger-db", "", "SQLite ledger path (default ~/.decentrafile/ledger.db)")
	fs.StringVar(&cf.ledgerTarget, "ledger-target", "", "Remote gRPC ledger address (overrides --ledger-db)")
	fs.StringVar(&cf.cidmapPath, "cidmap", "", "Mapping file path (default ~/.decentrafile/cidmap.json)")
	fs.StringVar(&cf.backend, "backend", "localfs", "Blob store backend name")
	fs.DurationVar(&cf.timeout, "timeout", 30*time.Second, "Per-call timeout for external stores")
	backends.RegisterFlags(fs, backends.UsageCLI)
}

// signerFlags mirror the key-selection surface of 'dfile key'.
type signerFlags struct {
	seedHex    string
	signerName string
	signerRole string
	keyFile    string
}

func registerSigner(fs *flag.FlagSet, sf *signerFlags) {
	fs.StringVar(&sf.seedHex, "seed-hex", "", "ed25519 seed as 64 hex chars")
	fs.StringVar(&sf.signerName, "signer", "", "Use a stored key by name (from 'dfile key init')")
	fs.StringVar(&sf.signerRole, "signer-role", "", "When using --signer, optionally use a derived role key")
	fs.StringVar(&sf.keyFile, "key-file", "", "Path to a seed file (hex) created by 'dfile key init/derive'")
}

func (sf signerFlags) empty() bool {
	return sf.seedHex == "" && sf.signerName == "" && sf.keyFile == ""
}

func loadSigner(sf signerFlags, errOut io.Writer) (keys.Signer, int) {
	if sf.seedHex != "" && (sf.signerName != "" || sf.keyFile != "") {
		fmt.Fprintln(errOut, "conflicting signer flags: --seed-hex cannot be combined with --signer or --key-file")
		return nil, 2
	}
	if sf.signerName != "" && sf.keyFile != "" {
		fmt.Fprintln(errOut, "conflicting signer flags: --signer cannot be combined with --key-file")
		return nil, 2
	}
	ks, err := keys.OpenKeyStore("")
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return nil, 1
	}
	seed, err := ks.LoadSeed(sf.seedHex, sf.signerName, sf.signerRole, sf.keyFile)
	if err != nil {
		fmt.Fprintf(errOut, "invalid signer: %v\n", err)
		return nil, 2
	}
	signer, err := keys.NewEd25519Signer(seed)
	if err != nil {
		fmt.Fprintf(errOut, "signer: %v\n", err)
		return nil, 1
	}
	return signer, 0
}

func defaultPath(name string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".decentrafile", name), nil
}

// openTransport opens either the remote or the local ledger. The returned
// close function is never nil.
func openTransport(cf commonFlags) (registry.Transport, func() error, error) {
	if cf.ledgerTarget != "" {
		client, err := grpcledger.Dial(cf.ledgerTarget, grpcledger.DialOptions{Timeout: cf.timeout})
		if err != nil {
			return nil, nil, err
		}
		client.Timeout = cf.timeout
		return client, client.Close, nil
	}
	path := cf.ledgerDB
	if path == "" {
		var err error
		path, err = defaultPath("ledger.db")
		if err != nil {
			return nil, nil, err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, nil, err
		}
	}
	ledger, err := sqliteledger.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return ledger, ledger.Close, nil
}

func buildService(cf commonFlags, recipient *rsa.PublicKey, recipientKey *rsa.PrivateKey, allowPlaintext bool) (*decentrafile.Service, func(), error) {
	transport, closeLedger, err := openTransport(cf)
	if err != nil {
		return nil, nil, err
	}

	store, closeStore, err := backends.Open(cf.backend, backends.UsageCLI)
	if err != nil {
		closeLedger()
		return nil, nil, err
	}

	mapPath := cf.cidmapPath
	if mapPath == "" {
		mapPath, err = defaultPath("cidmap.json")
		if err == nil {
			err = os.MkdirAll(filepath.Dir(mapPath), 0o700)
		}
	}
	var cm *cidmap.Store
	if err == nil {
		cm, err = cidmap.New(mapPath, slog.Default())
	}
	if err != nil {
		closeLedger()
		if closeStore != nil {
			_ = closeStore()
		}
		return nil, nil, err
	}

	reg := registry.New(transport, registry.WithNotifier(registry.NewSlogNotifier(slog.Default())))
	svc, err := decentrafile.NewService(decentrafile.Config{
		Registry:          reg,
		Store:             store,
		CIDMap:            cm,
		Recipient:         recipient,
		RecipientKey:      recipientKey,
		AllowPlaintextKey: allowPlaintext,
		CallTimeout:       cf.timeout,
	})
	if err != nil {
		closeLedger()
		if closeStore != nil {
			_ = closeStore()
		}
		return nil, nil, err
	}

	closeAll := func() {
		_ = closeLedger()
		if closeStore != nil {
			_ = closeStore()
		}
	}
	return svc, closeAll, nil
}

func cmdPut(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("put", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var cf commonFlags
	var sf signerFlags
	var recipientPub string
	var allowPlaintext bool
	registerCommon(fs, &cf)
	registerSigner(fs, &sf)
	fs.StringVar(&recipientPub, "recipient-pub", "", "PEM file with the recipient RSA public key")
	fs.BoolVar(&allowPlaintext, "allow-plaintext-key", false, "Publish the symmetric key unprotected (anyone can decrypt)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: dfile put <file> [flags]")
		return 2
	}
	if sf.empty() {
		fmt.Fprintln(errOut, "missing signer: use --seed-hex, --signer, or --key-file")
		return 2
	}
	if recipientPub == "" && !allowPlaintext {
		fmt.Fprintln(errOut, "missing --recipient-pub (or pass --allow-plaintext-key explicitly)")
		return 2
	}

	content, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "read %s: %v\n", filepath.Base(fs.Arg(0)), err)
		return 1
	}

	signer, code := loadSigner(sf, errOut)
	if code != 0 {
		return code
	}

	var recipient *rsa.PublicKey
	if recipientPub != "" {
		recipient, err = loadRSAPublicKey(recipientPub)
		if err != nil {
			fmt.Fprintf(errOut, "invalid --recipient-pub: %v\n", err)
			return 2
		}
	}

	svc, closeAll, err := buildService(cf, recipient, nil, allowPlaintext)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	defer closeAll()

	res, err := svc.Put(context.Background(), content, signer)
	if err != nil {
		fmt.Fprintf(errOut, "put: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "%s %s\n", res.Fingerprint.Hex(), res.Locator)
	return 0
}

func cmdGet(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("get", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var cf commonFlags
	var sf signerFlags
	var fpHex string
	var recipientKeyPath string
	var open bool
	registerCommon(fs, &cf)
	registerSigner(fs, &sf)
	fs.StringVar(&fpHex, "fp", "", "Fingerprint as 64 hex chars")
	fs.StringVar(&recipientKeyPath, "recipient-key", "", "PEM file with the recipient RSA private key")
	fs.BoolVar(&open, "open", false, "Use the unauthenticated registry read")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fpHex == "" {
		fmt.Fprintln(errOut, "missing --fp")
		return 2
	}
	fp, err := fingerprint.ParseHex(fpHex)
	if err != nil {
		fmt.Fprintf(errOut, "invalid --fp: %v\n", err)
		return 2
	}

	var caller string
	if !open {
		if sf.empty() {
			fmt.Fprintln(errOut, "missing signer for the authenticated read (or pass --open)")
			return 2
		}
		signer, code := loadSigner(sf, errOut)
		if code != 0 {
			return code
		}
		caller = signer.Identity()
	}

	var recipientKey *rsa.PrivateKey
	if recipientKeyPath != "" {
		recipientKey, err = loadRSAPrivateKey(recipientKeyPath)
		if err != nil {
			fmt.Fprintf(errOut, "invalid --recipient-key: %v\n", err)
			return 2
		}
	}

	// The service requires a protection source for Put; Get never wraps,
	// so enabling the plaintext fallback here is harmless when no
	// recipient key is supplied.
	svc, closeAll, err := buildService(cf, nil, recipientKey, true)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	defer closeAll()

	content, err := svc.Get(context.Background(), fp, caller)
	if err != nil {
		fmt.Fprintf(errOut, "get: %v\n", err)
		if decentrafile.IsKind(err, decentrafile.KindUnauthorized) {
			return 3
		}
		return 1
	}
	_, _ = out.Write(content)
	return 0
}

func cmdList(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var cf commonFlags
	var sf signerFlags
	var owner string
	registerCommon(fs, &cf)
	registerSigner(fs, &sf)
	fs.StringVar(&owner, "owner", "", "Owner identity to list (defaults to the signer's identity)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if owner == "" {
		if sf.empty() {
			fmt.Fprintln(errOut, "missing --owner or signer flags")
			return 2
		}
		signer, code := loadSigner(sf, errOut)
		if code != 0 {
			return code
		}
		owner = signer.Identity()
	}

	transport, closeLedger, err := openTransport(cf)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	defer closeLedger()
	reg := registry.New(transport)

	ctx := context.Background()
	fps, err := reg.ListOwned(ctx, owner)
	if err != nil {
		fmt.Fprintf(errOut, "list: %v\n", err)
		return 1
	}
	for _, fp := range fps {
		fmt.Fprintln(out, fp.Hex())
	}
	n, err := reg.Count(ctx, owner)
	if err == nil {
		fmt.Fprintf(errOut, "%d record(s)\n", n)
	}
	return 0
}

func cmdExists(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("exists", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var cf commonFlags
	var fpHex string
	registerCommon(fs, &cf)
	fs.StringVar(&fpHex, "fp", "", "Fingerprint as 64 hex chars")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fpHex == "" {
		fmt.Fprintln(errOut, "missing --fp")
		return 2
	}
	fp, err := fingerprint.ParseHex(fpHex)
	if err != nil {
		fmt.Fprintf(errOut, "invalid --fp: %v\n", err)
		return 2
	}

	transport, closeLedger, err := openTransport(cf)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	defer closeLedger()

	ok, err := registry.New(transport).Exists(context.Background(), fp)
	if err != nil {
		fmt.Fprintf(errOut, "exists: %v\n", err)
		return 1
	}
	if !ok {
		fmt.Fprintln(out, "absent")
		return 1
	}
	fmt.Fprintln(out, "registered")
	return 0
}

func cmdKey(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printKeyUsage(errOut)
		return 2
	}
	switch args[0] {
	case "init":
		return cmdKeyInit(args[1:], out, errOut)
	case "derive":
		return cmdKeyDerive(args[1:], out, errOut)
	case "list":
		return cmdKeyList(args[1:], out, errOut)
	case "export":
		return cmdKeyExport(args[1:], out, errOut)
	case "help", "-h", "--help":
		printKeyUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown key subcommand: %s\n\n", args[0])
		printKeyUsage(errOut)
		return 2
	}
}

func printKeyUsage(w io.Writer) {
	fmt.Fprintln(w, "dfile key: minimal local key management")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  dfile key init --name <name> [--seed-hex <64hex>] [--force]")
	fmt.Fprintln(w, "  dfile key derive --from <name> --role <role> [--force]")
	fmt.Fprintln(w, "  dfile key list")
	fmt.Fprintln(w, "  dfile key export --name <name> [--role <role>]")
}

func cmdKeyInit(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key init", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var name string
	var seedHex string
	var force bool

	fs.StringVar(&name, "name", "", "Key name (directory under ~/.decentrafile/keys)")
	fs.StringVar(&seedHex, "seed-hex", "", "Optional ed25519 seed as 64 hex chars (for reproducible demos)")
	fs.BoolVar(&force, "force", false, "Overwrite existing key files")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if name == "" {
		fmt.Fprintln(errOut, "missing --name")
		return 2
	}
	if err := keys.CheckKeyName(name); err != nil {
		fmt.Fprintf(errOut, "invalid --name: %v\n", err)
		return 2
	}
	ks, err := keys.OpenKeyStore("")
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return 1
	}

	var seed []byte
	if seedHex != "" {
		var derr error
		seed, derr = keys.ParseSeedHex(seedHex)
		if derr != nil {
			fmt.Fprintf(errOut, "invalid --seed-hex: %v\n", derr)
			return 2
		}
	} else {
		seed = make([]byte, ed25519.SeedSize)
		if _, err := rand.Read(seed); err != nil {
			fmt.Fprintf(errOut, "rand: %v\n", err)
			return 1
		}
	}

	identity, rootPath, err := ks.InitializeRootKey(name, seed, force)
	if err != nil {
		fmt.Fprintf(errOut, "write key: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "Created root key: %s\n", identity)
	fmt.Fprintf(out, "Stored at: %s\n", rootPath)
	return 0
}

func cmdKeyDerive(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key derive", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var from string
	var role string
	var force bool

	fs.StringVar(&from, "from", "", "Root key name")
	fs.StringVar(&role, "role", "", "Role identifier (e.g. publisher, reader)")
	fs.BoolVar(&force, "force", false, "Overwrite existing key files")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if from == "" {
		fmt.Fprintln(errOut, "missing --from")
		return 2
	}
	if role == "" {
		fmt.Fprintln(errOut, "missing --role")
		return 2
	}
	if err := keys.CheckKeyName(from); err != nil {
		fmt.Fprintf(errOut, "invalid --from: %v\n", err)
		return 2
	}
	if err := keys.CheckRole(role); err != nil {
		fmt.Fprintf(errOut, "invalid --role: %v\n", err)
		return 2
	}
	ks, err := keys.OpenKeyStore("")
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return 1
	}
	identity, rolePath, err := ks.DeriveKeyFromRole(from, role, force)
	if err != nil {
		fmt.Fprintf(errOut, "derive role key: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "Created role key: %s\n", identity)
	fmt.Fprintf(out, "Stored at: %s\n", rolePath)
	return 0
}

func cmdKeyExport(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key export", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var name string
	var role string

	fs.StringVar(&name, "name", "", "Key name")
	fs.StringVar(&role, "role", "", "Optional role (if set, exports derived role key)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if name == "" {
		fmt.Fprintln(errOut, "missing --name")
		return 2
	}
	if err := keys.CheckKeyName(name); err != nil {
		fmt.Fprintf(errOut, "invalid --name: %v\n", err)
		return 2
	}
	if role != "" {
		if err := keys.CheckRole(role); err != nil {
			fmt.Fprintf(errOut, "invalid --role: %v\n", err)
			return 2
		}
	}
	ks, err := keys.OpenKeyStore("")
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return 1
	}
	identity, err := ks.ExportKey(name, role)
	if err != nil {
		fmt.Fprintf(errOut, "export key: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintln(out, identity)
	return 0
}

func cmdKeyList(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key list", flag.ContinueOnError)
	fs.SetOutput(errOut)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	ks, err := keys.OpenKeyStore("")
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return 1
	}
	entries, err := ks.ListKeys()
	if err != nil {
		fmt.Fprintf(errOut, "list keys: %v\n", err)
		return 1
	}
	for _, e := range entries {
		fmt.Fprintf(out, "%s\n", e.Name)
		for _, r := range e.Roles {
			fmt.Fprintf(out, "  - %s\n", r)
		}
	}
	return 0
}

func loadRSAPublicKey(path string) (*rsa.PublicKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, errors.New("no PEM block found")
	}
	if pub, err := x509.ParsePKIXPublicKey(block.Bytes); err == nil {
		rsaPub, ok := pub.(*rsa.PublicKey)
		if !ok {
			return nil, errors.New("PEM holds a non-RSA public key")
		}
		return rsaPub, nil
	}
	return x509.ParsePKCS1PublicKey(block.Bytes)
}

func loadRSAPrivateKey(path string) (*rsa.PrivateKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, errors.New("no PEM block found")
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	rsaKey, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("PEM holds a non-RSA private key")
	}
	return rsaKey, nil
}
