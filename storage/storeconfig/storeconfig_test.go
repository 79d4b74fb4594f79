package storeconfig

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/codethor0/DecentraFile/storage"
	"github.com/codethor0/DecentraFile/storage/backends"

	_ "github.com/codethor0/DecentraFile/storage/localfs"
)

func localfsBackend(t *testing.T, id string) BackendConfig {
	t.Helper()
	return BackendConfig{
		Name:   "localfs",
		ID:     id,
		Config: map[string]string{"localfs-dir": t.TempDir()},
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"empty", Config{}, true},
		{"unnamed backend", Config{Backends: []BackendConfig{{}}}, true},
		{"duplicate id", Config{Backends: []BackendConfig{
			{Name: "localfs"}, {Name: "localfs"},
		}}, true},
		{"distinct ids", Config{Backends: []BackendConfig{
			{Name: "localfs", ID: "a"}, {Name: "localfs", ID: "b"},
		}}, false},
		{"bad policy", Config{WritePolicy: "quorum", Backends: []BackendConfig{
			{Name: "localfs"},
		}}, true},
		{"policy all", Config{WritePolicy: "all", Backends: []BackendConfig{
			{Name: "localfs"},
		}}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate: err=%v wantErr=%v", err, tc.wantErr)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	if _, err := LoadFile(""); err == nil {
		t.Fatalf("empty path accepted")
	}
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatalf("missing file accepted")
	}

	path := filepath.Join(t.TempDir(), "stores.json")
	raw, err := json.Marshal(Config{
		WritePolicy: "all",
		Backends: []BackendConfig{
			{Name: "localfs", Config: map[string]string{"localfs-dir": t.TempDir()}},
		},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.WritePolicy != "all" || len(cfg.Backends) != 1 {
		t.Fatalf("unexpected config: %+v", cfg)
	}

	// LoadFile validates; an invalid config must not come back.
	if err := os.WriteFile(path, []byte(`{"backends":[]}`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Fatalf("invalid config accepted")
	}
}

func TestOpenSingleBackend(t *testing.T) {
	cfg := Config{Backends: []BackendConfig{localfsBackend(t, "")}}
	store, closeFn, err := cfg.Open(backends.UsageDaemon, "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer closeFn()

	ctx := context.Background()
	id, err := store.Put(ctx, []byte("single backend"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := store.Get(ctx, id)
	if err != nil || string(got) != "single backend" {
		t.Fatalf("Get: %q err=%v", got, err)
	}
}

func TestOpenWritePolicies(t *testing.T) {
	t.Run("first", func(t *testing.T) {
		cfg := Config{
			WritePolicy: "first",
			Backends:    []BackendConfig{localfsBackend(t, "a"), localfsBackend(t, "b")},
		}
		store, closeFn, err := cfg.Open(backends.UsageDaemon, "")
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		defer closeFn()
		if _, ok := store.(storage.FallbackStore); !ok {
			t.Fatalf("got %T, want storage.FallbackStore", store)
		}
	})
	t.Run("all", func(t *testing.T) {
		a, b := localfsBackend(t, "a"), localfsBackend(t, "b")
		cfg := Config{
			WritePolicy: "all",
			Backends:    []BackendConfig{a, b},
		}
		store, closeFn, err := cfg.Open(backends.UsageDaemon, "")
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		defer closeFn()
		if _, ok := store.(storage.ReplicatingStore); !ok {
			t.Fatalf("got %T, want storage.ReplicatingStore", store)
		}

		ctx := context.Background()
		id, err := store.Put(ctx, []byte("replicated"))
		if err != nil {
			t.Fatalf("Put: %v", err)
		}

		// Both directories must hold the blob.
		for _, bc := range []BackendConfig{a, b} {
			solo, soloClose, err := Config{Backends: []BackendConfig{bc}}.Open(backends.UsageDaemon, "")
			if err != nil {
				t.Fatalf("reopen %s: %v", bc.ID, err)
			}
			if !solo.Has(ctx, id) {
				t.Fatalf("backend %s did not receive the blob", bc.ID)
			}
			_ = soloClose()
		}
	})
}

func TestOpenPreferredBackend(t *testing.T) {
	a, b := localfsBackend(t, "a"), localfsBackend(t, "b")
	cfg := Config{Backends: []BackendConfig{a, b}}

	store, closeFn, err := cfg.Open(backends.UsageDaemon, "b")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer closeFn()

	ctx := context.Background()
	id, err := store.Put(ctx, []byte("preferred write"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	// With write_policy "first" the preferred backend takes the write.
	soloB, closeB, err := Config{Backends: []BackendConfig{b}}.Open(backends.UsageDaemon, "")
	if err != nil {
		t.Fatalf("reopen b: %v", err)
	}
	defer closeB()
	if !soloB.Has(ctx, id) {
		t.Fatalf("preferred backend missed the write")
	}
	soloA, closeA, err := Config{Backends: []BackendConfig{a}}.Open(backends.UsageDaemon, "")
	if err != nil {
		t.Fatalf("reopen a: %v", err)
	}
	defer closeA()
	if soloA.Has(ctx, id) {
		t.Fatalf("non-preferred backend received the write")
	}

	if _, _, err := cfg.Open(backends.UsageDaemon, "nope"); err == nil {
		t.Fatalf("unknown preferred backend accepted")
	}
}
