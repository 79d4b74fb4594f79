package cidmap

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/codethor0/DecentraFile/fingerprint"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "cidmap.json"), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func fp(t *testing.T, locator string) fingerprint.Fingerprint {
	t.Helper()
	f, err := fingerprint.Derive(locator)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	return f
}

func TestLoadMissingFileYieldsEmptyMap(t *testing.T) {
	s := newStore(t)
	entries, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty map, got %d entries", len(entries))
	}
}

func TestLoadEmptyFileYieldsEmptyMap(t *testing.T) {
	s := newStore(t)
	if err := os.WriteFile(s.Path(), nil, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	entries, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty map, got %d entries", len(entries))
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := newStore(t)
	want := map[fingerprint.Fingerprint]string{
		fp(t, "loc-1"): "loc-1",
		fp(t, "loc-2"): "loc-2",
		fp(t, "loc-3"): "loc-3",
	}
	if err := s.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("entry count: got %d, want %d", len(got), len(want))
	}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("entry %s: got %q, want %q", k, got[k], v)
		}
	}
}

func TestCorruptFileRecoversWithBackup(t *testing.T) {
	s := newStore(t)
	corrupt := []byte("not valid data")
	if err := os.WriteFile(s.Path(), corrupt, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	entries, err := s.Load()
	if err != nil {
		t.Fatalf("Load on corrupt file: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty map after corruption, got %d entries", len(entries))
	}

	// The original bytes must survive under a .corrupted.<epoch-millis> name.
	dir := filepath.Dir(s.Path())
	names, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	var backup string
	for _, e := range names {
		if strings.Contains(e.Name(), ".corrupted.") {
			backup = filepath.Join(dir, e.Name())
		}
	}
	if backup == "" {
		t.Fatalf("no .corrupted backup found in %v", names)
	}
	b, err := os.ReadFile(backup)
	if err != nil {
		t.Fatalf("ReadFile(backup): %v", err)
	}
	if string(b) != string(corrupt) {
		t.Fatalf("backup content mismatch: %q", b)
	}

	// The store keeps working after recovery.
	if err := s.Set(fp(t, "after-recovery"), "after-recovery"); err != nil {
		t.Fatalf("Set after recovery: %v", err)
	}
}

func TestDiskWinsMerge(t *testing.T) {
	s := newStore(t)
	target := fp(t, "contested")

	if err := s.Set(target, "on-disk-locator"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	// A conflicting in-memory update loses to the disk entry...
	other := fp(t, "other")
	if err := s.Save(map[fingerprint.Fingerprint]string{
		target: "in-memory-locator",
		other:  "other-locator",
	}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got[target] != "on-disk-locator" {
		t.Fatalf("disk-wins violated: got %q", got[target])
	}
	// ...but non-conflicting entries are preserved.
	if got[other] != "other-locator" {
		t.Fatalf("non-conflicting entry lost: got %q", got[other])
	}
}

func TestGetSet(t *testing.T) {
	s := newStore(t)
	f := fp(t, "bafy-abc")

	if _, ok, err := s.Get(f); err != nil || ok {
		t.Fatalf("Get before Set: ok=%v err=%v", ok, err)
	}
	if err := s.Set(f, "bafy-abc"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	locator, ok, err := s.Get(f)
	if err != nil || !ok || locator != "bafy-abc" {
		t.Fatalf("Get after Set: %q ok=%v err=%v", locator, ok, err)
	}
}

func TestSetValidation(t *testing.T) {
	s := newStore(t)
	if err := s.Set(fingerprint.Zero, "loc"); err == nil {
		t.Fatalf("zero fingerprint accepted")
	}
	if err := s.Set(fp(t, "x"), ""); err == nil {
		t.Fatalf("empty locator accepted")
	}
}

func TestConcurrentSetsToDistinctFingerprintsAllSurvive(t *testing.T) {
	s := newStore(t)

	const n = 16
	locators := make([]string, n)
	fps := make([]fingerprint.Fingerprint, n)
	for i := range locators {
		locators[i] = "locator-" + string(rune('a'+i))
		fps[i] = fp(t, locators[i])
	}

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.Set(fps[i], locators[i])
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			t.Fatalf("Set #%d: %v", i, err)
		}
	}

	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != n {
		t.Fatalf("expected %d entries after concurrent sets, got %d", n, len(got))
	}
}

func TestNoPartialPrimaryFile(t *testing.T) {
	s := newStore(t)
	if err := s.Set(fp(t, "a"), "a"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	// No temp residue left behind after a successful save.
	dir := filepath.Dir(s.Path())
	names, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range names {
		if strings.Contains(e.Name(), ".tmp.") {
			t.Fatalf("temp file left behind: %s", e.Name())
		}
	}
}
