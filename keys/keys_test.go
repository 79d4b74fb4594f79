package keys

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"strings"
	"testing"
)

func randomSeed(t *testing.T) []byte {
	t.Helper()
	seed := make([]byte, ed25519.SeedSize)
	if _, err := rand.Read(seed); err != nil {
		t.Fatalf("rand.Read: %v", err)
	}
	return seed
}

func TestIdentityRoundTrip(t *testing.T) {
	seed := randomSeed(t)
	identity := IdentityFromSeed(seed)
	if !strings.HasPrefix(identity, AlgEd25519+":") {
		t.Fatalf("unexpected identity prefix: %q", identity)
	}

	alg, pub, err := ParseIdentity(identity)
	if err != nil {
		t.Fatalf("ParseIdentity: %v", err)
	}
	if alg != AlgEd25519 {
		t.Fatalf("alg: got %q", alg)
	}
	wantPub := ed25519.NewKeyFromSeed(seed).Public().(ed25519.PublicKey)
	if !bytes.Equal(pub, wantPub) {
		t.Fatalf("public key mismatch")
	}
}

func TestParseIdentityRejectsMalformed(t *testing.T) {
	cases := []string{
		"",
		"ed25519",
		"ed25519:",
		"ed25519:!!!not-base64!!!",
		"ed25519:AAAA", // too short
		"rsa:AAAA",
	}
	for _, owner := range cases {
		if _, _, err := ParseIdentity(owner); err == nil {
			t.Fatalf("ParseIdentity(%q) accepted", owner)
		}
	}
}

func TestEd25519SignVerify(t *testing.T) {
	signer, err := NewEd25519Signer(randomSeed(t))
	if err != nil {
		t.Fatalf("NewEd25519Signer: %v", err)
	}
	message := []byte("registry submission payload")
	sig, err := signer.Sign(message)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	if err := VerifyIdentitySignature(signer.Identity(), message, sig); err != nil {
		t.Fatalf("VerifyIdentitySignature: %v", err)
	}
	if err := VerifyIdentitySignature(signer.Identity(), []byte("other message"), sig); err == nil {
		t.Fatalf("signature verified against a different message")
	}

	tampered := append([]byte(nil), sig...)
	tampered[0] ^= 0x01
	if err := VerifyIdentitySignature(signer.Identity(), message, tampered); err == nil {
		t.Fatalf("tampered signature verified")
	}
}

func TestDilithium3SignVerify(t *testing.T) {
	signer, err := GenerateDilithium3Signer(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateDilithium3Signer: %v", err)
	}
	if !strings.HasPrefix(signer.Identity(), AlgDilithium3+":") {
		t.Fatalf("unexpected identity prefix: %q", signer.Identity())
	}

	message := []byte("post-quantum submission")
	sig, err := signer.Sign(message)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if err := VerifyIdentitySignature(signer.Identity(), message, sig); err != nil {
		t.Fatalf("VerifyIdentitySignature: %v", err)
	}
	if err := VerifyIdentitySignature(signer.Identity(), []byte("other"), sig); err == nil {
		t.Fatalf("signature verified against a different message")
	}
}

func TestVerifyRejectsCrossIdentity(t *testing.T) {
	a, err := NewEd25519Signer(randomSeed(t))
	if err != nil {
		t.Fatalf("NewEd25519Signer: %v", err)
	}
	b, err := NewEd25519Signer(randomSeed(t))
	if err != nil {
		t.Fatalf("NewEd25519Signer: %v", err)
	}
	message := []byte("payload")
	sig, err := a.Sign(message)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if err := VerifyIdentitySignature(b.Identity(), message, sig); err == nil {
		t.Fatalf("signature from a verified under b's identity")
	}
}

func TestDeriveRoleSeedDeterministic(t *testing.T) {
	rootSeed := randomSeed(t)

	a, err := DeriveRoleSeed(rootSeed, "publisher")
	if err != nil {
		t.Fatalf("DeriveRoleSeed: %v", err)
	}
	b, err := DeriveRoleSeed(rootSeed, "publisher")
	if err != nil {
		t.Fatalf("DeriveRoleSeed: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("same role derived different seeds")
	}

	c, err := DeriveRoleSeed(rootSeed, "reader")
	if err != nil {
		t.Fatalf("DeriveRoleSeed: %v", err)
	}
	if bytes.Equal(a, c) {
		t.Fatalf("distinct roles derived the same seed")
	}
	if bytes.Equal(a, rootSeed) {
		t.Fatalf("derived seed equals root seed")
	}
}

func TestDeriveRoleSeedValidation(t *testing.T) {
	if _, err := DeriveRoleSeed([]byte("short"), "publisher"); err == nil {
		t.Fatalf("short root seed accepted")
	}
	if _, err := DeriveRoleSeed(randomSeed(t), "bad role!"); err == nil {
		t.Fatalf("invalid role accepted")
	}
}

func TestKeyStoreLifecycle(t *testing.T) {
	ks, err := OpenKeyStore(t.TempDir())
	if err != nil {
		t.Fatalf("OpenKeyStore: %v", err)
	}
	seed := randomSeed(t)

	identity, _, err := ks.InitializeRootKey("alice", seed, false)
	if err != nil {
		t.Fatalf("InitializeRootKey: %v", err)
	}
	if identity != IdentityFromSeed(seed) {
		t.Fatalf("root identity mismatch")
	}

	// Re-initializing without overwrite must fail.
	if _, _, err := ks.InitializeRootKey("alice", randomSeed(t), false); err == nil {
		t.Fatalf("overwrote root key without overwrite flag")
	}

	roleIdentity, _, err := ks.DeriveKeyFromRole("alice", "publisher", false)
	if err != nil {
		t.Fatalf("DeriveKeyFromRole: %v", err)
	}
	wantSeed, err := DeriveRoleSeed(seed, "publisher")
	if err != nil {
		t.Fatalf("DeriveRoleSeed: %v", err)
	}
	if roleIdentity != IdentityFromSeed(wantSeed) {
		t.Fatalf("role identity mismatch")
	}

	exported, err := ks.ExportKey("alice", "publisher")
	if err != nil {
		t.Fatalf("ExportKey: %v", err)
	}
	if exported != roleIdentity {
		t.Fatalf("ExportKey mismatch: %q vs %q", exported, roleIdentity)
	}

	loaded, err := ks.LoadSeed("", "alice", "publisher", "")
	if err != nil {
		t.Fatalf("LoadSeed: %v", err)
	}
	if !bytes.Equal(loaded, wantSeed) {
		t.Fatalf("LoadSeed returned wrong seed")
	}

	entries, err := ks.ListKeys()
	if err != nil {
		t.Fatalf("ListKeys: %v", err)
	}
	if len(entries) != 1 || entries[0].Name != "alice" {
		t.Fatalf("ListKeys: %+v", entries)
	}
	if len(entries[0].Roles) != 1 || entries[0].Roles[0] != "publisher" {
		t.Fatalf("ListKeys roles: %+v", entries[0].Roles)
	}
}

func TestParseSeedHex(t *testing.T) {
	seed := randomSeed(t)
	encoded := "0x" + hex.EncodeToString(seed) + "\n"
	got, err := ParseSeedHex(encoded)
	if err != nil {
		t.Fatalf("ParseSeedHex: %v", err)
	}
	if !bytes.Equal(got, seed) {
		t.Fatalf("seed mismatch")
	}
	if _, err := ParseSeedHex("abcd"); err == nil {
		t.Fatalf("short seed accepted")
	}
}
