package identity

import (
	"testing"

	"chatpad/cmd/security/password"
)

func testHasher(t *testing.T) *Hasher {
	t.Helper()
	cfg := password.DefaultConfig()
	cfg.Params.MemoryKiB = 8 * 1024
	cfg.Params.Iterations = 1
	h, err := NewHasher(cfg)
	if err != nil {
		t.Fatalf("NewHasher: %v", err)
	}
	return h
}

func TestHasher(t *testing.T) {
	h := testHasher(t)

	enc, err := h.Hash("password1")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !h.Verify(enc, "password1") || h.Verify(enc, "password2") {
		t.Fatalf("Verify mismatch")
	}
	if h.Verify("garbage", "password1") {
		t.Fatalf("malformed hash must not verify")
	}
	if h.VerifyDummy("password1") {
		t.Fatalf("dummy must never verify")
	}

	if _, err := h.Hash("short"); !IsInvalidInput(err) {
		t.Fatalf("short password err = %v", err)
	}
}
