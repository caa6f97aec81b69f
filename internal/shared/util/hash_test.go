package util

import "testing"

func TestHashOwnerKey(t *testing.T) {
	id := "client-4f1c"
	got := HashOwnerKey(id)
	if got != HashOwnerKey(" CLIENT-4F1C ") {
		t.Fatalf("expected hash to ignore case and surrounding space")
	}
	if got == HashOwnerKey("client-4f1d") {
		t.Fatalf("expected distinct hashes for distinct clients")
	}
	if len(got) != 32 {
		t.Fatalf("expected 32 hex characters, got %d", len(got))
	}
	if HashOwnerKey("") != HashOwnerKey("anonymous") {
		t.Fatalf("expected empty client to share the anonymous prefix")
	}
}
