package utils

import "testing"

func TestExtractInfoHashHex(t *testing.T) {
	uri := "magnet:?xt=urn:btih:DD8255ECDC7CA55FB0BBF81323D87062DB1F6D1C&dn=Big+Buck+Bunny"
	hash, ok := ExtractInfoHash(uri)
	if !ok {
		t.Fatal("expected a hash")
	}
	if hash != "dd8255ecdc7ca55fb0bbf81323d87062db1f6d1c" {
		t.Errorf("got %q", hash)
	}
}

// Base32 hashes are uppercased but deliberately not converted to hex;
// identifiers are compared as opaque strings everywhere else.
func TestExtractInfoHashBase32(t *testing.T) {
	uri := "magnet:?xt=urn:btih:3uclvkr4oqhjrnlk2kmnkxh6entvmovb&dn=something"
	hash, ok := ExtractInfoHash(uri)
	if !ok {
		t.Fatal("expected a hash")
	}
	if hash != "3UCLVKR4OQHJRNLK2KMNKXH6ENTVMOVB" {
		t.Errorf("got %q", hash)
	}
}

func TestExtractInfoHashMissing(t *testing.T) {
	if _, ok := ExtractInfoHash("magnet:?dn=no+hash+here"); ok {
		t.Error("expected no hash")
	}
	if _, ok := ExtractInfoHash("magnet:?xt=urn:btih:zzzz"); ok {
		t.Error("expected no hash for malformed token")
	}
}
