package session

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteCredentialsIsPrivateAndLeavesNoTempFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	path := filepath.Join(dir, "credentials.json")
	for _, token := range []string{"first", "second"} {
		if err := writeCredentials(path, Credentials{Token: token, UserID: "u1"}); err != nil {
			t.Fatalf("write %s: %v", token, err)
		}
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("expected 0600, got %o", perm)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the credentials file, got %d entries", len(entries))
	}
	creds, err := readCredentials(path)
	if err != nil || creds.Token != "second" {
		t.Fatalf("expected latest token, got %+v %v", creds, err)
	}
}

func TestReadCredentialsErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := readCredentials(filepath.Join(dir, "missing.json")); !errors.Is(err, ErrNoCredentials) {
		t.Fatalf("expected ErrNoCredentials, got %v", err)
	}
	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := readCredentials(bad)
	if err == nil || errors.Is(err, ErrNoCredentials) {
		t.Fatalf("expected decode error, got %v", err)
	}
	if _, err := Load(bad); err == nil || errors.Is(err, ErrNoCredentials) {
		t.Fatalf("load should surface the decode error, got %v", err)
	}
}
