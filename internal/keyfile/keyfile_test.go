package keyfile

import (
	"encoding/base64"
	"os"
	"testing"
)

var testSecret = base64.StdEncoding.EncodeToString([]byte("shared-secret-material"))

func TestWriteLoadRoundTrip(t *testing.T) {
	path, cleanup, err := Write(Key{Name: "sync-key", Algorithm: "hmac-sha256", Secret: testSecret})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer cleanup()

	key, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if key.Name != "sync-key" {
		t.Errorf("name = %q, want %q", key.Name, "sync-key")
	}
	if key.Algorithm != "hmac-sha256" {
		t.Errorf("algorithm = %q, want %q", key.Algorithm, "hmac-sha256")
	}
	if key.Secret != testSecret {
		t.Errorf("secret = %q, want %q", key.Secret, testSecret)
	}
}

func TestWritePermissions(t *testing.T) {
	path, cleanup, err := Write(Key{Name: "sync-key", Secret: testSecret})
	if err != nil {
		t.Fatal(err)
	}
	defer cleanup()

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("key file permissions = %o, want 0600", perm)
	}
}

func TestWriteDefaultsAlgorithm(t *testing.T) {
	path, cleanup, err := Write(Key{Name: "sync-key", Secret: testSecret})
	if err != nil {
		t.Fatal(err)
	}
	defer cleanup()

	key, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if key.Algorithm != DefaultAlgorithm {
		t.Errorf("algorithm = %q, want %q", key.Algorithm, DefaultAlgorithm)
	}
}

func TestCleanupRemovesFile(t *testing.T) {
	path, cleanup, err := Write(Key{Name: "sync-key", Secret: testSecret})
	if err != nil {
		t.Fatal(err)
	}
	cleanup()

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("key file still exists after cleanup: %v", err)
	}
}

func TestWriteInvalid(t *testing.T) {
	tests := []struct {
		name string
		key  Key
	}{
		{"missing name", Key{Secret: testSecret}},
		{"empty secret", Key{Name: "sync-key"}},
		{"bad base64", Key{Name: "sync-key", Secret: "!!not-base64!!"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := Write(tt.key); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestLoadRejectsGarbage(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "garbage")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString("not a key file\n"); err != nil {
		t.Fatal(err)
	}
	f.Close()

	if _, err := Load(f.Name()); err == nil {
		t.Fatal("expected error for garbage key file")
	}
}
