// Package keyfile manages the transient TSIG key file that exists only
// for the duration of a run.
package keyfile

import (
	"encoding/base64"
	"fmt"
	"os"
	"regexp"
)

// Key is TSIG key material. Secret is the base64-encoded shared secret.
type Key struct {
	Name      string
	Algorithm string
	Secret    string
}

// DefaultAlgorithm is used when no TSIG algorithm is configured.
const DefaultAlgorithm = "hmac-sha256"

// Write validates the key and materializes it as a BIND-style key file.
// os.CreateTemp gives the file owner-only permissions, so the secret is
// never readable by other users. The returned cleanup removes the file
// and must run on every exit path.
func Write(key Key) (path string, cleanup func(), err error) {
	if key.Name == "" {
		return "", nil, fmt.Errorf("keyfile: missing key name")
	}
	if key.Algorithm == "" {
		key.Algorithm = DefaultAlgorithm
	}
	if _, err := base64.StdEncoding.DecodeString(key.Secret); err != nil || key.Secret == "" {
		return "", nil, fmt.Errorf("keyfile: secret is not valid base64")
	}

	f, err := os.CreateTemp("", "yk-virt-dns-*.key")
	if err != nil {
		return "", nil, fmt.Errorf("keyfile: create: %w", err)
	}
	_, werr := fmt.Fprintf(f, "key %q {\n\talgorithm %s;\n\tsecret %q;\n};\n",
		key.Name, key.Algorithm, key.Secret)
	cerr := f.Close()
	if werr != nil || cerr != nil {
		os.Remove(f.Name())
		if werr == nil {
			werr = cerr
		}
		return "", nil, fmt.Errorf("keyfile: write %s: %w", f.Name(), werr)
	}

	return f.Name(), func() { os.Remove(f.Name()) }, nil
}

var (
	nameRe      = regexp.MustCompile(`key\s+"([^"]+)"`)
	algorithmRe = regexp.MustCompile(`algorithm\s+([A-Za-z0-9.-]+)\s*;`)
	secretRe    = regexp.MustCompile(`secret\s+"([^"]+)"\s*;`)
)

// Load parses a BIND-style key file back into key material.
func Load(path string) (Key, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Key{}, fmt.Errorf("keyfile: read: %w", err)
	}

	name := nameRe.FindSubmatch(data)
	algorithm := algorithmRe.FindSubmatch(data)
	secret := secretRe.FindSubmatch(data)
	if name == nil || algorithm == nil || secret == nil {
		return Key{}, fmt.Errorf("keyfile: %s: not a valid key file", path)
	}

	key := Key{Name: string(name[1]), Algorithm: string(algorithm[1]), Secret: string(secret[1])}
	if _, err := base64.StdEncoding.DecodeString(key.Secret); err != nil {
		return Key{}, fmt.Errorf("keyfile: %s: secret is not valid base64", path)
	}
	return key, nil
}
