package registry

import (
	"os"
	"path/filepath"
	"testing"
)

func writeRegistry(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write registry: %v", err)
	}
	return path
}

func TestLoadAndLookup(t *testing.T) {
	path := writeRegistry(t, `
profiles:
  payment-svc:
    tier: critical
    slaMillis: 800
    downstreamFanout: 5
  checkout-svc:
    tier: high
    slaMillis: 1200
    downstreamFanout: 3
`)

	reg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if reg.Len() != 2 {
		t.Fatalf("len = %d, want 2", reg.Len())
	}

	profile, ok := reg.Lookup("Payment-SVC")
	if !ok {
		t.Fatal("lookup must be case-insensitive")
	}
	if profile.Tier != "critical" || profile.SLAMillis != 800 || profile.DownstreamFanout != 5 {
		t.Fatalf("profile = %+v", profile)
	}

	if _, ok := reg.Lookup("unknown-svc"); ok {
		t.Fatal("unknown service must not resolve")
	}
}

func TestLoadMissingFileYieldsNilRegistry(t *testing.T) {
	reg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if reg != nil {
		t.Fatal("missing file should yield nil registry")
	}
	if _, ok := reg.Lookup("payment-svc"); ok {
		t.Fatal("nil registry lookup must miss")
	}
	if reg.Len() != 0 {
		t.Fatal("nil registry length must be zero")
	}
}

func TestLoadEmptyPath(t *testing.T) {
	reg, err := Load("", nil)
	if err != nil || reg != nil {
		t.Fatalf("empty path = (%v, %v), want nil registry without error", reg, err)
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	path := writeRegistry(t, "profiles: [not a map")
	if _, err := Load(path, nil); err == nil {
		t.Fatal("malformed yaml must error")
	}
}
