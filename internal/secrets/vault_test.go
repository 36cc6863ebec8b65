package secrets_test

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/Strob0t/nextup/internal/secrets"
)

func TestNewVault_InitialLoad(t *testing.T) {
	v, err := secrets.NewVault(func() (map[string]string, error) {
		return map[string]string{"KEY_A": "val_a", "KEY_B": "val_b"}, nil
	})
	if err != nil {
		t.Fatalf("NewVault failed: %v", err)
	}

	if got := v.Get("KEY_A"); got != "val_a" {
		t.Fatalf("expected 'val_a', got %q", got)
	}
	if got := v.Get("MISSING"); got != "" {
		t.Fatalf("expected empty string for missing key, got %q", got)
	}
}

func TestNewVault_LoaderError(t *testing.T) {
	_, err := secrets.NewVault(func() (map[string]string, error) {
		return nil, errors.New("permission denied")
	})
	if err == nil {
		t.Fatal("expected error from failing loader")
	}
}

func TestVault_ReloadErrorPreservesValues(t *testing.T) {
	callCount := 0
	v, _ := secrets.NewVault(func() (map[string]string, error) {
		callCount++
		switch callCount {
		case 1:
			return map[string]string{"KEY": "original"}, nil
		case 2:
			return map[string]string{"KEY": "rotated"}, nil
		default:
			return nil, errors.New("secret file unreadable")
		}
	})

	if err := v.Reload(); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if got := v.Get("KEY"); got != "rotated" {
		t.Fatalf("expected 'rotated' after reload, got %q", got)
	}
	if err := v.Reload(); err == nil {
		t.Fatal("expected reload error")
	}
	if got := v.Get("KEY"); got != "rotated" {
		t.Fatalf("expected 'rotated' after failed reload, got %q", got)
	}
}

func TestVault_ConcurrentAccess(t *testing.T) {
	v, _ := secrets.NewVault(secrets.Static(map[string]string{"K": "V"}))

	var wg sync.WaitGroup
	for range 100 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = v.Get("K")
		}()
		go func() {
			defer wg.Done()
			_ = v.Reload()
		}()
	}
	wg.Wait()
}

func TestVault_Redacted(t *testing.T) {
	v, _ := secrets.NewVault(secrets.Static(map[string]string{
		"LONG":  "sk-abcdef123456",
		"SHORT": "ab",
	}))

	if got := v.Redacted("LONG"); got != "sk****" {
		t.Errorf("expected 'sk****', got %q", got)
	}
	if got := v.Redacted("SHORT"); got != "****" {
		t.Errorf("expected '****', got %q", got)
	}
	if got := v.Redacted("MISSING"); got != "" {
		t.Errorf("expected empty string for missing key, got %q", got)
	}
}

func TestEnvLoader(t *testing.T) {
	t.Setenv("NEXTUP_TEST_SECRET", "mysecret")
	loader := secrets.EnvLoader("NEXTUP_TEST_SECRET", "NEXTUP_MISSING_SECRET")

	vals, err := loader()
	if err != nil {
		t.Fatalf("EnvLoader failed: %v", err)
	}
	if vals["NEXTUP_TEST_SECRET"] != "mysecret" {
		t.Fatalf("expected 'mysecret', got %q", vals["NEXTUP_TEST_SECRET"])
	}
	if _, ok := vals["NEXTUP_MISSING_SECRET"]; ok {
		t.Fatal("expected missing env var to be omitted")
	}
}

func TestFileLoader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jwt")
	if err := os.WriteFile(path, []byte("from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("NEXTUP_JWT_SECRET_FILE", path)

	vals, err := secrets.FileLoader(secrets.JWTSecretKey, "OTHER")()
	if err != nil {
		t.Fatalf("FileLoader failed: %v", err)
	}
	if vals[secrets.JWTSecretKey] != "from-file" {
		t.Fatalf("expected trimmed file content, got %q", vals[secrets.JWTSecretKey])
	}
	if _, ok := vals["OTHER"]; ok {
		t.Fatal("expected key without _FILE variable to be omitted")
	}

	t.Setenv("NEXTUP_JWT_SECRET_FILE", filepath.Join(t.TempDir(), "missing"))
	if _, err := secrets.FileLoader(secrets.JWTSecretKey)(); err == nil {
		t.Fatal("expected error for unreadable file")
	}
}

func TestChainAndRequireMinLength(t *testing.T) {
	base := secrets.Static(map[string]string{"K": "from-config", "EMPTY": ""})
	override := secrets.Static(map[string]string{"K": "override-value"})

	vals, err := secrets.Chain(base, override)()
	if err != nil {
		t.Fatalf("Chain failed: %v", err)
	}
	if vals["K"] != "override-value" {
		t.Fatalf("expected later loader to win, got %q", vals["K"])
	}
	if _, ok := vals["EMPTY"]; ok {
		t.Fatal("expected empty static value to be omitted")
	}

	if _, err := secrets.RequireMinLength(base, "K", 32)(); err == nil {
		t.Fatal("expected short secret to be rejected")
	}
	if _, err := secrets.RequireMinLength(override, "K", 8)(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
