package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg := Defaults()
	cfg.Session.Backend = "sqlite"
	cfg.Session.DBPath = "/tmp/sessions.db"
	cfg.Dialog.MaxRetries = 5
	cfg.Skills.Disabled = []string{"wifi_troubleshooting"}

	if err := Save(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Session.Backend != "sqlite" || got.Session.DBPath != "/tmp/sessions.db" {
		t.Fatalf("session config lost: %+v", got.Session)
	}
	if got.Dialog.MaxRetries != 5 {
		t.Fatalf("maxRetries = %d", got.Dialog.MaxRetries)
	}
	if len(got.Skills.Disabled) != 1 || got.Skills.Disabled[0] != "wifi_troubleshooting" {
		t.Fatalf("disabled skills lost: %v", got.Skills.Disabled)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"dialog":{"maxRetries":7}}`), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Dialog.MaxRetries != 7 {
		t.Fatalf("maxRetries = %d, want 7", cfg.Dialog.MaxRetries)
	}
	if cfg.Session.Backend != "memory" || cfg.Session.IdleTTLMinutes != 10 {
		t.Fatalf("defaults not preserved: %+v", cfg.Session)
	}
	if cfg.General.LogLevel != "info" {
		t.Fatalf("log level default lost: %q", cfg.General.LogLevel)
	}
}

func TestLoad_RejectsBadBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"session":{"backend":"redis"}}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("unknown backend accepted")
	}
}

func TestLoad_RejectsSQLiteWithoutPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"session":{"backend":"sqlite","dbPath":""}}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("sqlite backend without dbPath accepted")
	}
}

func TestLoad_ExpandsHome(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"session":{"dbPath":"~/state/sessions.db"}}`), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory in this environment")
	}
	want := filepath.Join(home, "state", "sessions.db")
	if cfg.Session.DBPath != want {
		t.Fatalf("dbPath = %q, want %q", cfg.Session.DBPath, want)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("missing file accepted")
	}
}
