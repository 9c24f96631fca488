package cmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// isolate hides the user's configuration and environment from LoadConfig.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", dir)
	for _, k := range []string{"TSIM_SERVER", "TSIM_WS", "TSIM_SESSION", "TSIM_TIMEOUT", "TSIM_CACHE", "TSIM_CURRENCY"} {
		t.Setenv(k, "")
	}
	return dir
}

func TestLoadConfig_Defaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := LoadConfig("", nil)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	want := &Config{
		Server:   "http://localhost:8080",
		WS:       "ws://localhost:8080/ws",
		Session:  filepath.Join(dir, "tsim", "session.json"),
		Timeout:  15 * time.Second,
		Cache:    0,
		Currency: "USD",
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("LoadConfig() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfig_Sources(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.yaml")
	content := "server: https://sim.example.com\ntimeout: 5s\ncache: 3s\nsession: /tmp/s.json\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TSIM_CURRENCY", "EUR")

	cfg, err := LoadConfig(path, map[string]string{"session": "/tmp/flag.json", "server": ""})
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	want := &Config{
		Server:   "https://sim.example.com",
		WS:       "wss://sim.example.com/ws",
		Session:  "/tmp/flag.json",
		Timeout:  5 * time.Second,
		Cache:    3 * time.Second,
		Currency: "EUR",
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("LoadConfig() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfig_UserConfigDir(t *testing.T) {
	dir := isolate(t)
	if err := os.MkdirAll(filepath.Join(dir, "tsim"), 0700); err != nil {
		t.Fatal(err)
	}
	content := "server: http://10.0.0.2:9000\nws: ws://feed.example.com/prices\n"
	if err := os.WriteFile(filepath.Join(dir, "tsim", "tsim.yaml"), []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig("", nil)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Server != "http://10.0.0.2:9000" || cfg.WS != "ws://feed.example.com/prices" {
		t.Errorf("LoadConfig() = %+v, want the values of the user config file", cfg)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	dir := isolate(t)
	tests := []struct {
		name    string
		content string
	}{
		{"scheme", "server: ftp://host\n"},
		{"timeout", "timeout: 0s\n"},
		{"cache", "cache: -1s\n"},
		{"currency", "currency: XYZ\n"},
		{"yaml", "server: [\n"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			path := filepath.Join(dir, test.name+".yaml")
			if err := os.WriteFile(path, []byte(test.content), 0600); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadConfig(path, nil); err == nil {
				t.Errorf("LoadConfig(%q) error = nil, want an error", test.content)
			}
		})
	}

	if _, err := LoadConfig(filepath.Join(dir, "missing.yaml"), nil); err == nil {
		t.Error("LoadConfig(missing file) error = nil, want an error")
	}
}
