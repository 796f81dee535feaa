package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestGetConfigDir(t *testing.T) {
	if runtime.GOOS != "windows" {
		t.Setenv("XDG_CONFIG_HOME", "")
	}
	configDir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}
	if !strings.Contains(configDir, "puara") {
		t.Errorf("GetConfigDir() = %v, should contain 'puara'", configDir)
	}

	switch runtime.GOOS {
	case "windows":
		if !strings.Contains(configDir, "AppData") && !strings.Contains(configDir, "Local") {
			t.Errorf("Windows config dir should contain 'AppData' or 'Local', got: %v", configDir)
		}
	case "darwin", "linux":
		if !strings.Contains(configDir, ".config") {
			t.Errorf("Unix config dir should contain '.config', got: %v", configDir)
		}
	}
}

func TestGetConfigDir_XDG(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG_CONFIG_HOME applies on Linux")
	}
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	got, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}
	if got != filepath.Join(dir, "puara") {
		t.Errorf("GetConfigDir() = %v, want %v", got, filepath.Join(dir, "puara"))
	}
}

func TestGetConfigPath(t *testing.T) {
	configPath, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath() error = %v", err)
	}
	if filepath.Base(configPath) != "config.yaml" {
		t.Errorf("GetConfigPath() should end with 'config.yaml', got: %v", configPath)
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig()

	if cfg.Version != 1 {
		t.Errorf("Version = %v, want 1", cfg.Version)
	}
	if cfg.Daemon == nil || cfg.Identity == nil {
		t.Fatal("NewConfig() should populate identity and daemon sections")
	}
	if cfg.Daemon.BaudRate != DefaultBaudRate {
		t.Errorf("BaudRate = %v, want %v", cfg.Daemon.BaudRate, DefaultBaudRate)
	}
	if cfg.Daemon.ReadyTimeout != 30*time.Second {
		t.Errorf("ReadyTimeout = %v, want 30s", cfg.Daemon.ReadyTimeout)
	}
	if !cfg.Daemon.Advertise {
		t.Error("Advertise should be on by default")
	}
}

func TestIdentityDeviceName(t *testing.T) {
	tests := []struct {
		name string
		id   *Identity
		want string
	}{
		{"padded id", &Identity{Device: "T-Stick", ID: 42}, "T-Stick_042"},
		{"wide id", &Identity{Device: "GuitarAMI", ID: 1234}, "GuitarAMI_1234"},
		{"no device", &Identity{ID: 7}, ""},
		{"nil identity", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.id.DeviceName(); got != tt.want {
				t.Errorf("DeviceName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Identity.DeviceName() != "Puara_001" {
		t.Errorf("DeviceName() = %q", cfg.Identity.DeviceName())
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := NewConfig()
	cfg.Identity = &Identity{Device: "T-Stick", ID: 5, Author: "IDMIL", Institution: "McGill"}
	cfg.Daemon.SerialPort = "/dev/ttyUSB0"
	cfg.Daemon.WebSocketAddr = ":8080"
	cfg.Daemon.ReadyTimeout = 5 * time.Second
	cfg.SettingsFile = "settings.yaml"

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if runtime.GOOS != "windows" && info.Mode().Perm() != 0600 {
		t.Errorf("config file mode = %v, want 0600", info.Mode().Perm())
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if *loaded.Identity != *cfg.Identity {
		t.Errorf("Identity = %+v, want %+v", loaded.Identity, cfg.Identity)
	}
	if loaded.Daemon.SerialPort != "/dev/ttyUSB0" || loaded.Daemon.WebSocketAddr != ":8080" {
		t.Errorf("Daemon = %+v", loaded.Daemon)
	}
	if loaded.Daemon.ReadyTimeout != 5*time.Second {
		t.Errorf("ReadyTimeout = %v, want 5s", loaded.Daemon.ReadyTimeout)
	}
	if loaded.SettingsFile != "settings.yaml" {
		t.Errorf("SettingsFile = %q", loaded.SettingsFile)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "version: 1\nidentity:\n  device: Ring\n  id: 3\ndaemon:\n  ready_timeout: 2s\n"
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Daemon.BaudRate != DefaultBaudRate {
		t.Errorf("BaudRate = %d, want default", cfg.Daemon.BaudRate)
	}
	if cfg.Daemon.ReadyTimeout != 2*time.Second {
		t.Errorf("ReadyTimeout = %v", cfg.Daemon.ReadyTimeout)
	}
	if cfg.Identity.DeviceName() != "Ring_003" {
		t.Errorf("DeviceName() = %q", cfg.Identity.DeviceName())
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"unsupported version", "version: 2\n"},
		{"invalid yaml", "version: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.data), 0600); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("Load() should fail")
			}
		})
	}
}

func TestDatabasePath(t *testing.T) {
	cfg := NewConfig()
	cfg.Daemon.Database = "/tmp/custom.db"
	if got, _ := cfg.DatabasePath(); got != "/tmp/custom.db" {
		t.Errorf("DatabasePath() = %q", got)
	}

	cfg.Daemon.Database = ""
	got, err := cfg.DatabasePath()
	if err != nil {
		t.Fatalf("DatabasePath() error = %v", err)
	}
	if filepath.Base(got) != "puara.db" {
		t.Errorf("DatabasePath() = %q", got)
	}
}

func TestSettingsPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg := NewConfig()
	got, err := cfg.SettingsPath()
	if err != nil {
		t.Fatalf("SettingsPath() error = %v", err)
	}
	if filepath.Base(got) != "settings.yaml" {
		t.Errorf("SettingsPath() = %q", got)
	}

	cfg.SettingsFile = "/etc/puara/settings.yaml"
	if got, _ := cfg.SettingsPath(); got != "/etc/puara/settings.yaml" {
		t.Errorf("SettingsPath() = %q", got)
	}
}
