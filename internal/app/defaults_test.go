package app

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetDefaults(t *testing.T) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}

	tests := []struct {
		name       string
		env        map[string]string
		wantConfig string
		wantBase   string
	}{
		{
			name: "qv env vars win",
			env: map[string]string{
				"QV_CONFIG_PATH":  "/custom/config.toml",
				"QV_HOME":         "/custom/qv",
				"XDG_CONFIG_HOME": "/xdg/config",
				"XDG_DATA_HOME":   "/xdg/data",
			},
			wantConfig: "/custom/config.toml",
			wantBase:   "/custom/qv",
		},
		{
			name: "xdg dirs",
			env: map[string]string{
				"XDG_CONFIG_HOME": "/xdg/config",
				"XDG_DATA_HOME":   "/xdg/data",
			},
			wantConfig: "/xdg/config/qv.toml",
			wantBase:   "/xdg/data/qv",
		},
		{
			name: "relative xdg dirs are ignored",
			env: map[string]string{
				"XDG_CONFIG_HOME": "rel/config",
				"XDG_DATA_HOME":   "rel/data",
			},
			wantConfig: filepath.Join(homeDir, ".config", "qv.toml"),
			wantBase:   filepath.Join(homeDir, ".local", "share", "qv"),
		},
		{
			name:       "home dir fallback",
			wantConfig: filepath.Join(homeDir, ".config", "qv.toml"),
			wantBase:   filepath.Join(homeDir, ".local", "share", "qv"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, k := range []string{"QV_CONFIG_PATH", "QV_HOME", "XDG_CONFIG_HOME", "XDG_DATA_HOME"} {
				t.Setenv(k, tt.env[k])
			}

			got, err := GetDefaults()
			if err != nil {
				t.Fatalf("GetDefaults() error = %v", err)
			}
			if got.ConfigPath != tt.wantConfig {
				t.Errorf("ConfigPath = %q, want %q", got.ConfigPath, tt.wantConfig)
			}
			if got.BaseDir != tt.wantBase {
				t.Errorf("BaseDir = %q, want %q", got.BaseDir, tt.wantBase)
			}
			if want := filepath.Join(tt.wantBase, "log"); got.LogDir != want {
				t.Errorf("LogDir = %q, want %q", got.LogDir, want)
			}
		})
	}
}
