package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// Defaults holds the paths qv uses when the config does not say otherwise.
type Defaults struct {
	ConfigPath string
	BaseDir    string
	LogDir     string
}

// GetDefaults resolves default paths. Each is looked up in order:
//
//	config: $QV_CONFIG_PATH, $XDG_CONFIG_HOME/qv.toml, ~/.config/qv.toml
//	data:   $QV_HOME, $XDG_DATA_HOME/qv, ~/.local/share/qv
//
// XDG variables holding relative paths are ignored.
func GetDefaults() (*Defaults, error) {
	configPath, err := envOrXDG("QV_CONFIG_PATH", "XDG_CONFIG_HOME", "qv.toml", ".config")
	if err != nil {
		return nil, err
	}
	baseDir, err := envOrXDG("QV_HOME", "XDG_DATA_HOME", "qv", filepath.Join(".local", "share"))
	if err != nil {
		return nil, err
	}

	return &Defaults{
		ConfigPath: configPath,
		BaseDir:    baseDir,
		LogDir:     filepath.Join(baseDir, "log"),
	}, nil
}

// envOrXDG returns $override if set, else name under $xdgVar if that is an
// absolute path, else name under ~/homeRel.
func envOrXDG(override, xdgVar, name, homeRel string) (string, error) {
	if path := os.Getenv(override); path != "" {
		return path, nil
	}
	if dir := os.Getenv(xdgVar); filepath.IsAbs(dir) {
		return filepath.Join(dir, name), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory (set %s): %w", override, err)
	}
	return filepath.Join(homeDir, homeRel, name), nil
}
