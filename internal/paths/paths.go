// Package paths centralizes the file and directory names dgrpc uses for
// persisted state: the OAuth2 token record and the on-disk TOML config
// consumed by cmd/dgrpcctl. All path construction goes through this
// package so the library and the example CLI never drift.
package paths

import (
	"os"
	"path/filepath"
)

// ///////////////////////////////////////////////
// Constants
// ///////////////////////////////////////////////

const (
	// DataDirRel is the default data directory name, relative to the
	// user's config directory (see [DefaultRoot]).
	DataDirRel = "dgrpc"

	// TokenFile is the OAuth2 token record, persisted as JSON.
	TokenFile = "token.json"
	// ConfigFile is the on-disk TOML configuration for cmd/dgrpcctl.
	ConfigFile = "config.toml"
	// LogFile is the rotating log file used by cmd/dgrpcctl.
	LogFile = "dgrpc.log"
)

// ///////////////////////////////////////////////
// DefaultRoot
// ///////////////////////////////////////////////

// DefaultRoot returns the default data directory: the user's config
// directory (via [os.UserConfigDir]) joined with [DataDirRel].
func DefaultRoot() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, DataDirRel), nil
}

// ///////////////////////////////////////////////
// DataDir
// ///////////////////////////////////////////////

// DataDir provides path construction methods rooted at a data directory.
type DataDir struct {
	Root string
}

// Token returns the full path to the OAuth2 token file.
func (d DataDir) Token() string { return filepath.Join(d.Root, TokenFile) }

// Config returns the full path to the config file.
func (d DataDir) Config() string { return filepath.Join(d.Root, ConfigFile) }

// Log returns the full path to the log file.
func (d DataDir) Log() string { return filepath.Join(d.Root, LogFile) }
