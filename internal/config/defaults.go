package config

import (
	"os"
	"path/filepath"
	"time"
)

const (
	DefaultAccountsFile = "accounts.json"
	DefaultNavTimeout   = 30 * time.Second
	DefaultLogLevel     = "info"
	DefaultPushJob      = "panelkeeper"
)

// DefaultAccountsPath returns accounts.json next to the running executable,
// falling back to the working directory when no such file exists there.
func DefaultAccountsPath() string {
	exe, err := os.Executable()
	if err == nil {
		candidate := filepath.Join(filepath.Dir(exe), DefaultAccountsFile)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return DefaultAccountsFile
}
